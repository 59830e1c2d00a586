package graph

import (
	"errors"
	"testing"

	"github.com/ordo-ai/ordo/internal/core"
)

func desc(tag core.AgentTag, deps ...core.AgentTag) core.AgentDescriptor {
	return core.AgentDescriptor{
		Tag:          tag,
		Dependencies: deps,
		DefaultTier:  core.TierStandard,
		MaxRetries:   2,
	}
}

func buildGraph(t *testing.T, descs ...core.AgentDescriptor) *AgentGraph {
	t.Helper()
	g := New()
	for _, d := range descs {
		if err := g.Register(d); err != nil {
			t.Fatalf("register %s: %v", d.Tag, err)
		}
	}
	return g
}

func TestRegister_Duplicate(t *testing.T) {
	g := buildGraph(t, desc("PM"))
	err := g.Register(desc("PM"))
	if err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}
	if !errors.Is(err, core.ErrConfiguration(core.CodeDuplicateAgent, "")) {
		t.Fatalf("expected DUPLICATE_AGENT, got %v", err)
	}
}

func TestDependencyEdges(t *testing.T) {
	g := buildGraph(t, desc("PM"), desc("ARCHITECT", "PM"), desc("QA", "PM"))

	deps := g.DependenciesOf("ARCHITECT")
	if len(deps) != 1 || deps[0] != "PM" {
		t.Fatalf("unexpected dependencies: %v", deps)
	}
	dependents := g.DependentsOf("PM")
	if len(dependents) != 2 {
		t.Fatalf("expected 2 dependents of PM, got %v", dependents)
	}
}

func TestTopologicalLevels_DependenciesEarlier(t *testing.T) {
	g := buildGraph(t,
		desc("PM"),
		desc("ARCHITECT", "PM"),
		desc("TL_FRONTEND", "ARCHITECT"),
		desc("TL_BACKEND", "ARCHITECT"),
		desc("QA", "TL_FRONTEND", "TL_BACKEND"),
	)

	tags := []core.AgentTag{"QA", "TL_BACKEND", "PM", "ARCHITECT", "TL_FRONTEND"}
	levels, err := g.TopologicalLevels(tags)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	position := make(map[core.AgentTag]int)
	for i, level := range levels {
		for _, tag := range level {
			position[tag] = i
		}
	}
	for _, tag := range tags {
		for _, dep := range g.DependenciesOf(tag) {
			if position[dep] >= position[tag] {
				t.Fatalf("dependency %s of %s not in earlier level (%d vs %d)",
					dep, tag, position[dep], position[tag])
			}
		}
	}
}

func TestTopologicalLevels_OutsideSubsetSatisfied(t *testing.T) {
	g := buildGraph(t, desc("PM"), desc("ARCHITECT", "PM"), desc("TL_BACKEND", "ARCHITECT"))

	// PM is outside the subset: its edge is treated as satisfied.
	levels, err := g.TopologicalLevels([]core.AgentTag{"ARCHITECT", "TL_BACKEND"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(levels) != 2 {
		t.Fatalf("expected 2 levels, got %v", levels)
	}
	if levels[0][0] != "ARCHITECT" {
		t.Fatalf("expected ARCHITECT first, got %v", levels[0])
	}
}

func TestTopologicalLevels_Cycle(t *testing.T) {
	g := buildGraph(t, desc("A", "B"), desc("B", "A"))

	_, err := g.TopologicalLevels([]core.AgentTag{"A", "B"})
	if err == nil {
		t.Fatalf("expected circular dependency error")
	}
	if !errors.Is(err, core.ErrConfiguration(core.CodeCircularDependency, "")) {
		t.Fatalf("expected CIRCULAR_DEPENDENCY, got %v", err)
	}
}

func TestTopologicalLevels_UnknownAgent(t *testing.T) {
	g := buildGraph(t, desc("PM"))
	_, err := g.TopologicalLevels([]core.AgentTag{"PM", "GHOST"})
	if err == nil {
		t.Fatalf("expected unknown agent error")
	}
	if !core.IsCategory(err, core.ErrCatConfiguration) {
		t.Fatalf("expected configuration category, got %s", core.GetCategory(err))
	}
}

func TestValidateSatisfied(t *testing.T) {
	g := buildGraph(t, desc("PM"), desc("ARCHITECT", "PM"), desc("QA", "ARCHITECT"))

	// Dependency inside the subset counts as satisfied.
	if unmet := g.ValidateSatisfied([]core.AgentTag{"PM", "ARCHITECT"}, nil); len(unmet) != 0 {
		t.Fatalf("expected no unmet requirements, got %v", unmet)
	}

	// Dependency in the completed set counts as satisfied.
	completed := map[core.AgentTag]bool{"ARCHITECT": true}
	if unmet := g.ValidateSatisfied([]core.AgentTag{"QA"}, completed); len(unmet) != 0 {
		t.Fatalf("expected no unmet requirements, got %v", unmet)
	}

	// Otherwise the requirement is reported, not raised.
	unmet := g.ValidateSatisfied([]core.AgentTag{"QA"}, nil)
	if len(unmet) != 1 {
		t.Fatalf("expected 1 unmet requirement, got %v", unmet)
	}
	if unmet[0].Agent != "QA" || unmet[0].Missing != "ARCHITECT" {
		t.Fatalf("unexpected requirement %v", unmet[0])
	}
}

func TestDefaultCatalog_Acyclic(t *testing.T) {
	g, err := NewWithCatalog()
	if err != nil {
		t.Fatalf("building catalog graph: %v", err)
	}
	levels, err := g.TopologicalLevels(g.Tags())
	if err != nil {
		t.Fatalf("catalog should be acyclic: %v", err)
	}
	if len(levels) < 4 {
		t.Fatalf("expected a layered pipeline, got %d levels", len(levels))
	}
}
