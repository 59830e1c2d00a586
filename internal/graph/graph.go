// Package graph holds the static registry of agent types and their
// dependency relation. The relation over all registered descriptors must
// form a DAG; a cycle is a configuration error caught when levels are
// computed, not at run time.
package graph

import (
	"fmt"
	"sort"
	"time"

	"github.com/ordo-ai/ordo/internal/core"
)

// AgentGraph indexes agent descriptors by tag and maintains forward and
// reverse dependency edges.
type AgentGraph struct {
	nodes      map[core.AgentTag]*core.AgentDescriptor
	dependents map[core.AgentTag][]core.AgentTag
	order      []core.AgentTag
}

// New creates an empty agent graph.
func New() *AgentGraph {
	return &AgentGraph{
		nodes:      make(map[core.AgentTag]*core.AgentDescriptor),
		dependents: make(map[core.AgentTag][]core.AgentTag),
	}
}

// Register adds an agent descriptor. Descriptors are immutable once
// registered; re-registering a tag fails with DuplicateAgent.
func (g *AgentGraph) Register(desc core.AgentDescriptor) error {
	if err := desc.Validate(); err != nil {
		return err
	}
	if _, exists := g.nodes[desc.Tag]; exists {
		return core.ErrConfiguration(core.CodeDuplicateAgent,
			fmt.Sprintf("agent %s is already registered", desc.Tag))
	}
	d := desc
	g.nodes[desc.Tag] = &d
	g.order = append(g.order, desc.Tag)
	for _, dep := range desc.Dependencies {
		g.dependents[dep] = append(g.dependents[dep], desc.Tag)
	}
	return nil
}

// Get returns the descriptor for a tag.
func (g *AgentGraph) Get(tag core.AgentTag) (*core.AgentDescriptor, error) {
	desc, ok := g.nodes[tag]
	if !ok {
		return nil, core.ErrConfiguration(core.CodeUnknownAgent,
			fmt.Sprintf("agent %s is not registered", tag))
	}
	return desc, nil
}

// Has reports whether a tag is registered.
func (g *AgentGraph) Has(tag core.AgentTag) bool {
	_, ok := g.nodes[tag]
	return ok
}

// Tags returns all registered tags in registration order.
func (g *AgentGraph) Tags() []core.AgentTag {
	return append([]core.AgentTag(nil), g.order...)
}

// Size returns the number of registered agents.
func (g *AgentGraph) Size() int {
	return len(g.nodes)
}

// DependenciesOf returns the direct dependencies of a tag.
func (g *AgentGraph) DependenciesOf(tag core.AgentTag) []core.AgentTag {
	desc, ok := g.nodes[tag]
	if !ok {
		return nil
	}
	return append([]core.AgentTag(nil), desc.Dependencies...)
}

// DependentsOf returns the tags that directly depend on the given tag.
func (g *AgentGraph) DependentsOf(tag core.AgentTag) []core.AgentTag {
	return append([]core.AgentTag(nil), g.dependents[tag]...)
}

// TopologicalLevels orders a subset of tags into levels such that every
// tag's dependencies within the subset appear in a strictly earlier level.
// Dependencies outside the subset are treated as already satisfied. Uses
// Kahn's algorithm restricted to the subset; a cycle fails with
// CircularDependency naming the unresolved remainder.
func (g *AgentGraph) TopologicalLevels(tags []core.AgentTag) ([][]core.AgentTag, error) {
	subset := make(map[core.AgentTag]bool, len(tags))
	for _, tag := range tags {
		if _, ok := g.nodes[tag]; !ok {
			return nil, core.ErrConfiguration(core.CodeUnknownAgent,
				fmt.Sprintf("agent %s is not registered", tag))
		}
		subset[tag] = true
	}

	// In-degree counts, restricted to dependencies within the subset.
	indegree := make(map[core.AgentTag]int, len(tags))
	for tag := range subset {
		count := 0
		for _, dep := range g.nodes[tag].Dependencies {
			if subset[dep] {
				count++
			}
		}
		indegree[tag] = count
	}

	placed := make(map[core.AgentTag]bool, len(tags))
	var levels [][]core.AgentTag
	remaining := len(indegree)

	for remaining > 0 {
		var level []core.AgentTag
		for _, tag := range tags {
			if placed[tag] || indegree[tag] != 0 {
				continue
			}
			level = append(level, tag)
		}
		if len(level) == 0 {
			var stuck []string
			for _, tag := range tags {
				if !placed[tag] {
					stuck = append(stuck, string(tag))
				}
			}
			sort.Strings(stuck)
			return nil, core.ErrConfiguration(core.CodeCircularDependency,
				fmt.Sprintf("circular dependency among agents: %v", stuck))
		}
		for _, tag := range level {
			placed[tag] = true
			remaining--
			for _, dependent := range g.dependents[tag] {
				if subset[dependent] && !placed[dependent] {
					indegree[dependent]--
				}
			}
		}
		levels = append(levels, level)
	}

	return levels, nil
}

// UnmetRequirement names one missing dependency for a requested agent.
type UnmetRequirement struct {
	Agent   core.AgentTag
	Missing core.AgentTag
}

func (u UnmetRequirement) String() string {
	return fmt.Sprintf("%s requires %s", u.Agent, u.Missing)
}

// ValidateSatisfied checks that every declared dependency of each tag is
// either in the completed set or in the subset itself. The result is a
// caller-facing diagnostic, not an error: the caller decides whether to
// abort or proceed.
func (g *AgentGraph) ValidateSatisfied(tags []core.AgentTag, completed map[core.AgentTag]bool) []UnmetRequirement {
	subset := make(map[core.AgentTag]bool, len(tags))
	for _, tag := range tags {
		subset[tag] = true
	}
	var unmet []UnmetRequirement
	for _, tag := range tags {
		desc, ok := g.nodes[tag]
		if !ok {
			continue
		}
		for _, dep := range desc.Dependencies {
			if !completed[dep] && !subset[dep] {
				unmet = append(unmet, UnmetRequirement{Agent: tag, Missing: dep})
			}
		}
	}
	return unmet
}

// DefaultCatalog returns the built-in agent registry: a software delivery
// pipeline from product framing through deployment.
func DefaultCatalog() []core.AgentDescriptor {
	const (
		shortTimeout = 5 * time.Minute
		longTimeout  = 15 * time.Minute
	)
	return []core.AgentDescriptor{
		{
			Tag:         "PM",
			Description: "Frames requirements and acceptance criteria",
			DefaultTier: core.TierStandard,
			MaxRetries:  2,
			Timeout:     shortTimeout,
		},
		{
			Tag:          "ARCHITECT",
			Description:  "Designs the system to satisfy the requirements",
			Dependencies: []core.AgentTag{"PM"},
			DefaultTier:  core.TierPremium,
			MaxRetries:   2,
			Timeout:      longTimeout,
		},
		{
			Tag:          "TL_FRONTEND",
			Description:  "Breaks the frontend work into tasks",
			Dependencies: []core.AgentTag{"ARCHITECT"},
			DefaultTier:  core.TierStandard,
			MaxRetries:   2,
			Timeout:      shortTimeout,
		},
		{
			Tag:          "TL_BACKEND",
			Description:  "Breaks the backend work into tasks",
			Dependencies: []core.AgentTag{"ARCHITECT"},
			DefaultTier:  core.TierStandard,
			MaxRetries:   2,
			Timeout:      shortTimeout,
		},
		{
			Tag:          "DEV_FRONTEND",
			Description:  "Implements the frontend tasks",
			Dependencies: []core.AgentTag{"TL_FRONTEND"},
			DefaultTier:  core.TierStandard,
			MaxRetries:   3,
			Timeout:      longTimeout,
		},
		{
			Tag:          "DEV_BACKEND",
			Description:  "Implements the backend tasks",
			Dependencies: []core.AgentTag{"TL_BACKEND"},
			DefaultTier:  core.TierStandard,
			MaxRetries:   3,
			Timeout:      longTimeout,
		},
		{
			Tag:          "QA",
			Description:  "Verifies the implementation against acceptance criteria",
			Dependencies: []core.AgentTag{"DEV_FRONTEND", "DEV_BACKEND"},
			DefaultTier:  core.TierEconomy,
			MaxRetries:   2,
			Timeout:      shortTimeout,
		},
		{
			Tag:          "DEVOPS",
			Description:  "Prepares deployment and release notes",
			Dependencies: []core.AgentTag{"QA"},
			DefaultTier:  core.TierEconomy,
			MaxRetries:   1,
			Timeout:      shortTimeout,
		},
	}
}

// NewWithCatalog builds a graph pre-populated with the default catalog.
func NewWithCatalog() (*AgentGraph, error) {
	g := New()
	for _, desc := range DefaultCatalog() {
		if err := g.Register(desc); err != nil {
			return nil, err
		}
	}
	return g, nil
}
