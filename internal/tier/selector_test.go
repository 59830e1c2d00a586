package tier

import (
	"testing"

	"github.com/ordo-ai/ordo/internal/core"
	"github.com/ordo-ai/ordo/internal/graph"
)

func newTestGraph(t *testing.T) *graph.AgentGraph {
	t.Helper()
	g := graph.New()
	descs := []core.AgentDescriptor{
		{Tag: "PM", DefaultTier: core.TierStandard, MaxRetries: 2},
		{Tag: "ARCHITECT", DefaultTier: core.TierPremium, MaxRetries: 2},
		{Tag: "QA", DefaultTier: core.TierEconomy, MaxRetries: 2},
	}
	for _, d := range descs {
		if err := g.Register(d); err != nil {
			t.Fatalf("register: %v", err)
		}
	}
	return g
}

func TestSelect_Default(t *testing.T) {
	s := NewSelector(newTestGraph(t), Options{})
	if got := s.Select("PM", nil); got != core.TierStandard {
		t.Fatalf("expected standard, got %s", got)
	}
	if got := s.Select("ARCHITECT", nil); got != core.TierPremium {
		t.Fatalf("expected premium, got %s", got)
	}
}

func TestSelect_CeilingAlwaysWins(t *testing.T) {
	s := NewSelector(newTestGraph(t), Options{MaxTier: core.TierStandard})

	// Declared premium default is clamped down.
	if got := s.Select("ARCHITECT", nil); got != core.TierStandard {
		t.Fatalf("expected clamp to standard, got %s", got)
	}

	// Override above the ceiling is clamped too.
	s.Configure(Options{
		MaxTier:   core.TierStandard,
		Overrides: map[core.AgentTag]core.Tier{"QA": core.TierPremium},
	})
	if got := s.Select("QA", nil); got != core.TierStandard {
		t.Fatalf("expected override clamped to standard, got %s", got)
	}

	// High-complexity upgrade cannot pierce the ceiling either.
	s.Configure(Options{MaxTier: core.TierStandard})
	if got := s.Select("PM", map[string]any{ComplexityKey: "high"}); got != core.TierStandard {
		t.Fatalf("expected upgrade clamped to standard, got %s", got)
	}
}

func TestSelect_ComplexityAdjustments(t *testing.T) {
	s := NewSelector(newTestGraph(t), Options{CostOptimization: true})

	if got := s.Select("PM", map[string]any{ComplexityKey: "low"}); got != core.TierEconomy {
		t.Fatalf("expected low complexity downgrade to economy, got %s", got)
	}
	if got := s.Select("PM", map[string]any{ComplexityKey: "high"}); got != core.TierPremium {
		t.Fatalf("expected high complexity upgrade to premium, got %s", got)
	}

	// Adjustments saturate at the enumeration bounds.
	if got := s.Select("QA", map[string]any{ComplexityKey: "low"}); got != core.TierEconomy {
		t.Fatalf("downgrade should saturate at economy, got %s", got)
	}
	if got := s.Select("ARCHITECT", map[string]any{ComplexityKey: "high"}); got != core.TierPremium {
		t.Fatalf("upgrade should saturate at premium, got %s", got)
	}
}

func TestSelect_NoDowngradeWithoutCostOptimization(t *testing.T) {
	s := NewSelector(newTestGraph(t), Options{})
	if got := s.Select("PM", map[string]any{ComplexityKey: "low"}); got != core.TierStandard {
		t.Fatalf("expected no downgrade when cost optimization is off, got %s", got)
	}
}

func TestSelect_OverrideSkipsComplexity(t *testing.T) {
	s := NewSelector(newTestGraph(t), Options{
		CostOptimization: true,
		Overrides:        map[core.AgentTag]core.Tier{"PM": core.TierPremium},
	})
	if got := s.Select("PM", map[string]any{ComplexityKey: "low"}); got != core.TierPremium {
		t.Fatalf("explicit override should not be complexity-adjusted, got %s", got)
	}
}

func TestEstimateCost(t *testing.T) {
	s := NewSelector(newTestGraph(t), Options{})
	got := s.EstimateCost([]core.AgentTag{"PM", "ARCHITECT", "QA"}, 10)
	want := (core.TierStandard.Weight() + core.TierPremium.Weight() + core.TierEconomy.Weight()) * 10
	if got != want {
		t.Fatalf("expected cost %v, got %v", want, got)
	}

	// Unknown tags fall back to the standard tier rather than erroring.
	if s.EstimateCost([]core.AgentTag{"GHOST"}, 1) != core.TierStandard.Weight() {
		t.Fatalf("unknown tag should estimate at standard weight")
	}
}
