// Package tier maps agent identities to cost-tiered execution classes.
package tier

import (
	"sync"

	"github.com/ordo-ai/ordo/internal/core"
)

// ComplexityKey is the context key consulted for complexity adjustments.
const ComplexityKey = "complexity"

// Options configures a selector. The override table and ceiling are the
// selector's only state; they change only through Configure.
type Options struct {
	// Overrides maps agent tags to an explicit tier, taking precedence over
	// the agent's declared default.
	Overrides map[core.AgentTag]core.Tier
	// MaxTier is a hard ceiling. Clamping always wins over upgrades and
	// overrides.
	MaxTier core.Tier
	// CostOptimization enables the one-level downgrade for low-complexity
	// context.
	CostOptimization bool
}

// Selector resolves the execution tier for an agent. Selection is a pure
// function of (tag, context, configuration).
type Selector struct {
	mu    sync.RWMutex
	graph *graphLookup
	opts  Options
}

// graphLookup is the slice of the agent graph the selector needs.
type graphLookup struct {
	defaults map[core.AgentTag]core.Tier
}

// DescriptorSource provides agent descriptors, typically the agent graph.
type DescriptorSource interface {
	Get(tag core.AgentTag) (*core.AgentDescriptor, error)
	Tags() []core.AgentTag
}

// NewSelector creates a selector over the given descriptor source.
func NewSelector(src DescriptorSource, opts Options) *Selector {
	defaults := make(map[core.AgentTag]core.Tier)
	for _, tag := range src.Tags() {
		if desc, err := src.Get(tag); err == nil {
			defaults[tag] = desc.DefaultTier
		}
	}
	if opts.MaxTier == "" {
		opts.MaxTier = core.TierPremium
	}
	return &Selector{
		graph: &graphLookup{defaults: defaults},
		opts:  opts,
	}
}

// Configure replaces the selector's configuration.
func (s *Selector) Configure(opts Options) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if opts.MaxTier == "" {
		opts.MaxTier = core.TierPremium
	}
	s.opts = opts
}

// MaxTier returns the configured ceiling.
func (s *Selector) MaxTier() core.Tier {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.opts.MaxTier
}

// Select resolves the tier for an agent. Resolution order: explicit override,
// else the agent's declared default; without an override, low complexity
// downgrades one level when cost optimization is on and high complexity
// upgrades one level; the configured ceiling is applied last and always wins.
func (s *Selector) Select(tag core.AgentTag, context map[string]any) core.Tier {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tier, overridden := s.opts.Overrides[tag]
	if !overridden {
		var ok bool
		tier, ok = s.graph.defaults[tag]
		if !ok {
			tier = core.TierStandard
		}
	}

	if !overridden {
		switch complexity(context) {
		case "low":
			if s.opts.CostOptimization {
				tier = tier.Downgrade()
			}
		case "high":
			tier = tier.Upgrade()
		}
	}

	return tier.Clamp(s.opts.MaxTier)
}

// EstimateCost sums the relative cost weight of the selected tier per tag,
// scaled by unitsPerAgent. Purely advisory.
func (s *Selector) EstimateCost(tags []core.AgentTag, unitsPerAgent float64) float64 {
	total := 0.0
	for _, tag := range tags {
		total += s.Select(tag, nil).Weight() * unitsPerAgent
	}
	return total
}

func complexity(context map[string]any) string {
	if context == nil {
		return ""
	}
	v, ok := context[ComplexityKey].(string)
	if !ok {
		return ""
	}
	return v
}
