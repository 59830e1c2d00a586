package core

// Tier is a cost/capability class assigned to an agent execution request.
// Tiers are ordered: economy < standard < premium.
type Tier string

const (
	TierEconomy  Tier = "economy"
	TierStandard Tier = "standard"
	TierPremium  Tier = "premium"
)

// tierRank maps tiers to their position in the ordering.
var tierRank = map[Tier]int{
	TierEconomy:  0,
	TierStandard: 1,
	TierPremium:  2,
}

// tierWeights are relative cost weights used only for estimation,
// never for billing accuracy.
var tierWeights = map[Tier]float64{
	TierEconomy:  1,
	TierStandard: 4,
	TierPremium:  15,
}

// Valid returns true if the tier is a known value.
func (t Tier) Valid() bool {
	_, ok := tierRank[t]
	return ok
}

// Rank returns the tier's position in the ordering, or -1 for unknown tiers.
func (t Tier) Rank() int {
	r, ok := tierRank[t]
	if !ok {
		return -1
	}
	return r
}

// Weight returns the tier's relative cost weight.
func (t Tier) Weight() float64 {
	return tierWeights[t]
}

// Upgrade returns the next tier up, saturating at premium.
func (t Tier) Upgrade() Tier {
	switch t {
	case TierEconomy:
		return TierStandard
	case TierStandard:
		return TierPremium
	default:
		return t
	}
}

// Downgrade returns the next tier down, saturating at economy.
func (t Tier) Downgrade() Tier {
	switch t {
	case TierPremium:
		return TierStandard
	case TierStandard:
		return TierEconomy
	default:
		return t
	}
}

// Clamp limits the tier to the given ceiling. The ceiling always wins
// over upgrades and overrides.
func (t Tier) Clamp(max Tier) Tier {
	if !max.Valid() {
		return t
	}
	if t.Rank() > max.Rank() {
		return max
	}
	return t
}
