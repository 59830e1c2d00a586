package core

import "testing"

func TestTier_Ordering(t *testing.T) {
	if TierEconomy.Rank() >= TierStandard.Rank() || TierStandard.Rank() >= TierPremium.Rank() {
		t.Fatalf("tier ranks out of order: %d %d %d",
			TierEconomy.Rank(), TierStandard.Rank(), TierPremium.Rank())
	}
	if Tier("ultra").Rank() != -1 {
		t.Fatalf("unknown tier should rank -1")
	}
	if Tier("ultra").Valid() {
		t.Fatalf("unknown tier should not be valid")
	}
}

func TestTier_UpgradeDowngradeSaturate(t *testing.T) {
	if TierPremium.Upgrade() != TierPremium {
		t.Fatalf("upgrade should saturate at premium")
	}
	if TierEconomy.Downgrade() != TierEconomy {
		t.Fatalf("downgrade should saturate at economy")
	}
	if TierEconomy.Upgrade() != TierStandard {
		t.Fatalf("expected economy upgrade to standard")
	}
	if TierPremium.Downgrade() != TierStandard {
		t.Fatalf("expected premium downgrade to standard")
	}
}

func TestTier_Clamp(t *testing.T) {
	if got := TierPremium.Clamp(TierStandard); got != TierStandard {
		t.Fatalf("expected clamp to standard, got %s", got)
	}
	if got := TierEconomy.Clamp(TierStandard); got != TierEconomy {
		t.Fatalf("clamp should not raise a tier, got %s", got)
	}
	// An invalid ceiling leaves the tier untouched.
	if got := TierPremium.Clamp(Tier("")); got != TierPremium {
		t.Fatalf("invalid ceiling should be ignored, got %s", got)
	}
}

func TestTier_Weights(t *testing.T) {
	if TierEconomy.Weight() >= TierStandard.Weight() || TierStandard.Weight() >= TierPremium.Weight() {
		t.Fatalf("tier weights should increase with cost")
	}
}
