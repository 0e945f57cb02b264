package game

import "math"

// Venture company economics. Founding is cheap enough to reach from the
// starting cash; upgrades compound from the current level.
const (
	CompanyFoundingCostCents = 25_000 * CentsPerDollar
	CompanyBaseValueCents    = 50_000 * CentsPerDollar
	CompanyBaseIncomeCents   = 250 * CentsPerDollar

	upgradeCostGrowth   = 1.6
	upgradeValueGrowth  = 1.5
	upgradeIncomeGrowth = 1.35
)

// MainSaveSlotID names the always-present slot the game writes on every
// session. It cannot be deleted.
const MainSaveSlotID = "main"

// UpgradeCostCents prices the upgrade from the given level to the next.
func UpgradeCostCents(level int32) int64 {
	cost := float64(CompanyFoundingCostCents)
	for i := int32(1); i < level; i++ {
		cost *= upgradeCostGrowth
	}
	return int64(math.Round(cost))
}

// UpgradedCompany returns the market value and income after one upgrade.
func UpgradedCompany(valueCents, incomeCents int64) (int64, int64) {
	nextValue := int64(math.Round(float64(valueCents) * upgradeValueGrowth))
	nextIncome := int64(math.Round(float64(incomeCents) * upgradeIncomeGrowth))
	return nextValue, nextIncome
}

// OwnedIncomeCents scales a company's per-tick income by the stake the
// player still holds.
func OwnedIncomeCents(incomeCents int64, sharesOwnedPct float64) int64 {
	if sharesOwnedPct <= 0 {
		return 0
	}
	return int64(math.Round(float64(incomeCents) * sharesOwnedPct / 100))
}
