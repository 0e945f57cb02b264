package game

import (
	"fmt"
	"math"
	"strings"
)

type Aggressiveness string

const (
	AggressivenessConservative Aggressiveness = "conservative"
	AggressivenessBalanced     Aggressiveness = "balanced"
	AggressivenessAggressive   Aggressiveness = "aggressive"
)

const (
	// Floor for the cheapest viable production tier (a documentary).
	MinViableProductionCents = 100_000 * CentsPerDollar

	MinInvestmentPct = 0.05
	MaxInvestmentPct = 0.50

	// "auto" lets the planner pick the richest affordable tier.
	AutoProjectType = "auto"
)

type AutoProductionSettings struct {
	Enabled             bool           `json:"enabled"`
	MinCashReserveCents int64          `json:"min_cash_reserve_cents"`
	MaxInvestmentPct    float64        `json:"max_investment_pct"`
	PreferredType       string         `json:"preferred_type"`
	Aggressiveness      Aggressiveness `json:"aggressiveness"`
}

func DefaultAutoSettings() AutoProductionSettings {
	return AutoProductionSettings{
		Enabled:             false,
		MinCashReserveCents: 10_000 * CentsPerDollar,
		MaxInvestmentPct:    0.20,
		PreferredType:       AutoProjectType,
		Aggressiveness:      AggressivenessBalanced,
	}
}

func (s AutoProductionSettings) Validate() error {
	if s.MinCashReserveCents < 0 {
		return fmt.Errorf("min cash reserve must be >= 0")
	}
	if s.MaxInvestmentPct < MinInvestmentPct || s.MaxInvestmentPct > MaxInvestmentPct {
		return fmt.Errorf("max investment percentage must be within [%.2f, %.2f]", MinInvestmentPct, MaxInvestmentPct)
	}
	switch strings.ToLower(strings.TrimSpace(s.PreferredType)) {
	case AutoProjectType, string(ProjectMovie), string(ProjectSeries), string(ProjectDocumentary):
	default:
		return fmt.Errorf("preferred type must be movie, series, documentary, or auto")
	}
	switch s.Aggressiveness {
	case AggressivenessConservative, AggressivenessBalanced, AggressivenessAggressive:
	default:
		return fmt.Errorf("aggressiveness must be conservative, balanced, or aggressive")
	}
	return nil
}

func AggressivenessMultiplier(a Aggressiveness) float64 {
	switch a {
	case AggressivenessConservative:
		return 0.5
	case AggressivenessAggressive:
		return 2.0
	default:
		return 1.0
	}
}

// EstimatedBudgetCents sizes the next auto-production from reserve-adjusted
// cash. Never negative; zero when cash is at or below the reserve.
func EstimatedBudgetCents(cashCents int64, s AutoProductionSettings) int64 {
	available := cashCents - s.MinCashReserveCents
	if available <= 0 {
		return 0
	}
	return int64(math.Round(float64(available) * s.MaxInvestmentPct))
}

func CanAffordRealisticProduction(estimatedBudgetCents int64) bool {
	return estimatedBudgetCents >= MinViableProductionCents
}

// RecommendProjectType picks the highest tier whose minimum budget fits the
// estimate: richer productions win when affordable.
func RecommendProjectType(estimatedBudgetCents int64) (ProjectType, bool) {
	order := []ProjectType{ProjectMovie, ProjectSeries, ProjectDocumentary}
	for _, t := range order {
		spec, err := SpecByType(string(t))
		if err != nil {
			continue
		}
		if spec.MinBudgetCents <= estimatedBudgetCents {
			return t, true
		}
	}
	return "", false
}

type AutoPlan struct {
	EstimatedBudgetCents int64       `json:"estimated_budget_cents"`
	CanAfford            bool        `json:"can_afford"`
	RecommendedType      ProjectType `json:"recommended_type"`
	ScaledBudgetCents    int64       `json:"scaled_budget_cents"`
}

// PlanAutoProduction is advisory: it computes what the engine would spend
// without spending anything. The aggressiveness multiplier scales the
// estimate and the result is re-clamped to the chosen type's band.
func PlanAutoProduction(cashCents int64, s AutoProductionSettings) AutoPlan {
	plan := AutoPlan{EstimatedBudgetCents: EstimatedBudgetCents(cashCents, s)}
	plan.CanAfford = CanAffordRealisticProduction(plan.EstimatedBudgetCents)
	if !plan.CanAfford {
		return plan
	}

	preferred := strings.ToLower(strings.TrimSpace(s.PreferredType))
	if preferred == AutoProjectType {
		t, ok := RecommendProjectType(plan.EstimatedBudgetCents)
		if !ok {
			plan.CanAfford = false
			return plan
		}
		plan.RecommendedType = t
	} else {
		plan.RecommendedType = ProjectType(preferred)
	}

	spec, err := SpecByType(string(plan.RecommendedType))
	if err != nil {
		plan.CanAfford = false
		return plan
	}
	scaled := int64(math.Round(float64(plan.EstimatedBudgetCents) * AggressivenessMultiplier(s.Aggressiveness)))
	if scaled < spec.MinBudgetCents {
		scaled = spec.MinBudgetCents
	}
	if scaled > spec.MaxBudgetCents {
		scaled = spec.MaxBudgetCents
	}
	if plan.EstimatedBudgetCents < spec.MinBudgetCents {
		// Preferred tier out of reach; the engine skips this cycle.
		plan.CanAfford = false
		return plan
	}
	plan.ScaledBudgetCents = scaled
	return plan
}
