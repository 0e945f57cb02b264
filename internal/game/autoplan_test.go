package game

import "testing"

func TestEstimatedBudgetNeverNegative(t *testing.T) {
	s := DefaultAutoSettings()
	for _, cash := range []int64{0, 5_000 * CentsPerDollar, s.MinCashReserveCents} {
		if got := EstimatedBudgetCents(cash, s); got != 0 {
			t.Fatalf("cash=%d got=%d want 0", cash, got)
		}
	}
}

func TestEstimatedBudgetAppliesReserveAndPct(t *testing.T) {
	s := DefaultAutoSettings()
	cash := s.MinCashReserveCents + 1_000_000*CentsPerDollar
	got := EstimatedBudgetCents(cash, s)
	want := int64(float64(1_000_000*CentsPerDollar) * s.MaxInvestmentPct)
	if got != want {
		t.Fatalf("got=%d want=%d", got, want)
	}
}

func TestCanAffordThreshold(t *testing.T) {
	if CanAffordRealisticProduction(MinViableProductionCents - 1) {
		t.Fatalf("just under the floor should not afford a production")
	}
	if !CanAffordRealisticProduction(MinViableProductionCents) {
		t.Fatalf("the floor itself should afford a production")
	}
}

func TestRecommendProjectTypePrefersRicherTiers(t *testing.T) {
	tests := []struct {
		budget int64
		want   ProjectType
	}{
		{budget: 2_000_000 * CentsPerDollar, want: ProjectMovie},
		{budget: 600_000 * CentsPerDollar, want: ProjectSeries},
		{budget: 150_000 * CentsPerDollar, want: ProjectDocumentary},
	}
	for _, tc := range tests {
		got, ok := RecommendProjectType(tc.budget)
		if !ok {
			t.Fatalf("budget=%d expected a recommendation", tc.budget)
		}
		if got != tc.want {
			t.Fatalf("budget=%d got=%s want=%s", tc.budget, got, tc.want)
		}
	}
	if _, ok := RecommendProjectType(50_000 * CentsPerDollar); ok {
		t.Fatalf("below every tier minimum should recommend nothing")
	}
}

func TestPlanAutoProductionScalesAndClamps(t *testing.T) {
	s := DefaultAutoSettings()
	s.PreferredType = string(ProjectDocumentary)
	s.Aggressiveness = AggressivenessAggressive
	cash := s.MinCashReserveCents + 1_000_000*CentsPerDollar

	plan := PlanAutoProduction(cash, s)
	if !plan.CanAfford {
		t.Fatalf("expected an affordable plan")
	}
	if plan.RecommendedType != ProjectDocumentary {
		t.Fatalf("type got %s", plan.RecommendedType)
	}
	spec, _ := SpecByType(string(ProjectDocumentary))
	if plan.ScaledBudgetCents < spec.MinBudgetCents || plan.ScaledBudgetCents > spec.MaxBudgetCents {
		t.Fatalf("scaled budget %d escapes band [%d, %d]",
			plan.ScaledBudgetCents, spec.MinBudgetCents, spec.MaxBudgetCents)
	}
	if plan.ScaledBudgetCents < plan.EstimatedBudgetCents {
		t.Fatalf("aggressive plan shrank the estimate: %d < %d",
			plan.ScaledBudgetCents, plan.EstimatedBudgetCents)
	}
}

func TestPlanAutoProductionConservativeHalvesSpend(t *testing.T) {
	s := DefaultAutoSettings()
	s.PreferredType = string(ProjectDocumentary)
	s.Aggressiveness = AggressivenessConservative
	cash := s.MinCashReserveCents + 10_000_000*CentsPerDollar

	plan := PlanAutoProduction(cash, s)
	if !plan.CanAfford {
		t.Fatalf("expected an affordable plan")
	}
	want := plan.EstimatedBudgetCents / 2
	if plan.ScaledBudgetCents != want {
		t.Fatalf("scaled got %d want %d", plan.ScaledBudgetCents, want)
	}
}

func TestPlanBelowPreferredTierMinimum(t *testing.T) {
	s := DefaultAutoSettings()
	s.PreferredType = string(ProjectMovie)
	cash := s.MinCashReserveCents + 1_000_000*CentsPerDollar // estimate $200k, movie needs $1M

	plan := PlanAutoProduction(cash, s)
	if plan.CanAfford {
		t.Fatalf("movie tier should be out of reach for estimate %d", plan.EstimatedBudgetCents)
	}
}

func TestAutoSettingsValidate(t *testing.T) {
	s := DefaultAutoSettings()
	if err := s.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
	s.MaxInvestmentPct = 0.9
	if err := s.Validate(); err == nil {
		t.Fatalf("expected percentage above cap to fail")
	}
	s = DefaultAutoSettings()
	s.MinCashReserveCents = -1
	if err := s.Validate(); err == nil {
		t.Fatalf("expected negative reserve to fail")
	}
	s = DefaultAutoSettings()
	s.PreferredType = "podcast"
	if err := s.Validate(); err == nil {
		t.Fatalf("expected unknown preferred type to fail")
	}
}
