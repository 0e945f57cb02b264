package game

import (
	"errors"
	"testing"
)

func TestBudgetCategoryMovie(t *testing.T) {
	spec, err := SpecByType("movie")
	if err != nil {
		t.Fatalf("spec: %v", err)
	}
	tests := []struct {
		budget int64
		want   string
	}{
		{budget: 5_000_000 * CentsPerDollar, want: "Independent"},
		{budget: 50_000_000 * CentsPerDollar, want: "Mid-Budget"},
		{budget: 200_000_000 * CentsPerDollar, want: "Blockbuster"},
	}
	for _, tc := range tests {
		if err := ValidateBudget(spec, tc.budget); err != nil {
			t.Fatalf("budget %d rejected: %v", tc.budget, err)
		}
		got := BudgetCategory(spec, tc.budget)
		if got != tc.want {
			t.Fatalf("budget=%d got=%q want=%q", tc.budget, got, tc.want)
		}
	}
}

func TestValidateBudgetRejectsOutOfBand(t *testing.T) {
	spec, err := SpecByType("movie")
	if err != nil {
		t.Fatalf("spec: %v", err)
	}
	if err := ValidateBudget(spec, 80_000*CentsPerDollar); !errors.Is(err, ErrBudgetOutOfRange) {
		t.Fatalf("expected ErrBudgetOutOfRange below minimum, got %v", err)
	}
	if err := ValidateBudget(spec, 500_000_000*CentsPerDollar); !errors.Is(err, ErrBudgetOutOfRange) {
		t.Fatalf("expected ErrBudgetOutOfRange above maximum, got %v", err)
	}
}

func TestTierBoundariesAreExclusive(t *testing.T) {
	spec, err := SpecByType("movie")
	if err != nil {
		t.Fatalf("spec: %v", err)
	}
	if got := BudgetCategory(spec, 10_000_000*CentsPerDollar); got != "Mid-Budget" {
		t.Fatalf("exactly $10M got %q want Mid-Budget", got)
	}
	if got := BudgetCategory(spec, 10_000_000*CentsPerDollar-1); got != "Independent" {
		t.Fatalf("just under $10M got %q want Independent", got)
	}
}

func TestSpecByTypeUnknown(t *testing.T) {
	if _, err := SpecByType("podcast"); err == nil {
		t.Fatalf("expected unknown project type to fail")
	}
}

func TestOutcomeBands(t *testing.T) {
	budget := int64(1_000_000 * CentsPerDollar)
	tests := []struct {
		multiple float64
		want     string
	}{
		{multiple: 0.3, want: "Flop"},
		{multiple: 0.9, want: "Moderate Success"},
		{multiple: 3, want: "Hit"},
		{multiple: 6, want: "Blockbuster"},
		{multiple: 15, want: "Legendary Hit"},
	}
	for _, tc := range tests {
		gross := int64(float64(budget) * tc.multiple)
		got := OutcomeBand(gross, budget)
		if got != tc.want {
			t.Fatalf("multiple=%f got=%q want=%q", tc.multiple, got, tc.want)
		}
	}
}

func TestRollGrossMultipleStaysInBand(t *testing.T) {
	// Band seeds at the cumulative edges must never escape [0.2, 25].
	seeds := []float64{0, 0.39, 0.40, 0.69, 0.70, 0.89, 0.90, 0.97, 0.98, 0.999}
	for _, bandSeed := range seeds {
		for _, withinSeed := range []float64{0, 0.5, 0.999} {
			m := rollGrossMultiple(bandSeed, withinSeed)
			if m < 0.2 || m > 25 {
				t.Fatalf("seeds (%f, %f) produced multiple %f", bandSeed, withinSeed, m)
			}
		}
	}
}
