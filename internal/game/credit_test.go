package game

import "testing"

func TestScoreLabels(t *testing.T) {
	tests := []struct {
		score int
		want  string
	}{
		{score: 850, want: "Excellent"},
		{score: 800, want: "Excellent"},
		{score: 750, want: "Very Good"},
		{score: 700, want: "Good"},
		{score: 600, want: "Fair"},
		{score: 500, want: "Poor"},
		{score: 300, want: "Poor"},
	}
	for _, tc := range tests {
		if got := ScoreLabel(tc.score); got != tc.want {
			t.Fatalf("score=%d got=%q want=%q", tc.score, got, tc.want)
		}
	}
}

func TestApplyCreditDeltaClamps(t *testing.T) {
	if got := ApplyCreditDelta(840, CreditDeltaPayoff); got != MaxCreditScore {
		t.Fatalf("payoff near ceiling got %d want %d", got, MaxCreditScore)
	}
	if got := ApplyCreditDelta(310, CreditDeltaMissedPayment); got != MinCreditScore {
		t.Fatalf("miss near floor got %d want %d", got, MinCreditScore)
	}
	if got := ApplyCreditDelta(650, CreditDeltaOnTimePayment); got != 655 {
		t.Fatalf("on-time got %d want 655", got)
	}
}

func TestOwnedIncomeScalesWithStake(t *testing.T) {
	if got := OwnedIncomeCents(CompanyBaseIncomeCents, 100); got != CompanyBaseIncomeCents {
		t.Fatalf("full ownership got %d", got)
	}
	if got := OwnedIncomeCents(CompanyBaseIncomeCents, 50); got != CompanyBaseIncomeCents/2 {
		t.Fatalf("half ownership got %d", got)
	}
	if got := OwnedIncomeCents(CompanyBaseIncomeCents, 0); got != 0 {
		t.Fatalf("zero ownership got %d", got)
	}
}

func TestUpgradeCostGrows(t *testing.T) {
	prev := int64(0)
	for level := int32(1); level <= 5; level++ {
		cost := UpgradeCostCents(level)
		if cost <= prev {
			t.Fatalf("level %d cost %d did not grow past %d", level, cost, prev)
		}
		prev = cost
	}
}
