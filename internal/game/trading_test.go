package game

import (
	"errors"
	"testing"
)

func TestQuoteSellRealCompanyFee(t *testing.T) {
	// 10% of a $1M company at 20% owned: $100k gross, 2% fee, $98k net.
	quote, err := QuoteSell(20, 100_000_000, 10, RealCompanySellFee)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if quote.GrossCents != 10_000_000 {
		t.Fatalf("gross got %d want 10000000", quote.GrossCents)
	}
	if quote.FeeCents != 200_000 {
		t.Fatalf("fee got %d want 200000", quote.FeeCents)
	}
	if quote.NetCents != 9_800_000 {
		t.Fatalf("net got %d want 9800000", quote.NetCents)
	}
	if quote.NewOwnershipPct != 10 {
		t.Fatalf("ownership got %f want 10", quote.NewOwnershipPct)
	}
}

func TestQuoteSellVentureNoFee(t *testing.T) {
	quote, err := QuoteSell(100, CompanyBaseValueCents, 20, VentureSellFee)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if quote.FeeCents != 0 {
		t.Fatalf("venture sell charged a fee: %d", quote.FeeCents)
	}
	if quote.NetCents != quote.GrossCents {
		t.Fatalf("net %d differs from gross %d", quote.NetCents, quote.GrossCents)
	}
}

func TestQuoteBuyCaps(t *testing.T) {
	if _, err := QuoteBuy(95, 1_000_000, 10); !errors.Is(err, ErrExceedsAvailableShares) {
		t.Fatalf("expected ErrExceedsAvailableShares, got %v", err)
	}
	quote, err := QuoteBuy(90, 1_000_000, 10)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if quote.NewOwnershipPct != 100 {
		t.Fatalf("ownership got %f want 100", quote.NewOwnershipPct)
	}
}

func TestQuoteSellBeyondHolding(t *testing.T) {
	if _, err := QuoteSell(5, 1_000_000, 10, RealCompanySellFee); !errors.Is(err, ErrExceedsAvailableShares) {
		t.Fatalf("expected ErrExceedsAvailableShares, got %v", err)
	}
}

func TestInvalidPercentages(t *testing.T) {
	for _, pct := range []float64{0, -5, 101} {
		if _, err := QuoteBuy(0, 1_000_000, pct); !errors.Is(err, ErrInvalidPercentage) {
			t.Fatalf("pct=%f expected ErrInvalidPercentage, got %v", pct, err)
		}
		if _, err := QuoteSell(100, 1_000_000, pct, 0); !errors.Is(err, ErrInvalidPercentage) {
			t.Fatalf("pct=%f expected ErrInvalidPercentage, got %v", pct, err)
		}
	}
}

func TestBuySellRoundTripOwnership(t *testing.T) {
	owned := 0.0
	for _, pct := range RealCompanyTradeSteps {
		quote, err := QuoteBuy(owned, 500_000_000, pct)
		if err != nil {
			t.Fatalf("buy %f: %v", pct, err)
		}
		owned = quote.NewOwnershipPct
	}
	for _, pct := range RealCompanyTradeSteps {
		quote, err := QuoteSell(owned, 500_000_000, pct, RealCompanySellFee)
		if err != nil {
			t.Fatalf("sell %f: %v", pct, err)
		}
		owned = quote.NewOwnershipPct
	}
	if owned > 1e-9 || owned < -1e-9 {
		t.Fatalf("round trip left %f%% owned", owned)
	}
}

func TestAllowedTradeStep(t *testing.T) {
	if !AllowedTradeStep(5, VentureTradeSteps) {
		t.Fatalf("5%% should be an allowed venture step")
	}
	if AllowedTradeStep(7, VentureTradeSteps) {
		t.Fatalf("7%% is not a venture step")
	}
	if AllowedTradeStep(20, RealCompanyTradeSteps) {
		t.Fatalf("20%% is not a market step")
	}
}
