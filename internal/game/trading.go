package game

import (
	"fmt"
	"math"
)

// Sell friction: player ventures exit free, real-company positions pay a
// brokerage-style fee.
const (
	VentureSellFee     = 0.0
	RealCompanySellFee = 0.02

	MaxOwnershipPct = 100.0
)

var (
	VentureTradeSteps     = []float64{1, 5, 10, 20}
	RealCompanyTradeSteps = []float64{1, 5, 10}
)

type TradeQuote struct {
	Pct             float64 `json:"pct"`
	GrossCents      int64   `json:"gross_cents"`
	FeeCents        int64   `json:"fee_cents"`
	NetCents        int64   `json:"net_cents"`
	NewOwnershipPct float64 `json:"new_ownership_pct"`
}

func validatePct(pct float64) error {
	if pct <= 0 || pct > MaxOwnershipPct {
		return fmt.Errorf("%w: got %.2f", ErrInvalidPercentage, pct)
	}
	return nil
}

// AllowedTradeStep reports whether pct is one of the discrete steps the
// caller's catalog offers.
func AllowedTradeStep(pct float64, steps []float64) bool {
	for _, s := range steps {
		if math.Abs(s-pct) < 1e-9 {
			return true
		}
	}
	return false
}

// QuoteBuy prices acquiring pct of an entity at the given market value.
// NetCents is the cash the buyer must part with.
func QuoteBuy(ownedPct float64, marketValueCents int64, pct float64) (TradeQuote, error) {
	if err := validatePct(pct); err != nil {
		return TradeQuote{}, err
	}
	if ownedPct+pct > MaxOwnershipPct+1e-9 {
		return TradeQuote{}, fmt.Errorf("%w: own %.2f%%, buying %.2f%% would exceed 100%%",
			ErrExceedsAvailableShares, ownedPct, pct)
	}
	cost := int64(math.Round(float64(marketValueCents) * pct / 100))
	return TradeQuote{
		Pct:             pct,
		GrossCents:      cost,
		FeeCents:        0,
		NetCents:        cost,
		NewOwnershipPct: ownedPct + pct,
	}, nil
}

// QuoteSell prices divesting pct of a holding. NetCents is the cash the
// seller receives after the fee.
func QuoteSell(ownedPct float64, marketValueCents int64, pct, feeRate float64) (TradeQuote, error) {
	if err := validatePct(pct); err != nil {
		return TradeQuote{}, err
	}
	if pct > ownedPct+1e-9 {
		return TradeQuote{}, fmt.Errorf("%w: own %.2f%%, selling %.2f%%",
			ErrExceedsAvailableShares, ownedPct, pct)
	}
	gross := int64(math.Round(float64(marketValueCents) * pct / 100))
	fee := int64(math.Round(float64(gross) * feeRate))
	return TradeQuote{
		Pct:             pct,
		GrossCents:      gross,
		FeeCents:        fee,
		NetCents:        gross - fee,
		NewOwnershipPct: ownedPct - pct,
	}, nil
}
