package game

import (
	"errors"
	"math"
)

const (
	CentsPerDollar = int64(100)

	StartingCashCents   = int64(50_000) * CentsPerDollar
	StartingCreditScore = 650

	MinCreditScore = 300
	MaxCreditScore = 850
)

var (
	ErrCreditTooLow           = errors.New("credit score below offer requirement")
	ErrAmountOutOfRange       = errors.New("amount outside offer range")
	ErrBudgetOutOfRange       = errors.New("budget outside project type range")
	ErrExceedsAvailableShares = errors.New("trade exceeds available shares")
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrInvalidPercentage      = errors.New("percentage must be positive and at most 100")
	ErrLoanNotActive          = errors.New("loan is not active")
	ErrSlotProtected          = errors.New("the main save slot cannot be deleted")
	ErrNotFound               = errors.New("not found")
	ErrUnauthorized           = errors.New("unauthorized")
	ErrDuplicateIdempotency   = errors.New("duplicate idempotency key")
	ErrTxConflict             = errors.New("transaction conflict, retry")
)

func DollarsToCents(v float64) int64 {
	return int64(math.Round(v * float64(CentsPerDollar)))
}

func CentsToDollars(v int64) float64 {
	return float64(v) / float64(CentsPerDollar)
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
