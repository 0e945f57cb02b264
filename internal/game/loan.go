package game

import (
	"fmt"
	"math"
	"strings"
	"time"
)

type LoanType string

const (
	LoanSmall     LoanType = "small"
	LoanMedium    LoanType = "medium"
	LoanLarge     LoanType = "large"
	LoanEmergency LoanType = "emergency"
)

type LoanStatus string

const (
	LoanActive    LoanStatus = "active"
	LoanPaidOff   LoanStatus = "paid_off"
	LoanDefaulted LoanStatus = "defaulted"
)

// MissedPaymentDefaultThreshold is the number of consecutive missed payments
// after which the engine marks a loan defaulted.
const MissedPaymentDefaultThreshold = 3

// LoanPaymentInterval is one simulated billing month.
const LoanPaymentInterval = 30 * time.Second

type LoanOffer struct {
	Type                LoanType `json:"type"`
	Name                string   `json:"name"`
	Description         string   `json:"description"`
	MinAmountCents      int64    `json:"min_amount_cents"`
	MaxAmountCents      int64    `json:"max_amount_cents"`
	BaseAnnualRate      float64  `json:"base_annual_rate"`
	TermMonths          int      `json:"term_months"`
	CreditScoreRequired int      `json:"credit_score_required"`
}

var loanOffers = []LoanOffer{
	{
		Type:                LoanSmall,
		Name:                "Starter Loan",
		Description:         "Short-term working capital for a new venture",
		MinAmountCents:      1_000 * CentsPerDollar,
		MaxAmountCents:      10_000 * CentsPerDollar,
		BaseAnnualRate:      0.08,
		TermMonths:          12,
		CreditScoreRequired: 500,
	},
	{
		Type:                LoanMedium,
		Name:                "Growth Loan",
		Description:         "Mid-size financing for expansion",
		MinAmountCents:      10_000 * CentsPerDollar,
		MaxAmountCents:      100_000 * CentsPerDollar,
		BaseAnnualRate:      0.065,
		TermMonths:          36,
		CreditScoreRequired: 600,
	},
	{
		Type:                LoanLarge,
		Name:                "Empire Loan",
		Description:         "Heavy capital for serious operators",
		MinAmountCents:      100_000 * CentsPerDollar,
		MaxAmountCents:      1_000_000 * CentsPerDollar,
		BaseAnnualRate:      0.055,
		TermMonths:          60,
		CreditScoreRequired: 680,
	},
	{
		Type:                LoanEmergency,
		Name:                "Emergency Credit",
		Description:         "Fast cash, steep rate, no questions",
		MinAmountCents:      500 * CentsPerDollar,
		MaxAmountCents:      5_000 * CentsPerDollar,
		BaseAnnualRate:      0.15,
		TermMonths:          6,
		CreditScoreRequired: 300,
	},
}

// LoanOffers returns the immutable offer catalog.
func LoanOffers() []LoanOffer {
	out := make([]LoanOffer, len(loanOffers))
	copy(out, loanOffers)
	return out
}

func OfferByType(loanType string) (LoanOffer, error) {
	t := LoanType(strings.ToLower(strings.TrimSpace(loanType)))
	for _, offer := range loanOffers {
		if offer.Type == t {
			return offer, nil
		}
	}
	return LoanOffer{}, fmt.Errorf("unknown loan type: %s", loanType)
}

// CreditMultiplier converts a credit score into a rate penalty factor.
// Lower score means a higher multiplier, clamped to [0.5, 2.0].
func CreditMultiplier(score int) float64 {
	return clampFloat(float64(MaxCreditScore-score)/350.0, 0.5, 2.0)
}

func AdjustedAnnualRate(offer LoanOffer, score int) float64 {
	return offer.BaseAnnualRate * (1 + CreditMultiplier(score)*0.5)
}

// MonthlyPaymentCents computes the fixed amortized payment. A zero monthly
// rate degenerates to straight principal division.
func MonthlyPaymentCents(amountCents int64, annualRate float64, termMonths int) int64 {
	if termMonths <= 0 {
		return amountCents
	}
	monthlyRate := annualRate / 12
	if monthlyRate <= 1e-9 {
		return int64(math.Round(float64(amountCents) / float64(termMonths)))
	}
	amount := float64(amountCents)
	payment := amount * monthlyRate / (1 - math.Pow(1+monthlyRate, -float64(termMonths)))
	return int64(math.Round(payment))
}

type LoanQuote struct {
	Offer               LoanOffer `json:"offer"`
	AmountCents         int64     `json:"amount_cents"`
	AdjustedRate        float64   `json:"adjusted_rate"`
	MonthlyPaymentCents int64     `json:"monthly_payment_cents"`
	TotalRepaymentCents int64     `json:"total_repayment_cents"`
}

// QuoteLoan validates a loan request against an offer and prices it.
// Rejections are explicit; amounts are never silently clamped.
func QuoteLoan(offer LoanOffer, creditScore int, amountCents int64) (LoanQuote, error) {
	if creditScore < offer.CreditScoreRequired {
		return LoanQuote{}, fmt.Errorf("%w: score %d, need %d", ErrCreditTooLow, creditScore, offer.CreditScoreRequired)
	}
	if amountCents < offer.MinAmountCents || amountCents > offer.MaxAmountCents {
		return LoanQuote{}, fmt.Errorf("%w: %d cents, offer range [%d, %d]",
			ErrAmountOutOfRange, amountCents, offer.MinAmountCents, offer.MaxAmountCents)
	}
	rate := AdjustedAnnualRate(offer, creditScore)
	monthly := MonthlyPaymentCents(amountCents, rate, offer.TermMonths)
	return LoanQuote{
		Offer:               offer,
		AmountCents:         amountCents,
		AdjustedRate:        rate,
		MonthlyPaymentCents: monthly,
		TotalRepaymentCents: monthly * int64(offer.TermMonths),
	}, nil
}

type Loan struct {
	ID                  int64      `json:"id"`
	Type                LoanType   `json:"type"`
	BalanceCents        int64      `json:"balance_cents"`
	OriginalCents       int64      `json:"original_cents"`
	AnnualRate          float64    `json:"annual_rate"`
	MonthlyPaymentCents int64      `json:"monthly_payment_cents"`
	TotalPayments       int        `json:"total_payments"`
	RemainingPayments   int        `json:"remaining_payments"`
	MissedPayments      int        `json:"missed_payments"`
	Status              LoanStatus `json:"status"`
	TakenAt             time.Time  `json:"taken_at"`
}

// NewLoan materializes an accepted quote into a loan record.
func NewLoan(q LoanQuote, takenAt time.Time) Loan {
	return Loan{
		Type:                q.Offer.Type,
		BalanceCents:        q.AmountCents,
		OriginalCents:       q.AmountCents,
		AnnualRate:          q.AdjustedRate,
		MonthlyPaymentCents: q.MonthlyPaymentCents,
		TotalPayments:       q.Offer.TermMonths,
		RemainingPayments:   q.Offer.TermMonths,
		MissedPayments:      0,
		Status:              LoanActive,
		TakenAt:             takenAt,
	}
}

// ApplyLoanPayment retires part of a loan's payoff balance. payCents <= 0
// means one regular monthly payment; an explicit amount is capped at the
// remaining balance. The caller is responsible for the cash precondition.
// Returns the updated loan and the amount actually paid.
func ApplyLoanPayment(loan Loan, payCents int64) (Loan, int64, error) {
	if loan.Status != LoanActive {
		return loan, 0, ErrLoanNotActive
	}
	if payCents <= 0 {
		payCents = loan.MonthlyPaymentCents
	}
	if payCents > loan.BalanceCents {
		payCents = loan.BalanceCents
	}
	loan.BalanceCents -= payCents
	if loan.BalanceCents == 0 {
		loan.RemainingPayments = 0
		loan.Status = LoanPaidOff
		return loan, payCents, nil
	}
	if loan.MonthlyPaymentCents > 0 {
		remaining := int(math.Ceil(float64(loan.BalanceCents) / float64(loan.MonthlyPaymentCents)))
		if remaining < loan.RemainingPayments {
			loan.RemainingPayments = remaining
		} else if loan.RemainingPayments > 0 {
			loan.RemainingPayments--
		}
	}
	if loan.RemainingPayments < 1 {
		loan.RemainingPayments = 1
	}
	return loan, payCents, nil
}

// RecordMissedPayment bumps the delinquency counter and flips the loan to
// defaulted once the threshold is crossed.
func RecordMissedPayment(loan Loan) Loan {
	if loan.Status != LoanActive {
		return loan
	}
	loan.MissedPayments++
	if loan.MissedPayments >= MissedPaymentDefaultThreshold {
		loan.Status = LoanDefaulted
	}
	return loan
}
