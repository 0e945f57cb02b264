package game

import (
	"errors"
	"testing"
	"time"
)

func TestCreditMultiplierBounds(t *testing.T) {
	tests := []struct {
		score int
		want  float64
	}{
		{score: MaxCreditScore, want: 0.5},
		{score: 675, want: 0.5},
		{score: 500, want: 1.0},
		{score: MinCreditScore, want: (850.0 - 300.0) / 350.0},
	}
	for _, tc := range tests {
		got := CreditMultiplier(tc.score)
		if diff := got - tc.want; diff > 1e-9 || diff < -1e-9 {
			t.Fatalf("score=%d got=%f want=%f", tc.score, got, tc.want)
		}
	}
}

func TestQuoteLoanPerfectCredit(t *testing.T) {
	offer, err := OfferByType("small")
	if err != nil {
		t.Fatalf("offer: %v", err)
	}
	quote, err := QuoteLoan(offer, 850, 10_000*CentsPerDollar)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if diff := quote.AdjustedRate - 0.10; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("adjusted rate got %f want 0.10", quote.AdjustedRate)
	}
	if quote.MonthlyPaymentCents != 87_916 {
		t.Fatalf("monthly payment got %d want 87916", quote.MonthlyPaymentCents)
	}
	if quote.TotalRepaymentCents != 87_916*12 {
		t.Fatalf("total repayment got %d", quote.TotalRepaymentCents)
	}
}

func TestAdjustedRateWorsensWithScore(t *testing.T) {
	offer, err := OfferByType("medium")
	if err != nil {
		t.Fatalf("offer: %v", err)
	}
	prev := 0.0
	for _, score := range []int{850, 750, 650, 600} {
		rate := AdjustedAnnualRate(offer, score)
		if rate < prev {
			t.Fatalf("rate at score %d is %f, below %f for a better score", score, rate, prev)
		}
		prev = rate
	}
}

func TestQuoteLoanRejections(t *testing.T) {
	offer, err := OfferByType("large")
	if err != nil {
		t.Fatalf("offer: %v", err)
	}
	if _, err := QuoteLoan(offer, 650, 200_000*CentsPerDollar); !errors.Is(err, ErrCreditTooLow) {
		t.Fatalf("expected ErrCreditTooLow, got %v", err)
	}
	if _, err := QuoteLoan(offer, 700, 50_000*CentsPerDollar); !errors.Is(err, ErrAmountOutOfRange) {
		t.Fatalf("expected ErrAmountOutOfRange below minimum, got %v", err)
	}
	if _, err := QuoteLoan(offer, 700, 2_000_000*CentsPerDollar); !errors.Is(err, ErrAmountOutOfRange) {
		t.Fatalf("expected ErrAmountOutOfRange above maximum, got %v", err)
	}
}

func TestMonthlyPaymentCoversPrincipal(t *testing.T) {
	for _, offer := range LoanOffers() {
		amount := offer.MaxAmountCents
		rate := AdjustedAnnualRate(offer, 700)
		monthly := MonthlyPaymentCents(amount, rate, offer.TermMonths)
		if monthly*int64(offer.TermMonths) < amount {
			t.Fatalf("%s: %d payments of %d do not cover principal %d",
				offer.Type, offer.TermMonths, monthly, amount)
		}
	}
}

func TestLoanRepaysToZeroWithinTerm(t *testing.T) {
	offer, err := OfferByType("small")
	if err != nil {
		t.Fatalf("offer: %v", err)
	}
	quote, err := QuoteLoan(offer, 720, 5_000*CentsPerDollar)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	loan := NewLoan(quote, time.Now())

	payments := 0
	for loan.Status == LoanActive {
		if payments > offer.TermMonths {
			t.Fatalf("loan not retired after %d payments, balance %d", payments, loan.BalanceCents)
		}
		var paid int64
		loan, paid, err = ApplyLoanPayment(loan, 0)
		if err != nil {
			t.Fatalf("payment %d: %v", payments, err)
		}
		if paid <= 0 {
			t.Fatalf("payment %d paid nothing", payments)
		}
		payments++
	}
	if loan.Status != LoanPaidOff {
		t.Fatalf("final status %s", loan.Status)
	}
	if loan.BalanceCents != 0 || loan.RemainingPayments != 0 {
		t.Fatalf("paid-off loan has balance %d, remaining %d", loan.BalanceCents, loan.RemainingPayments)
	}
}

func TestOverpaymentIsCappedAtBalance(t *testing.T) {
	offer, _ := OfferByType("emergency")
	quote, err := QuoteLoan(offer, 650, 1_000*CentsPerDollar)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	loan := NewLoan(quote, time.Now())
	loan, paid, err := ApplyLoanPayment(loan, 50_000*CentsPerDollar)
	if err != nil {
		t.Fatalf("payment: %v", err)
	}
	if paid != 1_000*CentsPerDollar {
		t.Fatalf("paid %d, want exactly the balance", paid)
	}
	if loan.Status != LoanPaidOff {
		t.Fatalf("status %s after full payoff", loan.Status)
	}
}

func TestPaymentOnClosedLoan(t *testing.T) {
	loan := Loan{Status: LoanDefaulted, BalanceCents: 500}
	if _, _, err := ApplyLoanPayment(loan, 0); !errors.Is(err, ErrLoanNotActive) {
		t.Fatalf("expected ErrLoanNotActive, got %v", err)
	}
}

func TestMissedPaymentsDefault(t *testing.T) {
	loan := Loan{Status: LoanActive, BalanceCents: 10_000}
	for i := 0; i < MissedPaymentDefaultThreshold-1; i++ {
		loan = RecordMissedPayment(loan)
		if loan.Status != LoanActive {
			t.Fatalf("defaulted after %d misses", i+1)
		}
	}
	loan = RecordMissedPayment(loan)
	if loan.Status != LoanDefaulted {
		t.Fatalf("status %s after %d misses", loan.Status, MissedPaymentDefaultThreshold)
	}
}
