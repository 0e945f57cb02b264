package game

// Credit score adjustments applied by the engine while servicing loans.
const (
	CreditDeltaOnTimePayment = 5
	CreditDeltaMissedPayment = -35
	CreditDeltaPayoff        = 15
)

// ScoreLabel buckets a credit score into its display band. Only the
// thresholds are load-bearing; the labels are presentation policy.
func ScoreLabel(score int) string {
	switch {
	case score >= 800:
		return "Excellent"
	case score >= 740:
		return "Very Good"
	case score >= 670:
		return "Good"
	case score >= 580:
		return "Fair"
	default:
		return "Poor"
	}
}

func ClampCreditScore(score int) int {
	if score < MinCreditScore {
		return MinCreditScore
	}
	if score > MaxCreditScore {
		return MaxCreditScore
	}
	return score
}

func ApplyCreditDelta(score, delta int) int {
	return ClampCreditScore(score + delta)
}
