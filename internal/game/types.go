package game

import "time"

type Dashboard struct {
	CashCents        int64         `json:"cash_cents"`
	CreditScore      int           `json:"credit_score"`
	CreditLabel      string        `json:"credit_label"`
	NetWorthCents    int64         `json:"net_worth_cents"`
	PlaySeconds      int64         `json:"play_seconds"`
	Loans            []LoanView    `json:"loans"`
	Companies        []CompanyView `json:"companies"`
	Holdings         []HoldingView `json:"holdings"`
	ActiveProjects   int           `json:"active_projects"`
	ReleasedProjects int           `json:"released_projects"`
}

type LoanView struct {
	ID                  int64     `json:"id"`
	Type                string    `json:"type"`
	BalanceCents        int64     `json:"balance_cents"`
	OriginalCents       int64     `json:"original_cents"`
	AnnualRate          float64   `json:"annual_rate"`
	MonthlyPaymentCents int64     `json:"monthly_payment_cents"`
	TotalPayments       int       `json:"total_payments"`
	RemainingPayments   int       `json:"remaining_payments"`
	MissedPayments      int       `json:"missed_payments"`
	Status              string    `json:"status"`
	TakenAt             time.Time `json:"taken_at"`
}

type CompanyView struct {
	ID                  int64   `json:"id"`
	Name                string  `json:"name"`
	Industry            string  `json:"industry"`
	Level               int32   `json:"level"`
	MarketValueCents    int64   `json:"market_value_cents"`
	IncomePerTickCents  int64   `json:"income_per_tick_cents"`
	SharesOwnedPct      float64 `json:"shares_owned_pct"`
	UpgradeCostCents    int64   `json:"upgrade_cost_cents"`
	MoviesProduced      int32   `json:"movies_produced"`
	TotalBoxOfficeCents int64   `json:"total_box_office_cents"`
}

type RealCompanyView struct {
	Ticker           string  `json:"ticker"`
	Name             string  `json:"name"`
	Volatility       string  `json:"volatility"`
	MarketValueCents int64   `json:"market_value_cents"`
	SharesOwnedPct   float64 `json:"shares_owned_pct"`
}

type RealCompanyDetail struct {
	RealCompanyView
	Series []ValuePoint `json:"series"`
}

type ValuePoint struct {
	TickAt     time.Time `json:"tick_at"`
	ValueCents int64     `json:"value_cents"`
}

type HoldingView struct {
	Ticker           string  `json:"ticker"`
	Name             string  `json:"name"`
	SharesOwnedPct   float64 `json:"shares_owned_pct"`
	MarketValueCents int64   `json:"market_value_cents"`
	StakeValueCents  int64   `json:"stake_value_cents"`
}

type ProjectView struct {
	ID             int64     `json:"id"`
	CompanyID      int64     `json:"company_id"`
	Title          string    `json:"title"`
	Genre          string    `json:"genre"`
	Type           string    `json:"type"`
	BudgetCents    int64     `json:"budget_cents"`
	BudgetCategory string    `json:"budget_category"`
	ReleaseAt      time.Time `json:"release_at"`
	Status         string    `json:"status"`
	GrossCents     int64     `json:"gross_cents"`
	Outcome        string    `json:"outcome,omitempty"`
	AutoGenerated  bool      `json:"auto_generated"`
}

type SaveSlotView struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	LastPlayed    time.Time `json:"last_played"`
	NetWorthCents int64     `json:"net_worth_cents"`
	Companies     int       `json:"companies"`
	PlaySeconds   int64     `json:"play_seconds"`
}

type TakeLoanInput struct {
	UserID         string
	LoanType       string
	AmountCents    int64
	IdempotencyKey string
}

type RepayLoanInput struct {
	UserID         string
	LoanID         int64
	AmountCents    int64 // 0 means one monthly payment
	IdempotencyKey string
}

type CreateCompanyInput struct {
	UserID         string
	Name           string
	Industry       string
	IdempotencyKey string
}

type TradeVentureInput struct {
	UserID         string
	CompanyID      int64
	Side           string
	Pct            float64
	IdempotencyKey string
}

type TradeRealInput struct {
	UserID         string
	Ticker         string
	Side           string
	Pct            float64
	IdempotencyKey string
}

type StartProductionInput struct {
	UserID         string
	CompanyID      int64
	Title          string
	Genre          string
	ProjectType    string
	BudgetCents    int64
	AutoGenerated  bool
	IdempotencyKey string
}

type WriteSaveSlotInput struct {
	UserID string
	SlotID string
	Name   string
}
