package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	mathrand "math/rand"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var usernameRE = regexp.MustCompile(`^[a-zA-Z0-9_]{3,24}$`)

var blockedNameFragments = []string{
	"admin",
	"mod",
	"support",
	"shit",
	"fuck",
	"bitch",
	"nazi",
}

type Service struct {
	db   *pgxpool.Pool
	log  *slog.Logger
	mu   sync.Mutex
	rand *mathrand.Rand
}

func NewService(db *pgxpool.Pool, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		db:   db,
		log:  logger,
		rand: mathrand.New(mathrand.NewSource(time.Now().UnixNano())),
	}
}

// RegisterPlayer creates credentials plus the starting wallet. The password
// arrives already hashed; this layer never sees plaintext.
func (s *Service) RegisterPlayer(ctx context.Context, email, username, passwordHash string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return "", fmt.Errorf("a valid email is required")
	}
	username = strings.TrimSpace(username)
	if username == "" {
		username = usernameFromEmail(email)
	}
	if !usernameRE.MatchString(username) {
		username = sanitizeUsername(username)
	}
	if err := validateEntityName(username); err != nil {
		return "", err
	}

	userID := uuid.NewString()
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return "", err
	}
	defer tx.Rollback(ctx)

	cmd, err := tx.Exec(ctx, `
		INSERT INTO users.profiles (user_id, email, username, password_hash)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (email) DO NOTHING
	`, userID, email, username, passwordHash)
	if err != nil {
		return "", err
	}
	if cmd.RowsAffected() == 0 {
		return "", fmt.Errorf("email already registered")
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO game.wallets (user_id, cash_cents, credit_score, net_worth_cents, play_seconds)
		VALUES ($1, $2, $3, $2, 0)
		ON CONFLICT (user_id) DO NOTHING
	`, userID, StartingCashCents, StartingCreditScore)
	if err != nil {
		return "", err
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO game.auto_settings (user_id, enabled, min_cash_reserve_cents, max_investment_pct, preferred_type, aggressiveness)
		VALUES ($1, false, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO NOTHING
	`, userID, DefaultAutoSettings().MinCashReserveCents, DefaultAutoSettings().MaxInvestmentPct,
		DefaultAutoSettings().PreferredType, DefaultAutoSettings().Aggressiveness); err != nil {
		return "", err
	}
	if err := tx.Commit(ctx); err != nil {
		return "", err
	}
	return userID, nil
}

// Credentials returns the stored hash for a login attempt.
func (s *Service) Credentials(ctx context.Context, email string) (userID, passwordHash string, err error) {
	err = s.db.QueryRow(ctx, `
		SELECT user_id, password_hash
		FROM users.profiles
		WHERE email = $1
	`, strings.ToLower(strings.TrimSpace(email))).Scan(&userID, &passwordHash)
	if err == pgx.ErrNoRows {
		return "", "", ErrUnauthorized
	}
	return userID, passwordHash, err
}

// EnsurePlayer backfills wallet rows for accounts created before a schema
// addition. Safe to call on every authenticated request.
func (s *Service) EnsurePlayer(ctx context.Context, userID string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO game.wallets (user_id, cash_cents, credit_score, net_worth_cents, play_seconds)
		VALUES ($1, $2, $3, $2, 0)
		ON CONFLICT (user_id) DO NOTHING
	`, userID, StartingCashCents, StartingCreditScore)
	return err
}

func (s *Service) SeedDefaults(ctx context.Context) error {
	var count int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(1) FROM game.real_companies`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	seed := []struct {
		Ticker     string
		Name       string
		Volatility string
		Value      int64
	}{
		{"ORBITL", "Orbital Pictures", "medium", 850_000_000 * CentsPerDollar},
		{"STRMLN", "Streamline Media", "high", 1_200_000_000 * CentsPerDollar},
		{"GRNDST", "Grandstand Studios", "low", 2_400_000_000 * CentsPerDollar},
		{"NOVELT", "Novelty Networks", "medium", 640_000_000 * CentsPerDollar},
		{"PAPERM", "Papermoon Entertainment", "low", 1_750_000_000 * CentsPerDollar},
		{"KINETC", "Kinetic Broadcasting", "high", 430_000_000 * CentsPerDollar},
		{"LUMENF", "Lumen Features", "medium", 980_000_000 * CentsPerDollar},
		{"ATLASM", "Atlas Multiplex", "low", 3_100_000_000 * CentsPerDollar},
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, row := range seed {
		_, err := tx.Exec(ctx, `
			INSERT INTO game.real_companies (ticker, name, volatility, market_value_cents, anchor_value_cents)
			VALUES ($1, $2, $3, $4, $4)
		`, row.Ticker, row.Name, row.Volatility, row.Value)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (s *Service) Dashboard(ctx context.Context, userID string) (Dashboard, error) {
	var out Dashboard
	var score int
	err := s.db.QueryRow(ctx, `
		SELECT cash_cents, credit_score, net_worth_cents, play_seconds
		FROM game.wallets
		WHERE user_id = $1
	`, userID).Scan(&out.CashCents, &score, &out.NetWorthCents, &out.PlaySeconds)
	if err == pgx.ErrNoRows {
		return out, ErrNotFound
	}
	if err != nil {
		return out, err
	}
	out.CreditScore = score
	out.CreditLabel = ScoreLabel(score)

	loans, err := s.ListLoans(ctx, userID, false)
	if err != nil {
		return out, err
	}
	out.Loans = loans

	companies, err := s.ListCompanies(ctx, userID)
	if err != nil {
		return out, err
	}
	out.Companies = companies

	hRows, err := s.db.Query(ctx, `
		SELECT h.ticker, rc.name, h.shares_owned_pct, rc.market_value_cents
		FROM game.real_holdings h
		JOIN game.real_companies rc ON rc.ticker = h.ticker
		WHERE h.user_id = $1 AND h.shares_owned_pct > 0
		ORDER BY h.ticker
	`, userID)
	if err != nil {
		return out, err
	}
	defer hRows.Close()
	for hRows.Next() {
		var h HoldingView
		if err := hRows.Scan(&h.Ticker, &h.Name, &h.SharesOwnedPct, &h.MarketValueCents); err != nil {
			return out, err
		}
		h.StakeValueCents = int64(math.Round(float64(h.MarketValueCents) * h.SharesOwnedPct / 100))
		out.Holdings = append(out.Holdings, h)
	}
	if err := hRows.Err(); err != nil {
		return out, err
	}

	err = s.db.QueryRow(ctx, `
		SELECT COUNT(1) FILTER (WHERE status = 'in_production'),
		       COUNT(1) FILTER (WHERE status = 'released')
		FROM game.projects
		WHERE user_id = $1
	`, userID).Scan(&out.ActiveProjects, &out.ReleasedProjects)
	return out, err
}

func (s *Service) ListLoans(ctx context.Context, userID string, includeClosed bool) ([]LoanView, error) {
	query := `
		SELECT id, loan_type, balance_cents, original_cents, annual_rate,
		       monthly_payment_cents, total_payments, remaining_payments,
		       missed_payments, status, taken_at
		FROM game.loans
		WHERE user_id = $1
	`
	if !includeClosed {
		query += " AND status = 'active'"
	}
	query += " ORDER BY id"
	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []LoanView
	for rows.Next() {
		var v LoanView
		if err := rows.Scan(&v.ID, &v.Type, &v.BalanceCents, &v.OriginalCents, &v.AnnualRate,
			&v.MonthlyPaymentCents, &v.TotalPayments, &v.RemainingPayments,
			&v.MissedPayments, &v.Status, &v.TakenAt); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *Service) QuoteLoanOffer(ctx context.Context, userID, loanType string, amountCents int64) (LoanQuote, error) {
	offer, err := OfferByType(loanType)
	if err != nil {
		return LoanQuote{}, err
	}
	var score int
	if err := s.db.QueryRow(ctx, `
		SELECT credit_score FROM game.wallets WHERE user_id = $1
	`, userID).Scan(&score); err != nil {
		if err == pgx.ErrNoRows {
			return LoanQuote{}, ErrNotFound
		}
		return LoanQuote{}, err
	}
	return QuoteLoan(offer, score, amountCents)
}

func (s *Service) TakeLoan(ctx context.Context, in TakeLoanInput) (LoanView, error) {
	var out LoanView
	offer, err := OfferByType(in.LoanType)
	if err != nil {
		return out, err
	}

	err = s.inSerializableTx(ctx, func(tx pgx.Tx) error {
		if err := claimIdempotency(ctx, tx, in.UserID, in.IdempotencyKey, "take_loan"); err != nil {
			return err
		}

		var cash int64
		var score int
		if err := tx.QueryRow(ctx, `
			SELECT cash_cents, credit_score
			FROM game.wallets
			WHERE user_id = $1
			FOR UPDATE
		`, in.UserID).Scan(&cash, &score); err != nil {
			if err == pgx.ErrNoRows {
				return ErrNotFound
			}
			return err
		}

		quote, err := QuoteLoan(offer, score, in.AmountCents)
		if err != nil {
			return err
		}
		loan := NewLoan(quote, time.Now().UTC())

		if err := tx.QueryRow(ctx, `
			INSERT INTO game.loans
			    (user_id, loan_type, balance_cents, original_cents, annual_rate,
			     monthly_payment_cents, total_payments, remaining_payments,
			     missed_payments, status, taken_at, next_due_at)
			VALUES ($1, $2, $3, $3, $4, $5, $6, $6, 0, 'active', $7, $7 + make_interval(secs => $8))
			RETURNING id
		`, in.UserID, loan.Type, loan.BalanceCents, loan.AnnualRate,
			loan.MonthlyPaymentCents, loan.TotalPayments, loan.TakenAt,
			LoanPaymentInterval.Seconds()).Scan(&out.ID); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `
			UPDATE game.wallets
			SET cash_cents = cash_cents + $1, updated_at = now()
			WHERE user_id = $2
		`, loan.BalanceCents, in.UserID); err != nil {
			return err
		}
		if err := appendLedgerEntries(ctx, tx, in.UserID, "loan_disbursement", loan.BalanceCents, 0); err != nil {
			return err
		}
		if err := updateNetWorthTx(ctx, tx, in.UserID); err != nil {
			return err
		}

		out = LoanView{
			ID:                  out.ID,
			Type:                string(loan.Type),
			BalanceCents:        loan.BalanceCents,
			OriginalCents:       loan.OriginalCents,
			AnnualRate:          loan.AnnualRate,
			MonthlyPaymentCents: loan.MonthlyPaymentCents,
			TotalPayments:       loan.TotalPayments,
			RemainingPayments:   loan.RemainingPayments,
			Status:              string(loan.Status),
			TakenAt:             loan.TakenAt,
		}
		return nil
	})
	return out, err
}

func (s *Service) RepayLoan(ctx context.Context, in RepayLoanInput) (LoanView, error) {
	var out LoanView
	err := s.inSerializableTx(ctx, func(tx pgx.Tx) error {
		if err := claimIdempotency(ctx, tx, in.UserID, in.IdempotencyKey, "repay_loan"); err != nil {
			return err
		}

		loan, err := loanForUpdateTx(ctx, tx, in.UserID, in.LoanID)
		if err != nil {
			return err
		}

		var cash int64
		var score int
		if err := tx.QueryRow(ctx, `
			SELECT cash_cents, credit_score
			FROM game.wallets
			WHERE user_id = $1
			FOR UPDATE
		`, in.UserID).Scan(&cash, &score); err != nil {
			return err
		}

		updated, paid, err := ApplyLoanPayment(loan, in.AmountCents)
		if err != nil {
			return err
		}
		if paid > cash {
			return fmt.Errorf("%w: need %d cents, have %d", ErrInsufficientFunds, paid, cash)
		}

		delta := CreditDeltaOnTimePayment
		if updated.Status == LoanPaidOff {
			delta += CreditDeltaPayoff
		}
		score = ApplyCreditDelta(score, delta)

		if _, err := tx.Exec(ctx, `
			UPDATE game.loans
			SET balance_cents = $1, remaining_payments = $2, status = $3, updated_at = now()
			WHERE id = $4
		`, updated.BalanceCents, updated.RemainingPayments, updated.Status, in.LoanID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			UPDATE game.wallets
			SET cash_cents = cash_cents - $1, credit_score = $2, updated_at = now()
			WHERE user_id = $3
		`, paid, score, in.UserID); err != nil {
			return err
		}
		if err := appendLedgerEntries(ctx, tx, in.UserID, "loan_payment", paid, 0); err != nil {
			return err
		}
		if err := updateNetWorthTx(ctx, tx, in.UserID); err != nil {
			return err
		}

		out = loanView(in.LoanID, updated)
		return nil
	})
	return out, err
}

func (s *Service) CreateCompany(ctx context.Context, in CreateCompanyInput) (int64, error) {
	var id int64
	in.Name = strings.TrimSpace(in.Name)
	in.Industry = strings.ToLower(strings.TrimSpace(in.Industry))
	if in.Name == "" {
		return 0, fmt.Errorf("company name is required")
	}
	if err := validateEntityName(in.Name); err != nil {
		return 0, err
	}
	if in.Industry == "" {
		in.Industry = "entertainment"
	}

	err := s.inSerializableTx(ctx, func(tx pgx.Tx) error {
		if err := claimIdempotency(ctx, tx, in.UserID, in.IdempotencyKey, "create_company"); err != nil {
			return err
		}

		var cash int64
		if err := tx.QueryRow(ctx, `
			SELECT cash_cents FROM game.wallets WHERE user_id = $1 FOR UPDATE
		`, in.UserID).Scan(&cash); err != nil {
			return err
		}
		if cash < CompanyFoundingCostCents {
			return fmt.Errorf("%w: founding a company costs %d cents", ErrInsufficientFunds, CompanyFoundingCostCents)
		}

		if err := tx.QueryRow(ctx, `
			INSERT INTO game.companies
			    (user_id, name, industry, level, market_value_cents, income_per_tick_cents, shares_owned_pct)
			VALUES ($1, $2, $3, 1, $4, $5, 100)
			RETURNING id
		`, in.UserID, in.Name, in.Industry, CompanyBaseValueCents, CompanyBaseIncomeCents).Scan(&id); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			UPDATE game.wallets
			SET cash_cents = cash_cents - $1, updated_at = now()
			WHERE user_id = $2
		`, CompanyFoundingCostCents, in.UserID); err != nil {
			return err
		}
		if err := appendLedgerEntries(ctx, tx, in.UserID, "company_founding", CompanyFoundingCostCents, 0); err != nil {
			return err
		}
		return updateNetWorthTx(ctx, tx, in.UserID)
	})
	return id, err
}

func (s *Service) ListCompanies(ctx context.Context, userID string) ([]CompanyView, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, industry, level, market_value_cents, income_per_tick_cents,
		       shares_owned_pct, movies_produced, total_box_office_cents
		FROM game.companies
		WHERE user_id = $1
		ORDER BY id
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []CompanyView
	for rows.Next() {
		var v CompanyView
		if err := rows.Scan(&v.ID, &v.Name, &v.Industry, &v.Level, &v.MarketValueCents,
			&v.IncomePerTickCents, &v.SharesOwnedPct, &v.MoviesProduced, &v.TotalBoxOfficeCents); err != nil {
			return nil, err
		}
		v.UpgradeCostCents = UpgradeCostCents(v.Level)
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *Service) UpgradeCompany(ctx context.Context, userID string, companyID int64, idem string) error {
	return s.inSerializableTx(ctx, func(tx pgx.Tx) error {
		if err := claimIdempotency(ctx, tx, userID, idem, "upgrade_company"); err != nil {
			return err
		}

		var level int32
		var value, income int64
		err := tx.QueryRow(ctx, `
			SELECT level, market_value_cents, income_per_tick_cents
			FROM game.companies
			WHERE id = $1 AND user_id = $2
			FOR UPDATE
		`, companyID, userID).Scan(&level, &value, &income)
		if err == pgx.ErrNoRows {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		cost := UpgradeCostCents(level)
		var cash int64
		if err := tx.QueryRow(ctx, `
			SELECT cash_cents FROM game.wallets WHERE user_id = $1 FOR UPDATE
		`, userID).Scan(&cash); err != nil {
			return err
		}
		if cash < cost {
			return fmt.Errorf("%w: upgrade costs %d cents", ErrInsufficientFunds, cost)
		}

		nextValue, nextIncome := UpgradedCompany(value, income)
		if _, err := tx.Exec(ctx, `
			UPDATE game.companies
			SET level = level + 1, market_value_cents = $1, income_per_tick_cents = $2, updated_at = now()
			WHERE id = $3
		`, nextValue, nextIncome, companyID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			UPDATE game.wallets
			SET cash_cents = cash_cents - $1, updated_at = now()
			WHERE user_id = $2
		`, cost, userID); err != nil {
			return err
		}
		if err := appendLedgerEntries(ctx, tx, userID, "company_upgrade", cost, 0); err != nil {
			return err
		}
		return updateNetWorthTx(ctx, tx, userID)
	})
}

// TradeVentureShares buys back or sells down the player's stake in one of
// their own companies. Selling is fee-free; ownership stays within [0, 100].
func (s *Service) TradeVentureShares(ctx context.Context, in TradeVentureInput) (TradeQuote, error) {
	var out TradeQuote
	in.Side = strings.ToLower(strings.TrimSpace(in.Side))
	if in.Side != "buy" && in.Side != "sell" {
		return out, fmt.Errorf("side must be buy or sell")
	}
	if !AllowedTradeStep(in.Pct, VentureTradeSteps) {
		return out, fmt.Errorf("%w: venture trades move in steps of %v", ErrInvalidPercentage, VentureTradeSteps)
	}

	err := s.inSerializableTx(ctx, func(tx pgx.Tx) error {
		if err := claimIdempotency(ctx, tx, in.UserID, in.IdempotencyKey, "trade_venture"); err != nil {
			return err
		}

		var owned float64
		var value int64
		err := tx.QueryRow(ctx, `
			SELECT shares_owned_pct, market_value_cents
			FROM game.companies
			WHERE id = $1 AND user_id = $2
			FOR UPDATE
		`, in.CompanyID, in.UserID).Scan(&owned, &value)
		if err == pgx.ErrNoRows {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		var cash int64
		if err := tx.QueryRow(ctx, `
			SELECT cash_cents FROM game.wallets WHERE user_id = $1 FOR UPDATE
		`, in.UserID).Scan(&cash); err != nil {
			return err
		}

		var quote TradeQuote
		var cashDelta int64
		switch in.Side {
		case "buy":
			quote, err = QuoteBuy(owned, value, in.Pct)
			if err != nil {
				return err
			}
			if quote.NetCents > cash {
				return fmt.Errorf("%w: need %d cents, have %d", ErrInsufficientFunds, quote.NetCents, cash)
			}
			cashDelta = -quote.NetCents
		case "sell":
			quote, err = QuoteSell(owned, value, in.Pct, VentureSellFee)
			if err != nil {
				return err
			}
			cashDelta = quote.NetCents
		}

		if _, err := tx.Exec(ctx, `
			UPDATE game.companies
			SET shares_owned_pct = $1, updated_at = now()
			WHERE id = $2
		`, quote.NewOwnershipPct, in.CompanyID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			UPDATE game.wallets
			SET cash_cents = cash_cents + $1, updated_at = now()
			WHERE user_id = $2
		`, cashDelta, in.UserID); err != nil {
			return err
		}
		if err := appendLedgerEntries(ctx, tx, in.UserID, "venture_"+in.Side, quote.GrossCents, quote.FeeCents); err != nil {
			return err
		}
		if err := updateNetWorthTx(ctx, tx, in.UserID); err != nil {
			return err
		}
		out = quote
		return nil
	})
	return out, err
}

func (s *Service) ListRealCompanies(ctx context.Context, userID string) ([]RealCompanyView, error) {
	rows, err := s.db.Query(ctx, `
		SELECT rc.ticker, rc.name, rc.volatility, rc.market_value_cents,
		       COALESCE(h.shares_owned_pct, 0)
		FROM game.real_companies rc
		LEFT JOIN game.real_holdings h ON h.ticker = rc.ticker AND h.user_id = $1
		ORDER BY rc.ticker
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []RealCompanyView
	for rows.Next() {
		var v RealCompanyView
		if err := rows.Scan(&v.Ticker, &v.Name, &v.Volatility, &v.MarketValueCents, &v.SharesOwnedPct); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *Service) RealCompanyDetail(ctx context.Context, userID, ticker string) (RealCompanyDetail, error) {
	var out RealCompanyDetail
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	err := s.db.QueryRow(ctx, `
		SELECT rc.ticker, rc.name, rc.volatility, rc.market_value_cents,
		       COALESCE(h.shares_owned_pct, 0)
		FROM game.real_companies rc
		LEFT JOIN game.real_holdings h ON h.ticker = rc.ticker AND h.user_id = $1
		WHERE rc.ticker = $2
	`, userID, ticker).Scan(&out.Ticker, &out.Name, &out.Volatility, &out.MarketValueCents, &out.SharesOwnedPct)
	if err == pgx.ErrNoRows {
		return out, ErrNotFound
	}
	if err != nil {
		return out, err
	}

	rows, err := s.db.Query(ctx, `
		SELECT tick_at, value_cents
		FROM game.real_prices
		WHERE ticker = $1
		ORDER BY tick_at DESC
		LIMIT 64
	`, ticker)
	if err != nil {
		return out, err
	}
	defer rows.Close()
	for rows.Next() {
		var p ValuePoint
		if err := rows.Scan(&p.TickAt, &p.ValueCents); err != nil {
			return out, err
		}
		out.Series = append(out.Series, p)
	}
	return out, rows.Err()
}

// TradeRealShares buys or sells a percentage stake in a listed company at
// its current market value. Sells pay the brokerage fee.
func (s *Service) TradeRealShares(ctx context.Context, in TradeRealInput) (TradeQuote, error) {
	var out TradeQuote
	in.Ticker = strings.ToUpper(strings.TrimSpace(in.Ticker))
	in.Side = strings.ToLower(strings.TrimSpace(in.Side))
	if in.Side != "buy" && in.Side != "sell" {
		return out, fmt.Errorf("side must be buy or sell")
	}
	if !AllowedTradeStep(in.Pct, RealCompanyTradeSteps) {
		return out, fmt.Errorf("%w: market trades move in steps of %v", ErrInvalidPercentage, RealCompanyTradeSteps)
	}

	err := s.inSerializableTx(ctx, func(tx pgx.Tx) error {
		if err := claimIdempotency(ctx, tx, in.UserID, in.IdempotencyKey, "trade_real"); err != nil {
			return err
		}

		var value int64
		err := tx.QueryRow(ctx, `
			SELECT market_value_cents
			FROM game.real_companies
			WHERE ticker = $1
			FOR UPDATE
		`, in.Ticker).Scan(&value)
		if err == pgx.ErrNoRows {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		var owned float64
		err = tx.QueryRow(ctx, `
			SELECT shares_owned_pct
			FROM game.real_holdings
			WHERE user_id = $1 AND ticker = $2
			FOR UPDATE
		`, in.UserID, in.Ticker).Scan(&owned)
		if err != nil && err != pgx.ErrNoRows {
			return err
		}

		var cash int64
		if err := tx.QueryRow(ctx, `
			SELECT cash_cents FROM game.wallets WHERE user_id = $1 FOR UPDATE
		`, in.UserID).Scan(&cash); err != nil {
			return err
		}

		var quote TradeQuote
		var cashDelta int64
		switch in.Side {
		case "buy":
			quote, err = QuoteBuy(owned, value, in.Pct)
			if err != nil {
				return err
			}
			if quote.NetCents > cash {
				return fmt.Errorf("%w: need %d cents, have %d", ErrInsufficientFunds, quote.NetCents, cash)
			}
			cashDelta = -quote.NetCents
		case "sell":
			quote, err = QuoteSell(owned, value, in.Pct, RealCompanySellFee)
			if err != nil {
				return err
			}
			cashDelta = quote.NetCents
		}

		if quote.NewOwnershipPct <= 1e-9 {
			if _, err := tx.Exec(ctx, `
				DELETE FROM game.real_holdings
				WHERE user_id = $1 AND ticker = $2
			`, in.UserID, in.Ticker); err != nil {
				return err
			}
		} else {
			if _, err := tx.Exec(ctx, `
				INSERT INTO game.real_holdings (user_id, ticker, shares_owned_pct)
				VALUES ($1, $2, $3)
				ON CONFLICT (user_id, ticker) DO UPDATE
				SET shares_owned_pct = $3, updated_at = now()
			`, in.UserID, in.Ticker, quote.NewOwnershipPct); err != nil {
				return err
			}
		}

		if _, err := tx.Exec(ctx, `
			UPDATE game.wallets
			SET cash_cents = cash_cents + $1, updated_at = now()
			WHERE user_id = $2
		`, cashDelta, in.UserID); err != nil {
			return err
		}
		if err := appendLedgerEntries(ctx, tx, in.UserID, "market_"+in.Side, quote.GrossCents, quote.FeeCents); err != nil {
			return err
		}
		if err := updateNetWorthTx(ctx, tx, in.UserID); err != nil {
			return err
		}
		out = quote
		return nil
	})
	return out, err
}

// StartProduction greenlights a project for a company the player owns. The
// budget leaves the wallet immediately; the gross lands at release.
func (s *Service) StartProduction(ctx context.Context, in StartProductionInput) (ProjectView, error) {
	var out ProjectView
	in.Title = strings.TrimSpace(in.Title)
	in.Genre = strings.ToLower(strings.TrimSpace(in.Genre))
	if in.Title == "" {
		return out, fmt.Errorf("project title is required")
	}
	if err := validateEntityName(in.Title); err != nil {
		return out, err
	}
	if in.Genre == "" {
		in.Genre = "drama"
	}
	spec, err := SpecByType(in.ProjectType)
	if err != nil {
		return out, err
	}
	if err := ValidateBudget(spec, in.BudgetCents); err != nil {
		return out, err
	}

	err = s.inSerializableTx(ctx, func(tx pgx.Tx) error {
		if err := claimIdempotency(ctx, tx, in.UserID, in.IdempotencyKey, "start_production"); err != nil {
			return err
		}

		var ownerID string
		err := tx.QueryRow(ctx, `
			SELECT user_id FROM game.companies WHERE id = $1 FOR UPDATE
		`, in.CompanyID).Scan(&ownerID)
		if err == pgx.ErrNoRows {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if ownerID != in.UserID {
			return ErrUnauthorized
		}

		var cash int64
		if err := tx.QueryRow(ctx, `
			SELECT cash_cents FROM game.wallets WHERE user_id = $1 FOR UPDATE
		`, in.UserID).Scan(&cash); err != nil {
			return err
		}
		if in.BudgetCents > cash {
			return fmt.Errorf("%w: budget %d cents, cash %d", ErrInsufficientFunds, in.BudgetCents, cash)
		}

		releaseAt := time.Now().UTC().Add(spec.ProductionTime)
		category := BudgetCategory(spec, in.BudgetCents)
		if err := tx.QueryRow(ctx, `
			INSERT INTO game.projects
			    (user_id, company_id, title, genre, project_type, budget_cents,
			     budget_category, release_at, status, gross_cents, auto_generated)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'in_production', 0, $9)
			RETURNING id
		`, in.UserID, in.CompanyID, in.Title, in.Genre, spec.Type, in.BudgetCents,
			category, releaseAt, in.AutoGenerated).Scan(&out.ID); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `
			UPDATE game.wallets
			SET cash_cents = cash_cents - $1, updated_at = now()
			WHERE user_id = $2
		`, in.BudgetCents, in.UserID); err != nil {
			return err
		}
		if err := appendLedgerEntries(ctx, tx, in.UserID, "production_budget", in.BudgetCents, 0); err != nil {
			return err
		}
		if err := updateNetWorthTx(ctx, tx, in.UserID); err != nil {
			return err
		}

		out.CompanyID = in.CompanyID
		out.Title = in.Title
		out.Genre = in.Genre
		out.Type = string(spec.Type)
		out.BudgetCents = in.BudgetCents
		out.BudgetCategory = category
		out.ReleaseAt = releaseAt
		out.Status = string(ProjectInProduction)
		out.AutoGenerated = in.AutoGenerated
		return nil
	})
	return out, err
}

func (s *Service) ListProjects(ctx context.Context, userID string) ([]ProjectView, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, company_id, title, genre, project_type, budget_cents, budget_category,
		       release_at, status, gross_cents, COALESCE(outcome, ''), auto_generated
		FROM game.projects
		WHERE user_id = $1
		ORDER BY id DESC
		LIMIT 100
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ProjectView
	for rows.Next() {
		var v ProjectView
		if err := rows.Scan(&v.ID, &v.CompanyID, &v.Title, &v.Genre, &v.Type, &v.BudgetCents,
			&v.BudgetCategory, &v.ReleaseAt, &v.Status, &v.GrossCents, &v.Outcome, &v.AutoGenerated); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *Service) AutoSettings(ctx context.Context, userID string) (AutoProductionSettings, error) {
	out := DefaultAutoSettings()
	err := s.db.QueryRow(ctx, `
		SELECT enabled, min_cash_reserve_cents, max_investment_pct, preferred_type, aggressiveness
		FROM game.auto_settings
		WHERE user_id = $1
	`, userID).Scan(&out.Enabled, &out.MinCashReserveCents, &out.MaxInvestmentPct,
		&out.PreferredType, &out.Aggressiveness)
	if err == pgx.ErrNoRows {
		return DefaultAutoSettings(), nil
	}
	return out, err
}

func (s *Service) SaveAutoSettings(ctx context.Context, userID string, settings AutoProductionSettings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO game.auto_settings
		    (user_id, enabled, min_cash_reserve_cents, max_investment_pct, preferred_type, aggressiveness)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE
		SET enabled = $2, min_cash_reserve_cents = $3, max_investment_pct = $4,
		    preferred_type = $5, aggressiveness = $6, updated_at = now()
	`, userID, settings.Enabled, settings.MinCashReserveCents, settings.MaxInvestmentPct,
		settings.PreferredType, settings.Aggressiveness)
	return err
}

// AutoPlanPreview shows the player what the next auto-production cycle
// would do with their current cash.
func (s *Service) AutoPlanPreview(ctx context.Context, userID string) (AutoPlan, error) {
	settings, err := s.AutoSettings(ctx, userID)
	if err != nil {
		return AutoPlan{}, err
	}
	var cash int64
	if err := s.db.QueryRow(ctx, `
		SELECT cash_cents FROM game.wallets WHERE user_id = $1
	`, userID).Scan(&cash); err != nil {
		if err == pgx.ErrNoRows {
			return AutoPlan{}, ErrNotFound
		}
		return AutoPlan{}, err
	}
	return PlanAutoProduction(cash, settings), nil
}

func (s *Service) ListSaveSlots(ctx context.Context, userID string) ([]SaveSlotView, error) {
	rows, err := s.db.Query(ctx, `
		SELECT slot_id, name, last_played, net_worth_cents, companies, play_seconds
		FROM game.save_slots
		WHERE user_id = $1
		ORDER BY slot_id
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SaveSlotView
	for rows.Next() {
		var v SaveSlotView
		if err := rows.Scan(&v.ID, &v.Name, &v.LastPlayed, &v.NetWorthCents, &v.Companies, &v.PlaySeconds); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// WriteSaveSlot snapshots the current wallet into a named slot.
func (s *Service) WriteSaveSlot(ctx context.Context, in WriteSaveSlotInput) (SaveSlotView, error) {
	var out SaveSlotView
	in.SlotID = strings.ToLower(strings.TrimSpace(in.SlotID))
	if in.SlotID == "" {
		in.SlotID = MainSaveSlotID
	}
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		in.Name = in.SlotID
	}

	var netWorth, playSeconds int64
	var companies int
	err := s.db.QueryRow(ctx, `
		SELECT w.net_worth_cents, w.play_seconds,
		       (SELECT COUNT(1) FROM game.companies c WHERE c.user_id = w.user_id)
		FROM game.wallets w
		WHERE w.user_id = $1
	`, in.UserID).Scan(&netWorth, &playSeconds, &companies)
	if err == pgx.ErrNoRows {
		return out, ErrNotFound
	}
	if err != nil {
		return out, err
	}

	now := time.Now().UTC()
	_, err = s.db.Exec(ctx, `
		INSERT INTO game.save_slots (user_id, slot_id, name, last_played, net_worth_cents, companies, play_seconds)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, slot_id) DO UPDATE
		SET name = $3, last_played = $4, net_worth_cents = $5, companies = $6, play_seconds = $7
	`, in.UserID, in.SlotID, in.Name, now, netWorth, companies, playSeconds)
	if err != nil {
		return out, err
	}
	return SaveSlotView{
		ID:            in.SlotID,
		Name:          in.Name,
		LastPlayed:    now,
		NetWorthCents: netWorth,
		Companies:     companies,
		PlaySeconds:   playSeconds,
	}, nil
}

func (s *Service) DeleteSaveSlot(ctx context.Context, userID, slotID string) error {
	slotID = strings.ToLower(strings.TrimSpace(slotID))
	if slotID == MainSaveSlotID {
		return ErrSlotProtected
	}
	cmd, err := s.db.Exec(ctx, `
		DELETE FROM game.save_slots
		WHERE user_id = $1 AND slot_id = $2
	`, userID, slotID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// inSerializableTx runs fn inside a serializable transaction and retries on
// serialization failures with capped exponential backoff.
func (s *Service) inSerializableTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	const maxAttempts = 8
	retryDelay := 75 * time.Millisecond
	for attempt := 0; attempt < maxAttempts; attempt++ {
		tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
		if err != nil {
			return err
		}
		err = func() error {
			defer tx.Rollback(ctx)
			if err := fn(tx); err != nil {
				return err
			}
			return tx.Commit(ctx)
		}()
		if err == nil {
			return nil
		}
		if !isSerializationError(err) {
			return err
		}
		if attempt == maxAttempts-1 {
			return ErrTxConflict
		}
		if err := sleepWithContext(ctx, retryDelay); err != nil {
			return err
		}
		if retryDelay < 1200*time.Millisecond {
			retryDelay *= 2
		}
	}
	return ErrTxConflict
}

func isSerializationError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "40001"
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func claimIdempotency(ctx context.Context, tx pgx.Tx, userID, key, action string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("idempotency key is required")
	}
	cmd, err := tx.Exec(ctx, `
		INSERT INTO game.idempotency_keys (user_id, key, action, created_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (user_id, key) DO NOTHING
	`, userID, key, action)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrDuplicateIdempotency
	}
	return nil
}

func appendLedgerEntries(ctx context.Context, tx pgx.Tx, userID, action string, amountCents, feeCents int64) error {
	txID := uuid.NewString()
	debit := -amountCents
	credit := amountCents
	switch action {
	case "venture_sell", "market_sell", "loan_disbursement", "box_office", "company_income":
		debit, credit = credit, debit
	}
	meta, _ := json.Marshal(map[string]any{"action": action})
	_, err := tx.Exec(ctx, `
		INSERT INTO game.ledger_entries (tx_group_id, user_id, account, delta_cents, metadata)
		VALUES
		($1, $2, 'wallet', $3, $5::jsonb),
		($1, $2, 'counterparty', $4, $5::jsonb)
	`, txID, userID, debit, credit, string(meta))
	if err != nil {
		return err
	}
	if feeCents > 0 {
		_, err = tx.Exec(ctx, `
			INSERT INTO game.ledger_entries (tx_group_id, user_id, account, delta_cents, metadata)
			VALUES ($1, $2, 'fees', $3, $4::jsonb)
		`, txID, userID, -feeCents, `{"action":"fee"}`)
	}
	return err
}

func loanForUpdateTx(ctx context.Context, tx pgx.Tx, userID string, loanID int64) (Loan, error) {
	var loan Loan
	err := tx.QueryRow(ctx, `
		SELECT id, loan_type, balance_cents, original_cents, annual_rate,
		       monthly_payment_cents, total_payments, remaining_payments,
		       missed_payments, status, taken_at
		FROM game.loans
		WHERE id = $1 AND user_id = $2
		FOR UPDATE
	`, loanID, userID).Scan(&loan.ID, &loan.Type, &loan.BalanceCents, &loan.OriginalCents,
		&loan.AnnualRate, &loan.MonthlyPaymentCents, &loan.TotalPayments,
		&loan.RemainingPayments, &loan.MissedPayments, &loan.Status, &loan.TakenAt)
	if err == pgx.ErrNoRows {
		return loan, ErrNotFound
	}
	return loan, err
}

func loanView(id int64, loan Loan) LoanView {
	return LoanView{
		ID:                  id,
		Type:                string(loan.Type),
		BalanceCents:        loan.BalanceCents,
		OriginalCents:       loan.OriginalCents,
		AnnualRate:          loan.AnnualRate,
		MonthlyPaymentCents: loan.MonthlyPaymentCents,
		TotalPayments:       loan.TotalPayments,
		RemainingPayments:   loan.RemainingPayments,
		MissedPayments:      loan.MissedPayments,
		Status:              string(loan.Status),
		TakenAt:             loan.TakenAt,
	}
}

// updateNetWorthTx recomputes cash + venture stakes + market stakes minus
// outstanding loan balances.
func updateNetWorthTx(ctx context.Context, tx pgx.Tx, userID string) error {
	_, err := tx.Exec(ctx, `
		UPDATE game.wallets w
		SET net_worth_cents = w.cash_cents
		    + COALESCE((
		        SELECT SUM(ROUND(c.market_value_cents * c.shares_owned_pct / 100))
		        FROM game.companies c
		        WHERE c.user_id = w.user_id
		      ), 0)
		    + COALESCE((
		        SELECT SUM(ROUND(rc.market_value_cents * h.shares_owned_pct / 100))
		        FROM game.real_holdings h
		        JOIN game.real_companies rc ON rc.ticker = h.ticker
		        WHERE h.user_id = w.user_id
		      ), 0)
		    - COALESCE((
		        SELECT SUM(l.balance_cents)
		        FROM game.loans l
		        WHERE l.user_id = w.user_id AND l.status = 'active'
		      ), 0),
		    updated_at = now()
		WHERE w.user_id = $1
	`, userID)
	return err
}

func (s *Service) nextFloat() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rand.Float64()
}

func usernameFromEmail(email string) string {
	email = strings.TrimSpace(strings.ToLower(email))
	parts := strings.Split(email, "@")
	if len(parts) == 0 || parts[0] == "" {
		return "player"
	}
	return sanitizeUsername(parts[0])
}

func sanitizeUsername(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "player"
	}
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			out = append(out, r)
		} else {
			out = append(out, '_')
		}
	}
	res := strings.Trim(string(out), "_")
	if len(res) < 3 {
		res = "player_" + res
	}
	if len(res) > 24 {
		res = res[:24]
	}
	return res
}

func validateEntityName(name string) error {
	clean := strings.TrimSpace(name)
	if clean == "" {
		return fmt.Errorf("name is required")
	}
	if len(clean) > 64 {
		return fmt.Errorf("name too long (max 64 chars)")
	}
	lower := strings.ToLower(clean)
	for _, fragment := range blockedNameFragments {
		if strings.Contains(lower, fragment) {
			return fmt.Errorf("name contains blocked content")
		}
	}
	return nil
}
