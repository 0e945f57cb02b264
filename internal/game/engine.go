package game

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

// Box-office outcome distribution. Most projects land near break-even, a
// thin tail returns 10x or more.
type outcomeBand struct {
	Prob float64
	Lo   float64
	Hi   float64
}

var outcomeBands = []outcomeBand{
	{Prob: 0.40, Lo: 0.2, Hi: 0.8},
	{Prob: 0.30, Lo: 0.8, Hi: 2.0},
	{Prob: 0.20, Lo: 2.0, Hi: 5.0},
	{Prob: 0.08, Lo: 5.0, Hi: 10.0},
	{Prob: 0.02, Lo: 10.0, Hi: 25.0},
}

// rollGrossMultiple draws a return multiple from the banded distribution
// using two uniform samples.
func rollGrossMultiple(bandSeed, withinSeed float64) float64 {
	acc := 0.0
	for _, b := range outcomeBands {
		acc += b.Prob
		if bandSeed < acc {
			return b.Lo + withinSeed*(b.Hi-b.Lo)
		}
	}
	last := outcomeBands[len(outcomeBands)-1]
	return last.Lo + withinSeed*(last.Hi-last.Lo)
}

// RunEngineTick advances the simulation one step: releases finished
// productions, pays company income, services due loans, drifts market
// values, and starts auto-productions for players who enabled them.
func (s *Service) RunEngineTick(ctx context.Context, tickEvery time.Duration, volatility string) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := s.releaseDueProjectsTx(ctx, tx); err != nil {
		return err
	}
	if err := applyCompanyIncomeTx(ctx, tx); err != nil {
		return err
	}
	if err := serviceDueLoansTx(ctx, tx); err != nil {
		return err
	}
	if err := s.driftMarketValuesTx(ctx, tx, volatility); err != nil {
		return err
	}
	if err := s.startAutoProductionsTx(ctx, tx); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `
		UPDATE game.wallets
		SET play_seconds = play_seconds + $1, updated_at = now()
	`, int64(tickEvery.Seconds())); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `
		UPDATE game.wallets w
		SET net_worth_cents = w.cash_cents
		    + COALESCE((
		        SELECT SUM(ROUND(c.market_value_cents * c.shares_owned_pct / 100))
		        FROM game.companies c WHERE c.user_id = w.user_id
		      ), 0)
		    + COALESCE((
		        SELECT SUM(ROUND(rc.market_value_cents * h.shares_owned_pct / 100))
		        FROM game.real_holdings h
		        JOIN game.real_companies rc ON rc.ticker = h.ticker
		        WHERE h.user_id = w.user_id
		      ), 0)
		    - COALESCE((
		        SELECT SUM(l.balance_cents)
		        FROM game.loans l WHERE l.user_id = w.user_id AND l.status = 'active'
		      ), 0)
	`); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (s *Service) releaseDueProjectsTx(ctx context.Context, tx pgx.Tx) error {
	rows, err := tx.Query(ctx, `
		SELECT id, user_id, company_id, budget_cents
		FROM game.projects
		WHERE status = 'in_production' AND release_at <= now()
		FOR UPDATE
	`)
	if err != nil {
		return err
	}
	type due struct {
		id        int64
		userID    string
		companyID int64
		budget    int64
	}
	var items []due
	for rows.Next() {
		var d due
		if err := rows.Scan(&d.id, &d.userID, &d.companyID, &d.budget); err != nil {
			rows.Close()
			return err
		}
		items = append(items, d)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, d := range items {
		multiple := rollGrossMultiple(s.nextFloat(), s.nextFloat())
		gross := int64(math.Round(float64(d.budget) * multiple))
		outcome := OutcomeBand(gross, d.budget)

		if _, err := tx.Exec(ctx, `
			UPDATE game.projects
			SET status = 'released', gross_cents = $1, outcome = $2, updated_at = now()
			WHERE id = $3
		`, gross, outcome, d.id); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			UPDATE game.companies
			SET movies_produced = movies_produced + 1,
			    total_box_office_cents = total_box_office_cents + $1,
			    updated_at = now()
			WHERE id = $2
		`, gross, d.companyID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			UPDATE game.wallets
			SET cash_cents = cash_cents + $1, updated_at = now()
			WHERE user_id = $2
		`, gross, d.userID); err != nil {
			return err
		}
		if err := appendLedgerEntries(ctx, tx, d.userID, "box_office", gross, 0); err != nil {
			return err
		}
		s.log.Info("project released",
			"project_id", d.id,
			"budget_cents", d.budget,
			"gross_cents", gross,
			"outcome", outcome)
	}
	return nil
}

func applyCompanyIncomeTx(ctx context.Context, tx pgx.Tx) error {
	rows, err := tx.Query(ctx, `
		SELECT user_id,
		       SUM(ROUND(income_per_tick_cents * GREATEST(shares_owned_pct, 0) / 100))
		FROM game.companies
		GROUP BY user_id
	`)
	if err != nil {
		return err
	}
	defer rows.Close()
	type gain struct {
		userID string
		income int64
	}
	var gains []gain
	for rows.Next() {
		var g gain
		if err := rows.Scan(&g.userID, &g.income); err != nil {
			return err
		}
		if g.income > 0 {
			gains = append(gains, g)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	for _, g := range gains {
		if _, err := tx.Exec(ctx, `
			UPDATE game.wallets
			SET cash_cents = cash_cents + $1, updated_at = now()
			WHERE user_id = $2
		`, g.income, g.userID); err != nil {
			return err
		}
		if err := appendLedgerEntries(ctx, tx, g.userID, "company_income", g.income, 0); err != nil {
			return err
		}
	}
	return nil
}

// serviceDueLoansTx auto-charges one monthly payment per due loan. A wallet
// that cannot cover the payment takes a missed-payment strike instead;
// three strikes defaults the loan.
func serviceDueLoansTx(ctx context.Context, tx pgx.Tx) error {
	rows, err := tx.Query(ctx, `
		SELECT l.id, l.user_id, l.loan_type, l.balance_cents, l.original_cents,
		       l.annual_rate, l.monthly_payment_cents, l.total_payments,
		       l.remaining_payments, l.missed_payments, l.status, l.taken_at
		FROM game.loans l
		WHERE l.status = 'active' AND l.next_due_at <= now()
		ORDER BY l.id
		FOR UPDATE
	`)
	if err != nil {
		return err
	}
	type dueLoan struct {
		loan   Loan
		userID string
	}
	var items []dueLoan
	for rows.Next() {
		var d dueLoan
		if err := rows.Scan(&d.loan.ID, &d.userID, &d.loan.Type, &d.loan.BalanceCents,
			&d.loan.OriginalCents, &d.loan.AnnualRate, &d.loan.MonthlyPaymentCents,
			&d.loan.TotalPayments, &d.loan.RemainingPayments, &d.loan.MissedPayments,
			&d.loan.Status, &d.loan.TakenAt); err != nil {
			rows.Close()
			return err
		}
		items = append(items, d)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, d := range items {
		var cash int64
		var score int
		if err := tx.QueryRow(ctx, `
			SELECT cash_cents, credit_score
			FROM game.wallets
			WHERE user_id = $1
			FOR UPDATE
		`, d.userID).Scan(&cash, &score); err != nil {
			return err
		}

		payment := d.loan.MonthlyPaymentCents
		if payment > d.loan.BalanceCents {
			payment = d.loan.BalanceCents
		}

		if cash >= payment {
			updated, paid, err := ApplyLoanPayment(d.loan, 0)
			if err != nil {
				return err
			}
			delta := CreditDeltaOnTimePayment
			if updated.Status == LoanPaidOff {
				delta += CreditDeltaPayoff
			}
			score = ApplyCreditDelta(score, delta)

			if _, err := tx.Exec(ctx, `
				UPDATE game.loans
				SET balance_cents = $1, remaining_payments = $2, status = $3,
				    next_due_at = next_due_at + make_interval(secs => $4),
				    updated_at = now()
				WHERE id = $5
			`, updated.BalanceCents, updated.RemainingPayments, updated.Status,
				LoanPaymentInterval.Seconds(), d.loan.ID); err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, `
				UPDATE game.wallets
				SET cash_cents = cash_cents - $1, credit_score = $2, updated_at = now()
				WHERE user_id = $3
			`, paid, score, d.userID); err != nil {
				return err
			}
			if err := appendLedgerEntries(ctx, tx, d.userID, "loan_payment", paid, 0); err != nil {
				return err
			}
			continue
		}

		missed := RecordMissedPayment(d.loan)
		score = ApplyCreditDelta(score, CreditDeltaMissedPayment)
		if _, err := tx.Exec(ctx, `
			UPDATE game.loans
			SET missed_payments = $1, status = $2,
			    next_due_at = next_due_at + make_interval(secs => $3),
			    updated_at = now()
			WHERE id = $4
		`, missed.MissedPayments, missed.Status, LoanPaymentInterval.Seconds(), d.loan.ID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			UPDATE game.wallets
			SET credit_score = $1, updated_at = now()
			WHERE user_id = $2
		`, score, d.userID); err != nil {
			return err
		}
	}
	return nil
}

// driftMarketValuesTx walks each listed company's value with a bounded
// log-return around its anchor.
func (s *Service) driftMarketValuesTx(ctx context.Context, tx pgx.Tx, volatility string) error {
	rows, err := tx.Query(ctx, `
		SELECT ticker, market_value_cents, anchor_value_cents
		FROM game.real_companies
		FOR UPDATE
	`)
	if err != nil {
		return err
	}
	type row struct {
		ticker string
		value  int64
		anchor int64
	}
	var companies []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.ticker, &r.value, &r.anchor); err != nil {
			rows.Close()
			return err
		}
		companies = append(companies, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	params := volatilityParams(volatility)
	const minValueCents = 1_000_000 * CentsPerDollar
	for _, c := range companies {
		ret := params.NoiseScale*normalish(s.nextFloat()) + meanReversion(c.value, c.anchor, params.MeanReversion)
		if s.nextFloat() < params.ShockProb {
			ret += signedShock(s.nextFloat(), s.nextFloat(), params.ShockScale)
		}
		next := evolveValue(c.value, ret, params.MaxDropPerTick)
		if next < minValueCents {
			next = minValueCents
		}
		if _, err := tx.Exec(ctx, `
			UPDATE game.real_companies
			SET market_value_cents = $1, updated_at = now()
			WHERE ticker = $2
		`, next, c.ticker); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO game.real_prices (ticker, tick_at, value_cents)
			VALUES ($1, now(), $2)
		`, c.ticker, next); err != nil {
			return err
		}
	}
	return nil
}

// startAutoProductionsTx runs the planner for every player with auto mode
// on. At most one auto project is in flight per player.
func (s *Service) startAutoProductionsTx(ctx context.Context, tx pgx.Tx) error {
	rows, err := tx.Query(ctx, `
		SELECT a.user_id, a.min_cash_reserve_cents, a.max_investment_pct,
		       a.preferred_type, a.aggressiveness, w.cash_cents,
		       (SELECT c.id FROM game.companies c WHERE c.user_id = a.user_id ORDER BY c.id LIMIT 1)
		FROM game.auto_settings a
		JOIN game.wallets w ON w.user_id = a.user_id
		WHERE a.enabled
		  AND NOT EXISTS (
		      SELECT 1 FROM game.projects p
		      WHERE p.user_id = a.user_id AND p.status = 'in_production' AND p.auto_generated
		  )
	`)
	if err != nil {
		return err
	}
	type candidate struct {
		userID    string
		settings  AutoProductionSettings
		cash      int64
		companyID *int64
	}
	var candidates []candidate
	for rows.Next() {
		var c candidate
		c.settings.Enabled = true
		if err := rows.Scan(&c.userID, &c.settings.MinCashReserveCents, &c.settings.MaxInvestmentPct,
			&c.settings.PreferredType, &c.settings.Aggressiveness, &c.cash, &c.companyID); err != nil {
			rows.Close()
			return err
		}
		candidates = append(candidates, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, c := range candidates {
		if c.companyID == nil {
			continue
		}
		plan := PlanAutoProduction(c.cash, c.settings)
		if !plan.CanAfford {
			continue
		}
		budget := plan.ScaledBudgetCents
		if budget > c.cash-c.settings.MinCashReserveCents {
			budget = c.cash - c.settings.MinCashReserveCents
		}
		spec, err := SpecByType(string(plan.RecommendedType))
		if err != nil || budget < spec.MinBudgetCents {
			continue
		}

		title := autoProjectTitle(spec.Type, s.nextFloat())
		category := BudgetCategory(spec, budget)
		releaseAt := time.Now().UTC().Add(spec.ProductionTime)
		if _, err := tx.Exec(ctx, `
			INSERT INTO game.projects
			    (user_id, company_id, title, genre, project_type, budget_cents,
			     budget_category, release_at, status, gross_cents, auto_generated)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'in_production', 0, true)
		`, c.userID, *c.companyID, title, "drama", spec.Type, budget, category, releaseAt); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			UPDATE game.wallets
			SET cash_cents = cash_cents - $1, updated_at = now()
			WHERE user_id = $2
		`, budget, c.userID); err != nil {
			return err
		}
		if err := appendLedgerEntries(ctx, tx, c.userID, "production_budget", budget, 0); err != nil {
			return err
		}
		s.log.Info("auto production started",
			"user_id", c.userID,
			"type", spec.Type,
			"budget_cents", budget)
	}
	return nil
}

var autoTitleStems = []string{
	"Midnight", "Golden", "Silent", "Broken", "Rising", "Last", "Hidden", "Electric",
}

var autoTitleNouns = []string{
	"Empire", "Harbor", "Signal", "Season", "Frontier", "Verdict", "Mirage", "Crossing",
}

func autoProjectTitle(t ProjectType, seed float64) string {
	i := int(seed * float64(len(autoTitleStems)*len(autoTitleNouns)))
	if i < 0 {
		i = 0
	}
	stem := autoTitleStems[i%len(autoTitleStems)]
	noun := autoTitleNouns[(i/len(autoTitleStems))%len(autoTitleNouns)]
	name := stem + " " + noun
	if t == ProjectDocumentary {
		return name + ": A Documentary"
	}
	return name
}

type marketDynamics struct {
	NoiseScale     float64
	ShockProb      float64
	ShockScale     float64
	MeanReversion  float64
	MaxDropPerTick float64
}

func volatilityParams(mode string) marketDynamics {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "calm":
		return marketDynamics{
			NoiseScale:     0.012,
			ShockProb:      0.04,
			ShockScale:     0.06,
			MeanReversion:  0.030,
			MaxDropPerTick: 0.60,
		}
	case "wild":
		return marketDynamics{
			NoiseScale:     0.045,
			ShockProb:      0.15,
			ShockScale:     0.18,
			MeanReversion:  0.010,
			MaxDropPerTick: 1.40,
		}
	default:
		return marketDynamics{
			NoiseScale:     0.025,
			ShockProb:      0.09,
			ShockScale:     0.11,
			MeanReversion:  0.018,
			MaxDropPerTick: 1.00,
		}
	}
}

func meanReversion(value, anchor int64, strength float64) float64 {
	if anchor <= 0 {
		return 0
	}
	return strength * (float64(anchor-value) / float64(anchor))
}

func normalish(seed float64) float64 {
	return seed + seed - 1
}

func signedShock(magSeed, signSeed, base float64) float64 {
	mag := base * (0.35 + 2.8*magSeed*magSeed)
	if signSeed < 0.5 {
		return -mag
	}
	return mag
}

func evolveValue(valueCents int64, ret, maxDropPerTick float64) int64 {
	if valueCents <= 0 {
		return 1
	}
	// Bound only the downside; upside can run.
	if ret < -maxDropPerTick {
		ret = -maxDropPerTick
	}
	next := int64(math.Round(float64(valueCents) * math.Exp(ret)))
	if next < 1 {
		next = 1
	}
	return next
}
