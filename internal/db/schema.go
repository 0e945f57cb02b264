package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureSchema creates the tables the service expects. Every statement is
// idempotent so both binaries can run it at startup.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE SCHEMA IF NOT EXISTS users`,
		`CREATE SCHEMA IF NOT EXISTS game`,
		`CREATE TABLE IF NOT EXISTS users.profiles (
			user_id       text PRIMARY KEY,
			email         text NOT NULL UNIQUE,
			username      text NOT NULL,
			password_hash text NOT NULL,
			created_at    timestamptz NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS game.wallets (
			user_id         text PRIMARY KEY,
			cash_cents      bigint NOT NULL,
			credit_score    integer NOT NULL,
			net_worth_cents bigint NOT NULL,
			play_seconds    bigint NOT NULL DEFAULT 0,
			updated_at      timestamptz NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS game.loans (
			id                    bigserial PRIMARY KEY,
			user_id               text NOT NULL,
			loan_type             text NOT NULL,
			balance_cents         bigint NOT NULL,
			original_cents        bigint NOT NULL,
			annual_rate           double precision NOT NULL,
			monthly_payment_cents bigint NOT NULL,
			total_payments        integer NOT NULL,
			remaining_payments    integer NOT NULL,
			missed_payments       integer NOT NULL DEFAULT 0,
			status                text NOT NULL,
			taken_at              timestamptz NOT NULL,
			next_due_at           timestamptz NOT NULL,
			updated_at            timestamptz NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS loans_user_idx ON game.loans (user_id)`,
		`CREATE INDEX IF NOT EXISTS loans_due_idx ON game.loans (next_due_at) WHERE status = 'active'`,
		`CREATE TABLE IF NOT EXISTS game.companies (
			id                     bigserial PRIMARY KEY,
			user_id                text NOT NULL,
			name                   text NOT NULL,
			industry               text NOT NULL,
			level                  integer NOT NULL DEFAULT 1,
			market_value_cents     bigint NOT NULL,
			income_per_tick_cents  bigint NOT NULL,
			shares_owned_pct       double precision NOT NULL,
			movies_produced        integer NOT NULL DEFAULT 0,
			total_box_office_cents bigint NOT NULL DEFAULT 0,
			updated_at             timestamptz NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS companies_user_idx ON game.companies (user_id)`,
		`CREATE TABLE IF NOT EXISTS game.real_companies (
			ticker             text PRIMARY KEY,
			name               text NOT NULL,
			volatility         text NOT NULL,
			market_value_cents bigint NOT NULL,
			anchor_value_cents bigint NOT NULL,
			updated_at         timestamptz NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS game.real_prices (
			id          bigserial PRIMARY KEY,
			ticker      text NOT NULL,
			tick_at     timestamptz NOT NULL DEFAULT now(),
			value_cents bigint NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS real_prices_ticker_idx ON game.real_prices (ticker, tick_at DESC)`,
		`CREATE TABLE IF NOT EXISTS game.real_holdings (
			user_id          text NOT NULL,
			ticker           text NOT NULL,
			shares_owned_pct double precision NOT NULL,
			updated_at       timestamptz NOT NULL DEFAULT now(),
			PRIMARY KEY (user_id, ticker)
		)`,
		`CREATE TABLE IF NOT EXISTS game.projects (
			id              bigserial PRIMARY KEY,
			user_id         text NOT NULL,
			company_id      bigint NOT NULL,
			title           text NOT NULL,
			genre           text NOT NULL,
			project_type    text NOT NULL,
			budget_cents    bigint NOT NULL,
			budget_category text NOT NULL,
			release_at      timestamptz NOT NULL,
			status          text NOT NULL,
			gross_cents     bigint NOT NULL DEFAULT 0,
			outcome         text,
			auto_generated  boolean NOT NULL DEFAULT false,
			updated_at      timestamptz NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS projects_user_idx ON game.projects (user_id)`,
		`CREATE INDEX IF NOT EXISTS projects_due_idx ON game.projects (release_at) WHERE status = 'in_production'`,
		`CREATE TABLE IF NOT EXISTS game.auto_settings (
			user_id                text PRIMARY KEY,
			enabled                boolean NOT NULL DEFAULT false,
			min_cash_reserve_cents bigint NOT NULL,
			max_investment_pct     double precision NOT NULL,
			preferred_type         text NOT NULL,
			aggressiveness         text NOT NULL,
			updated_at             timestamptz NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS game.save_slots (
			user_id         text NOT NULL,
			slot_id         text NOT NULL,
			name            text NOT NULL,
			last_played     timestamptz NOT NULL,
			net_worth_cents bigint NOT NULL,
			companies       integer NOT NULL,
			play_seconds    bigint NOT NULL,
			PRIMARY KEY (user_id, slot_id)
		)`,
		`CREATE TABLE IF NOT EXISTS game.idempotency_keys (
			user_id    text NOT NULL,
			key        text NOT NULL,
			action     text NOT NULL,
			created_at timestamptz NOT NULL DEFAULT now(),
			PRIMARY KEY (user_id, key)
		)`,
		`CREATE TABLE IF NOT EXISTS game.ledger_entries (
			id          bigserial PRIMARY KEY,
			tx_group_id text NOT NULL,
			user_id     text NOT NULL,
			account     text NOT NULL,
			delta_cents bigint NOT NULL,
			metadata    jsonb NOT NULL DEFAULT '{}'::jsonb,
			created_at  timestamptz NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS ledger_user_idx ON game.ledger_entries (user_id, created_at DESC)`,
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
