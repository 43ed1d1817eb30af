// Package database holds the Postgres schema for team members, their balance
// history and dashboard operators.
package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Migrations returns the schema statements in apply order. Every statement is idempotent.
func Migrations() []string {
	return []string{
		`CREATE EXTENSION IF NOT EXISTS pgcrypto`,

		`CREATE TABLE IF NOT EXISTS operators (
			id            UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			email         TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			display_name  TEXT NOT NULL,
			role          TEXT NOT NULL DEFAULT 'manager' CHECK (role IN ('admin', 'manager')),
			created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,

		`CREATE TABLE IF NOT EXISTS team_members (
			id              UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			name            TEXT NOT NULL,
			phone           TEXT NOT NULL DEFAULT '',
			status          TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'inactive')),
			salary          BIGINT NOT NULL CHECK (salary > 0),
			current_balance BIGINT NOT NULL DEFAULT 0 CHECK (current_balance >= 0),
			total_earned    BIGINT NOT NULL DEFAULT 0 CHECK (total_earned >= 0),
			created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,

		`CREATE TABLE IF NOT EXISTS balance_history (
			id               UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			team_member_id   UUID NOT NULL REFERENCES team_members (id),
			amount           BIGINT NOT NULL CHECK (amount <> 0),
			type             TEXT NOT NULL CHECK (type IN ('increase', 'decrease')),
			reason           TEXT NOT NULL CHECK (reason IN ('Daily salary', 'Bonus', 'Transport', 'Deduction', 'Balance cleared')),
			note             TEXT,
			previous_balance BIGINT NOT NULL,
			new_balance      BIGINT NOT NULL CHECK (new_balance >= 0),
			created_at       TIMESTAMPTZ NOT NULL DEFAULT clock_timestamp(),
			CHECK (new_balance = previous_balance + amount),
			CHECK ((amount > 0) = (type = 'increase'))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_balance_history_member_created
			ON balance_history (team_member_id, created_at DESC)`,

		// History rows are permanent.
		`CREATE OR REPLACE FUNCTION balance_history_append_only() RETURNS trigger AS $$
		BEGIN
			RAISE EXCEPTION 'balance_history is append-only';
		END;
		$$ LANGUAGE plpgsql`,
		`DROP TRIGGER IF EXISTS balance_history_no_mutation ON balance_history`,
		`CREATE TRIGGER balance_history_no_mutation
			BEFORE UPDATE OR DELETE ON balance_history
			FOR EACH ROW EXECUTE FUNCTION balance_history_append_only()`,
	}
}

// Migrate applies Migrations in order.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for i, stmt := range Migrations() {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
