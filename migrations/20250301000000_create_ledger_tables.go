package migrations

import (
	"context"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		if _, err := db.ExecContext(ctx, `
			CREATE TABLE IF NOT EXISTS users (
				id TEXT PRIMARY KEY,
				email TEXT NOT NULL,
				display_name TEXT,
				avatar_url TEXT,
				stripe_customer_id TEXT,
				credits BIGINT NOT NULL DEFAULT 0 CHECK (credits >= 0),
				created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
			)
		`); err != nil {
			return err
		}

		if _, err := db.ExecContext(ctx, `
			CREATE INDEX IF NOT EXISTS idx_users_email ON users (email)
		`); err != nil {
			return err
		}

		if _, err := db.ExecContext(ctx, `
			CREATE INDEX IF NOT EXISTS idx_users_stripe_customer_id ON users (stripe_customer_id)
		`); err != nil {
			return err
		}

		if _, err := db.ExecContext(ctx, `
			CREATE TABLE IF NOT EXISTS payment_events (
				event_id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL,
				credits_granted BIGINT NOT NULL,
				created_at TIMESTAMPTZ NOT NULL DEFAULT now()
			)
		`); err != nil {
			return err
		}

		if _, err := db.ExecContext(ctx, `
			CREATE TABLE IF NOT EXISTS ledger_entries (
				id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
				user_id TEXT NOT NULL,
				delta BIGINT NOT NULL,
				reason TEXT NOT NULL,
				reference_id TEXT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT now()
			)
		`); err != nil {
			return err
		}

		_, err := db.ExecContext(ctx, `
			CREATE INDEX IF NOT EXISTS idx_ledger_entries_user_id ON ledger_entries (user_id, created_at DESC)
		`)
		return err
	}, func(ctx context.Context, db *bun.DB) error {
		for _, stmt := range []string{
			`DROP TABLE IF EXISTS ledger_entries`,
			`DROP TABLE IF EXISTS payment_events`,
			`DROP TABLE IF EXISTS users`,
		} {
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				return err
			}
		}
		return nil
	})
}
