package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var migrations = []struct {
	name string
	sql  string
}{
	{"sales_agents table", `
		CREATE TABLE IF NOT EXISTS sales_agents (
			id TEXT PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			commission_rate NUMERIC(5,2) NOT NULL DEFAULT 0 CHECK (commission_rate >= 0 AND commission_rate <= 100),
			total_sales NUMERIC(14,2) NOT NULL DEFAULT 0,
			total_commission NUMERIC(14,2) NOT NULL DEFAULT 0,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
		)
	`},
	{"vouchers table", `
		CREATE TABLE IF NOT EXISTS vouchers (
			id UUID PRIMARY KEY,
			code VARCHAR(32) UNIQUE NOT NULL,
			type VARCHAR(32) NOT NULL,
			book_id TEXT,
			book_ids TEXT[] NOT NULL DEFAULT '{}',
			series_id TEXT,
			tag TEXT,
			created_by TEXT REFERENCES sales_agents(id),
			client_id TEXT NOT NULL,
			payment_received BOOLEAN NOT NULL DEFAULT FALSE,
			redeemed BOOLEAN NOT NULL DEFAULT FALSE,
			redeemed_at TIMESTAMP WITH TIME ZONE,
			redeemed_by TEXT,
			commission_rate NUMERIC(5,2),
			commission_paid BOOLEAN NOT NULL DEFAULT FALSE,
			total_amount NUMERIC(14,2) NOT NULL CHECK (total_amount >= 0),
			number_of_downloads INT NOT NULL CHECK (number_of_downloads >= 1),
			status VARCHAR(16) NOT NULL DEFAULT 'active',
			created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
		)
	`},
	{"vouchers created_by index", `
		CREATE INDEX IF NOT EXISTS idx_vouchers_created_by ON vouchers(created_by)
	`},
	{"download_entitlements table", `
		CREATE TABLE IF NOT EXISTS download_entitlements (
			id UUID PRIMARY KEY,
			user_id TEXT NOT NULL,
			voucher_id UUID NOT NULL UNIQUE REFERENCES vouchers(id),
			type VARCHAR(32) NOT NULL,
			book_id TEXT,
			book_ids TEXT[] NOT NULL DEFAULT '{}',
			series_id TEXT,
			tag TEXT,
			downloads_remaining INT NOT NULL CHECK (downloads_remaining >= 0),
			granted_at TIMESTAMP WITH TIME ZONE NOT NULL
		)
	`},
	{"rate_limits table", `
		CREATE TABLE IF NOT EXISTS rate_limits (
			user_id TEXT NOT NULL,
			action_type VARCHAR(64) NOT NULL,
			request_count INT NOT NULL,
			window_start TIMESTAMP WITH TIME ZONE NOT NULL,
			PRIMARY KEY (user_id, action_type)
		)
	`},
	{"notifications table", `
		CREATE TABLE IF NOT EXISTS notifications (
			id UUID PRIMARY KEY,
			type VARCHAR(64) NOT NULL,
			title TEXT NOT NULL,
			message TEXT NOT NULL,
			status VARCHAR(16) NOT NULL,
			error TEXT,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL,
			sent_at TIMESTAMP WITH TIME ZONE
		)
	`},
	{"payment_gateways table", `
		CREATE TABLE IF NOT EXISTS payment_gateways (
			provider VARCHAR(32) PRIMARY KEY,
			enabled BOOLEAN NOT NULL DEFAULT TRUE,
			default_currency VARCHAR(3) NOT NULL DEFAULT 'usd',
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
		)
	`},
}

// Migrate creates the schema idempotently.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, m := range migrations {
		if _, err := pool.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("failed to create %s: %w", m.name, err)
		}
	}
	return nil
}
