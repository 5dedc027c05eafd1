package database

import (
	"context"
	"fmt"
)

// schema is applied in order; every statement is idempotent.
var schema = []string{
	`CREATE SCHEMA IF NOT EXISTS data`,
	`CREATE TABLE IF NOT EXISTS data.instruments (
		code       TEXT PRIMARY KEY,
		name       TEXT NOT NULL DEFAULT '',
		market     TEXT NOT NULL DEFAULT '',
		kind       TEXT NOT NULL DEFAULT 'stock',
		status     TEXT NOT NULL DEFAULT 'active',
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS data.daily_bars (
		code       TEXT NOT NULL,
		trade_date DATE NOT NULL,
		open       DOUBLE PRECISION NOT NULL DEFAULT 0,
		close      DOUBLE PRECISION NOT NULL DEFAULT 0,
		high       DOUBLE PRECISION NOT NULL DEFAULT 0,
		low        DOUBLE PRECISION NOT NULL DEFAULT 0,
		volume     BIGINT NOT NULL DEFAULT 0,
		pe         DOUBLE PRECISION NOT NULL DEFAULT 0,
		pb         DOUBLE PRECISION NOT NULL DEFAULT 0,
		PRIMARY KEY (code, trade_date)
	)`,
	// ranking query: trade_date = ? AND lo < pe < hi ORDER BY pe
	`CREATE INDEX IF NOT EXISTS idx_daily_bars_date_pe ON data.daily_bars (trade_date, pe)`,
	// carry query: trade_date = ? AND code = ANY(?) AND volume ...
	`CREATE INDEX IF NOT EXISTS idx_daily_bars_date_code_volume ON data.daily_bars (trade_date, code, volume)`,
}

// Schema returns the DDL statements Migrate executes
func Schema() []string {
	out := make([]string, len(schema))
	copy(out, schema)
	return out
}

// Migrate creates the tables and indexes when missing
func (db *DB) Migrate(ctx context.Context) error {
	for i, stmt := range schema {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration step %d: %w", i+1, err)
		}
	}
	return nil
}
