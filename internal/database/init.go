package database

import (
	"context"
	"fmt"
)

// schema holds the DDL applied on startup. Quote and score maps are stored
// as JSONB: the decision layer reads a contest whole, never by selection.
const schema = `
CREATE TABLE IF NOT EXISTS contests (
    id UUID PRIMARY KEY,
    venue TEXT NOT NULL DEFAULT '',
    start_time TIMESTAMPTZ NOT NULL,
    scores JSONB NOT NULL DEFAULT '{}',
    quotes JSONB NOT NULL DEFAULT '{}',
    winner_id TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_contests_start_time ON contests (start_time);

CREATE TABLE IF NOT EXISTS settlements (
    bet_id UUID PRIMARY KEY,
    contest_id UUID NOT NULL REFERENCES contests (id),
    selection_id TEXT NOT NULL,
    stake NUMERIC(12, 2) NOT NULL,
    outcome TEXT NOT NULL,
    returns NUMERIC(12, 2) NOT NULL,
    settled_at TIMESTAMPTZ NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_settlements_settled_at ON settlements (settled_at);
CREATE INDEX IF NOT EXISTS idx_settlements_contest_id ON settlements (contest_id);

CREATE TABLE IF NOT EXISTS calibrations (
    id SERIAL PRIMARY KEY,
    method TEXT NOT NULL,
    intercept DOUBLE PRECISION NOT NULL,
    slope DOUBLE PRECISION NOT NULL,
    sample_size INTEGER NOT NULL,
    quality JSONB NOT NULL DEFAULT '{}',
    fitted_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS diagnostics (
    id UUID PRIMARY KEY,
    occurred_at TIMESTAMPTZ NOT NULL,
    severity DOUBLE PRECISION NOT NULL,
    level TEXT NOT NULL,
    cause TEXT NOT NULL,
    triggers JSONB NOT NULL DEFAULT '[]',
    actions JSONB NOT NULL DEFAULT '[]',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_diagnostics_occurred_at ON diagnostics (occurred_at);
`

// InitSchema applies the schema DDL. Idempotent.
func (db *DB) InitSchema(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}
