// Package postgres stores scans in PostgreSQL
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/sawpanic/coinscope/internal/config"
)

// Schema creates the scan tables if they do not exist
const Schema = `
CREATE TABLE IF NOT EXISTS scans (
	id          UUID PRIMARY KEY,
	started_at  TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL,
	strategy    TEXT NOT NULL,
	source      TEXT NOT NULL,
	conditions  JSONB NOT NULL,
	stats       JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS scans_started_at_idx ON scans (started_at DESC);

CREATE TABLE IF NOT EXISTS scan_results (
	scan_id     UUID NOT NULL REFERENCES scans (id) ON DELETE CASCADE,
	position    INTEGER NOT NULL,
	symbol      TEXT NOT NULL,
	total_score DOUBLE PRECISION NOT NULL,
	category    TEXT NOT NULL,
	action      TEXT NOT NULL,
	payload     JSONB NOT NULL,
	PRIMARY KEY (scan_id, symbol)
);
CREATE INDEX IF NOT EXISTS scan_results_symbol_idx ON scan_results (symbol);
`

// Open connects to PostgreSQL and verifies the connection
func Open(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database DSN is required when enabled")
	}

	db, err := sqlx.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxOpenConns)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// Migrate applies Schema
func Migrate(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
