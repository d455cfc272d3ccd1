package database

import (
	"context"
	"fmt"
)

// schema is idempotent
var schema = []string{
	`CREATE SCHEMA IF NOT EXISTS threes`,
	`CREATE TABLE IF NOT EXISTS threes.trajectory_log (
		id          SMALLINT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
		entries     JSONB NOT NULL,
		entry_count INTEGER NOT NULL,
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS threes.selections (
		run_date    DATE PRIMARY KEY,
		run_id      TEXT NOT NULL,
		source      TEXT NOT NULL,
		cash_weight DOUBLE PRECISION NOT NULL,
		allocation  JSONB NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS threes.candidate_scores (
		run_date  DATE NOT NULL,
		code      TEXT NOT NULL,
		rank      INTEGER NOT NULL,
		total     INTEGER NOT NULL,
		source    TEXT NOT NULL,
		candidate JSONB NOT NULL,
		PRIMARY KEY (run_date, code)
	)`,
}

// Migrate creates the tables used by the archive stores
func (db *DB) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
