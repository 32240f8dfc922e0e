// Package store persists fighter profiles and prediction records in
// PostgreSQL and streams prediction events to ClickHouse.
package store

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB abstracts the pgx pool operations the repositories use
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// BatchConn is the ClickHouse connection subset the analytics sink uses
type BatchConn interface {
	PrepareBatch(ctx context.Context, query string, opts ...driver.PrepareBatchOption) (driver.Batch, error)
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS fighters (
		name         TEXT PRIMARY KEY,
		profile_url  TEXT NOT NULL DEFAULT '',
		image_url    TEXT NOT NULL DEFAULT '',
		slpm         DOUBLE PRECISION,
		str_acc      DOUBLE PRECISION,
		str_def      DOUBLE PRECISION,
		td_avg       DOUBLE PRECISION,
		td_acc       DOUBLE PRECISION,
		td_def       DOUBLE PRECISION,
		sub_avg      DOUBLE PRECISION,
		height_in    DOUBLE PRECISION,
		weight_lb    DOUBLE PRECISION,
		reach_in     DOUBLE PRECISION,
		stance       TEXT,
		dob          DATE,
		last_updated TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS fighters_name_lower_idx ON fighters (lower(name))`,
	`CREATE TABLE IF NOT EXISTS model_predictions (
		id               UUID PRIMARY KEY,
		fighter_a        TEXT NOT NULL,
		fighter_b        TEXT NOT NULL,
		model            TEXT NOT NULL,
		predicted_winner TEXT NOT NULL,
		actual_winner    TEXT,
		correct          BOOLEAN,
		fighter_a_prob   DOUBLE PRECISION NOT NULL,
		fighter_b_prob   DOUBLE PRECISION NOT NULL,
		penalty_score    DOUBLE PRECISION,
		event            TEXT NOT NULL DEFAULT '',
		model_version    TEXT NOT NULL DEFAULT '',
		created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS model_predictions_fighters_idx ON model_predictions (fighter_a, fighter_b)`,
	`CREATE INDEX IF NOT EXISTS model_predictions_created_idx ON model_predictions (created_at DESC)`,
}

// Migrate creates the tables when they do not exist yet
func Migrate(ctx context.Context, db DB) error {
	for _, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
