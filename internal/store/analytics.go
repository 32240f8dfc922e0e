package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fightsim/fightsim-api/internal/models"
)

var analyticsSchema = []string{
	`CREATE DATABASE IF NOT EXISTS fightsim`,
	`CREATE TABLE IF NOT EXISTS fightsim.prediction_events (
		timestamp        DateTime64(3),
		prediction_id    String,
		event            String,
		fighter_a        String,
		fighter_b        String,
		model            LowCardinality(String),
		model_version    String,
		predicted_winner String,
		fighter_a_prob   Float64,
		fighter_b_prob   Float64,
		penalty_score    Nullable(Float64)
	) ENGINE = MergeTree ORDER BY (timestamp, event)`,
}

// ExecConn is the ClickHouse connection subset used for DDL
type ExecConn interface {
	Exec(ctx context.Context, query string, args ...any) error
}

// MigrateAnalytics creates the ClickHouse database and table
func MigrateAnalytics(ctx context.Context, conn ExecConn) error {
	for _, stmt := range analyticsSchema {
		if err := conn.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate analytics: %w", err)
		}
	}
	return nil
}

// AnalyticsSink appends prediction events to ClickHouse
type AnalyticsSink struct {
	conn   BatchConn
	logger *zap.SugaredLogger
}

func NewAnalyticsSink(conn BatchConn, logger *zap.Logger) *AnalyticsSink {
	return &AnalyticsSink{conn: conn, logger: logger.Sugar()}
}

// InsertPredictions sends recs as a single batch. Rows that fail to append
// are logged and skipped.
func (s *AnalyticsSink) InsertPredictions(ctx context.Context, recs []models.PredictionRecord) error {
	if len(recs) == 0 {
		return nil
	}
	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO fightsim.prediction_events (
			timestamp, prediction_id, event, fighter_a, fighter_b, model, model_version,
			predicted_winner, fighter_a_prob, fighter_b_prob, penalty_score
		)`)
	if err != nil {
		return fmt.Errorf("prepare analytics batch: %w", err)
	}

	for _, rec := range recs {
		err := batch.Append(
			rec.Timestamp,
			rec.ID,
			rec.Event,
			rec.FighterA,
			rec.FighterB,
			string(rec.Mode),
			rec.ModelVersion,
			rec.PredictedWinner,
			rec.FighterAProb,
			rec.FighterBProb,
			rec.PenaltyScore,
		)
		if err != nil {
			s.logger.Warnw("Failed to append prediction to batch", "error", err, "id", rec.ID)
			continue
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send analytics batch: %w", err)
	}
	return nil
}
