package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fightsim/fightsim-api/internal/models"
)

const insertPrediction = `
	INSERT INTO model_predictions (
		id, fighter_a, fighter_b, model, predicted_winner,
		fighter_a_prob, fighter_b_prob, penalty_score, event, model_version, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

type PredictionRepository struct {
	db DB
}

func NewPredictionRepository(db DB) *PredictionRepository {
	return &PredictionRepository{db: db}
}

// Save inserts one record. Missing IDs and timestamps are filled in.
func (r *PredictionRepository) Save(ctx context.Context, rec *models.PredictionRecord) error {
	prepare(rec)
	if _, err := r.db.Exec(ctx, insertPrediction, predictionArgs(rec)...); err != nil {
		return fmt.Errorf("insert prediction: %w", err)
	}
	return nil
}

// SaveBatch inserts all records in one round trip
func (r *PredictionRepository) SaveBatch(ctx context.Context, recs []models.PredictionRecord) error {
	if len(recs) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for i := range recs {
		prepare(&recs[i])
		batch.Queue(insertPrediction, predictionArgs(&recs[i])...)
	}

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()
	for range recs {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert prediction batch: %w", err)
		}
	}
	return nil
}

// List returns every logged prediction, newest first
func (r *PredictionRepository) List(ctx context.Context) ([]models.PredictionRecord, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id::text, fighter_a, fighter_b, model, predicted_winner, actual_winner, correct,
			fighter_a_prob, fighter_b_prob, penalty_score, event, model_version, created_at
		FROM model_predictions
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list predictions: %w", err)
	}
	defer rows.Close()

	records := make([]models.PredictionRecord, 0)
	for rows.Next() {
		var rec models.PredictionRecord
		var mode string
		if err := rows.Scan(
			&rec.ID, &rec.FighterA, &rec.FighterB, &mode, &rec.PredictedWinner,
			&rec.ActualWinner, &rec.Correct, &rec.FighterAProb, &rec.FighterBProb,
			&rec.PenaltyScore, &rec.Event, &rec.ModelVersion, &rec.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("scan prediction: %w", err)
		}
		rec.Mode = models.PredictionMode(mode)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ApplyResult records the actual winner on every pending prediction for
// the pair, in either fighter order, and returns how many were updated.
// Names compare case-insensitively. Predictions that already carry a result
// are left alone so a rematch does not rescore the earlier fight.
// models.ErrPredictionNotFound is returned when none match.
func (r *PredictionRepository) ApplyResult(ctx context.Context, fighterA, fighterB, winner string) (int, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE model_predictions
		SET actual_winner = $3, correct = (lower(predicted_winner) = lower($3))
		WHERE actual_winner IS NULL
			AND ((lower(fighter_a) = lower($1) AND lower(fighter_b) = lower($2))
				OR (lower(fighter_a) = lower($2) AND lower(fighter_b) = lower($1)))`,
		strings.TrimSpace(fighterA), strings.TrimSpace(fighterB), strings.TrimSpace(winner),
	)
	if err != nil {
		return 0, fmt.Errorf("apply fight result: %w", err)
	}
	n := int(tag.RowsAffected())
	if n == 0 {
		return 0, models.ErrPredictionNotFound
	}
	return n, nil
}

// DeletePendingBefore removes unresolved predictions created before cutoff.
// Resolved predictions are kept for accuracy statistics.
func (r *PredictionRepository) DeletePendingBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM model_predictions WHERE actual_winner IS NULL AND created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete pending predictions: %w", err)
	}
	return tag.RowsAffected(), nil
}

func prepare(rec *models.PredictionRecord) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
}

func predictionArgs(rec *models.PredictionRecord) []any {
	return []any{
		rec.ID, rec.FighterA, rec.FighterB, string(rec.Mode), rec.PredictedWinner,
		rec.FighterAProb, rec.FighterBProb, rec.PenaltyScore, rec.Event, rec.ModelVersion, rec.Timestamp,
	}
}

// RecordFromResult converts a prediction into a loggable record
func RecordFromResult(res *models.EnsembleResult, event string) models.PredictionRecord {
	return models.PredictionRecord{
		ID:              uuid.NewString(),
		FighterA:        res.FighterA,
		FighterB:        res.FighterB,
		Mode:            res.Mode,
		PredictedWinner: res.PredictedWinner,
		FighterAProb:    res.FighterAWinProb,
		FighterBProb:    res.FighterBWinProb,
		PenaltyScore:    res.PenaltyScore,
		Event:           event,
		ModelVersion:    res.ModelVersion,
		Timestamp:       time.Now().UTC(),
	}
}
