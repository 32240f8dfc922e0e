package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/fightsim/fightsim-api/internal/models"
)

// MockPredictor implements Predictor for testing
type MockPredictor struct {
	PredictFunc func(ctx context.Context, a, b string, mode models.PredictionMode) (*models.EnsembleResult, error)

	mu    sync.Mutex
	Calls int
}

func (m *MockPredictor) Predict(ctx context.Context, a, b string, mode models.PredictionMode) (*models.EnsembleResult, error) {
	m.mu.Lock()
	m.Calls++
	m.mu.Unlock()
	if m.PredictFunc != nil {
		return m.PredictFunc(ctx, a, b, mode)
	}
	return &models.EnsembleResult{
		FighterA:        a,
		FighterB:        b,
		Mode:            mode,
		FighterAWinProb: 60,
		FighterBWinProb: 40,
		PredictedWinner: a,
	}, nil
}

// MockRecordStore collects saved records. It implements both
// PredictionWriter and AnalyticsWriter.
type MockRecordStore struct {
	Err error

	mu      sync.Mutex
	Records []models.PredictionRecord
	Batches int
}

func (m *MockRecordStore) SaveBatch(ctx context.Context, recs []models.PredictionRecord) error {
	return m.add(recs)
}

func (m *MockRecordStore) InsertPredictions(ctx context.Context, recs []models.PredictionRecord) error {
	return m.add(recs)
}

func (m *MockRecordStore) add(recs []models.PredictionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Batches++
	m.Records = append(m.Records, recs...)
	return nil
}

func (m *MockRecordStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Records)
}

func (m *MockRecordStore) Snapshot() []models.PredictionRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.PredictionRecord, len(m.Records))
	copy(out, m.Records)
	return out
}

var errMock = errors.New("mock failure")

// waitFor polls cond until it holds or the timeout elapses
func waitFor(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}
