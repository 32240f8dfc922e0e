package logic

import (
	"context"
	"strings"
	"sync"

	"github.com/fightsim/fightsim-api/internal/models"
)

// MockLookup resolves fighters from a map keyed by lower-cased name
type MockLookup struct {
	Profiles map[string]*models.FighterProfile
	Err      error
}

func (m *MockLookup) Resolve(ctx context.Context, name string) (*models.FighterProfile, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if p, ok := m.Profiles[strings.ToLower(name)]; ok {
		return p, nil
	}
	return nil, models.ErrFighterNotFound
}

// MockClassifier returns a fixed probability
type MockClassifier struct {
	P       float64
	Err     error
	Release string

	mu    sync.Mutex
	Calls int
}

func (m *MockClassifier) Classify(ctx context.Context, a, b *models.FighterProfile) (float64, error) {
	m.mu.Lock()
	m.Calls++
	m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	return m.P, nil
}

func (m *MockClassifier) Version() string { return m.Release }

func (m *MockClassifier) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls
}

// MockLister serves a fixed prediction log
type MockLister struct {
	Records []models.PredictionRecord
	Err     error
	Calls   int
}

func (m *MockLister) List(ctx context.Context) ([]models.PredictionRecord, error) {
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]models.PredictionRecord, len(m.Records))
	copy(out, m.Records)
	return out, nil
}

func fullProfile(name string, slpm, strAcc, strDef, tdAvg, tdAcc, tdDef, subAvg float64) *models.FighterProfile {
	return &models.FighterProfile{
		Name:   name,
		SLpM:   models.Float(slpm),
		StrAcc: models.Float(strAcc),
		StrDef: models.Float(strDef),
		TDAvg:  models.Float(tdAvg),
		TDAcc:  models.Float(tdAcc),
		TDDef:  models.Float(tdDef),
		SubAvg: models.Float(subAvg),
	}
}

func strikerProfile() *models.FighterProfile {
	return fullProfile("Striker", 4, 0.5, 0.6, 2, 0.5, 0.7, 1)
}

func grapplerProfile() *models.FighterProfile {
	return fullProfile("Grappler", 3, 0.4, 0.5, 1, 0.4, 0.6, 0.5)
}
