package handlers

import (
	"context"

	"github.com/fightsim/fightsim-api/internal/models"
	"github.com/fightsim/fightsim-api/internal/worker"
)

// MockPredictionService
type MockPredictionService struct {
	PredictFunc  func(ctx context.Context, a, b string, mode models.PredictionMode) (*models.EnsembleResult, error)
	SimulateFunc func(ctx context.Context, req models.SimulateRequest) (*models.SimulateResponse, error)
}

func (m *MockPredictionService) Predict(ctx context.Context, a, b string, mode models.PredictionMode) (*models.EnsembleResult, error) {
	if m.PredictFunc != nil {
		return m.PredictFunc(ctx, a, b, mode)
	}
	return &models.EnsembleResult{FighterA: a, FighterB: b, Mode: mode, PredictedWinner: b}, nil
}

func (m *MockPredictionService) Simulate(ctx context.Context, req models.SimulateRequest) (*models.SimulateResponse, error) {
	if m.SimulateFunc != nil {
		return m.SimulateFunc(ctx, req)
	}
	return &models.SimulateResponse{}, nil
}

func (m *MockPredictionService) ModelVersion() string { return "test" }

// MockPerformanceService
type MockPerformanceService struct {
	GetPerformanceFunc func(ctx context.Context) (*models.ModelPerformance, error)
	GetDetailedFunc    func(ctx context.Context) ([]models.PredictionRecord, error)
	RefreshCalls       int
}

func (m *MockPerformanceService) GetPerformance(ctx context.Context) (*models.ModelPerformance, error) {
	if m.GetPerformanceFunc != nil {
		return m.GetPerformanceFunc(ctx)
	}
	return &models.ModelPerformance{BestModel: models.ModeBlended}, nil
}

func (m *MockPerformanceService) Refresh(ctx context.Context) (*models.ModelPerformance, error) {
	m.RefreshCalls++
	return &models.ModelPerformance{}, nil
}

func (m *MockPerformanceService) GetDetailed(ctx context.Context) ([]models.PredictionRecord, error) {
	if m.GetDetailedFunc != nil {
		return m.GetDetailedFunc(ctx)
	}
	return nil, nil
}

// MockQueue
type MockQueue struct {
	EnqueueFunc func(job worker.Job) bool
	Jobs        []worker.Job
	Recorded    []*models.EnsembleResult
}

func (m *MockQueue) Enqueue(job worker.Job) bool {
	m.Jobs = append(m.Jobs, job)
	if m.EnqueueFunc != nil {
		return m.EnqueueFunc(job)
	}
	return true
}

func (m *MockQueue) Record(result *models.EnsembleResult, eventID string) bool {
	m.Recorded = append(m.Recorded, result)
	return true
}

func (m *MockQueue) QueueDepth() int { return len(m.Jobs) }

// MockFighterStore
type MockFighterStore struct {
	Profiles map[string]*models.FighterProfile
	ListErr  error
}

func (m *MockFighterStore) Resolve(ctx context.Context, name string) (*models.FighterProfile, error) {
	if p, ok := m.Profiles[name]; ok {
		return p, nil
	}
	return nil, models.ErrFighterNotFound
}

func (m *MockFighterStore) List(ctx context.Context) ([]models.FighterSummary, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	out := make([]models.FighterSummary, 0, len(m.Profiles))
	for _, p := range m.Profiles {
		out = append(out, models.FighterSummary{Name: p.Name, Image: p.ImageURL})
	}
	return out, nil
}

// MockResultRecorder
type MockResultRecorder struct {
	ApplyResultFunc func(ctx context.Context, a, b, winner string) (int, error)
}

func (m *MockResultRecorder) ApplyResult(ctx context.Context, a, b, winner string) (int, error) {
	if m.ApplyResultFunc != nil {
		return m.ApplyResultFunc(ctx, a, b, winner)
	}
	return 1, nil
}

// MockModel
type MockModel struct {
	ReloadErr error
	version   string
	loaded    bool
	Reloads   int
}

func (m *MockModel) Reload() error {
	m.Reloads++
	if m.ReloadErr != nil {
		return m.ReloadErr
	}
	m.version = "reloaded"
	m.loaded = true
	return nil
}

func (m *MockModel) Version() string { return m.version }
func (m *MockModel) Loaded() bool    { return m.loaded }

// MockScheduler
type MockScheduler struct {
	RunNowFunc func(ctx context.Context, id string) error
	Paused     bool
}

func (m *MockScheduler) Status() worker.SchedulerStatus {
	return worker.SchedulerStatus{
		Running: true,
		Paused:  m.Paused,
		Jobs:    []worker.JobStatus{{ID: worker.JobCleanupPredictions, Interval: "24h0m0s"}},
	}
}

func (m *MockScheduler) Pause()  { m.Paused = true }
func (m *MockScheduler) Resume() { m.Paused = false }

func (m *MockScheduler) RunNow(ctx context.Context, id string) error {
	if m.RunNowFunc != nil {
		return m.RunNowFunc(ctx, id)
	}
	return nil
}
