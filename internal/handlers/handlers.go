package handlers

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/fightsim/fightsim-api/internal/logic"
	"github.com/fightsim/fightsim-api/internal/models"
	"github.com/fightsim/fightsim-api/internal/worker"
)

// MaxBodySize limits the size of request bodies to 1MB
const MaxBodySize = 1048576

// PredictionQueue defines the interface for the batch prediction worker pool
type PredictionQueue interface {
	Enqueue(job worker.Job) bool
	Record(result *models.EnsembleResult, eventID string) bool
	QueueDepth() int
}

// FighterStore reads fighter profiles
type FighterStore interface {
	Resolve(ctx context.Context, name string) (*models.FighterProfile, error)
	List(ctx context.Context) ([]models.FighterSummary, error)
}

// ResultRecorder scores logged predictions against an actual result
type ResultRecorder interface {
	ApplyResult(ctx context.Context, fighterA, fighterB, winner string) (int, error)
}

// ModelManager controls the classifier artifact
type ModelManager interface {
	Reload() error
	Version() string
	Loaded() bool
}

// JobScheduler is the interval job scheduler
type JobScheduler interface {
	Status() worker.SchedulerStatus
	Pause()
	Resume()
	RunNow(ctx context.Context, id string) error
}

// Check is a named readiness probe
type Check func(ctx context.Context) error

type Config struct {
	WorkerPool PredictionQueue
	Fighters   FighterStore
	Results    ResultRecorder
	Model      ModelManager
	Scheduler  JobScheduler
	// Checks are run by the readiness endpoint, keyed by dependency name
	Checks map[string]Check
	// Migrations are run by the install endpoint, keyed by database name
	Migrations map[string]func(ctx context.Context) error
	Logger     *zap.Logger
	// Services
	Prediction  logic.PredictionService
	Performance logic.PerformanceService
}

type Handler struct {
	pool        PredictionQueue
	fighters    FighterStore
	results     ResultRecorder
	model       ModelManager
	scheduler   JobScheduler
	checks      map[string]Check
	migrations  map[string]func(ctx context.Context) error
	logger      *zap.SugaredLogger
	validator   *validator.Validate
	prediction  logic.PredictionService
	performance logic.PerformanceService
}

func New(cfg Config) *Handler {
	return &Handler{
		pool:        cfg.WorkerPool,
		fighters:    cfg.Fighters,
		results:     cfg.Results,
		model:       cfg.Model,
		scheduler:   cfg.Scheduler,
		checks:      cfg.Checks,
		migrations:  cfg.Migrations,
		logger:      cfg.Logger.Sugar(),
		validator:   validator.New(),
		prediction:  cfg.Prediction,
		performance: cfg.Performance,
	}
}
