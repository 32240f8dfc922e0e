package logic

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fightsim/fightsim-api/internal/models"
)

// RedisClient defines the subset of the Redis client the services use
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// PredictionLister reads the prediction log
type PredictionLister interface {
	List(ctx context.Context) ([]models.PredictionRecord, error)
}

// PredictionService produces predictions and custom simulations
type PredictionService interface {
	Predict(ctx context.Context, nameA, nameB string, mode models.PredictionMode) (*models.EnsembleResult, error)
	Simulate(ctx context.Context, req models.SimulateRequest) (*models.SimulateResponse, error)
	ModelVersion() string
}

// PerformanceService reports prediction accuracy
type PerformanceService interface {
	GetPerformance(ctx context.Context) (*models.ModelPerformance, error)
	Refresh(ctx context.Context) (*models.ModelPerformance, error)
	GetDetailed(ctx context.Context) ([]models.PredictionRecord, error)
}
