package worker

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fightsim/fightsim-api/internal/models"
)

const (
	JobReloadModel        = "reload_model"
	JobCleanupPredictions = "cleanup_predictions"
	JobRefreshPerformance = "refresh_performance"
)

// ModelReloader reloads the classifier artifact when it changed on disk
type ModelReloader interface {
	ReloadIfChanged() (bool, error)
}

// PendingPredictionDeleter removes stale unresolved predictions
type PendingPredictionDeleter interface {
	DeletePendingBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// PerformanceRefresher recomputes and caches model performance
type PerformanceRefresher interface {
	Refresh(ctx context.Context) (*models.ModelPerformance, error)
}

func ReloadModelJob(r ModelReloader, interval time.Duration, logger *zap.Logger) ScheduledJob {
	log := logger.Sugar()
	return ScheduledJob{
		ID:       JobReloadModel,
		Name:     "Reload classifier artifact",
		Interval: interval,
		Run: func(ctx context.Context) error {
			changed, err := r.ReloadIfChanged()
			if err != nil {
				return fmt.Errorf("reload model: %w", err)
			}
			if changed {
				log.Infow("Classifier artifact reloaded by scheduler")
			}
			return nil
		},
	}
}

// CleanupPredictionsJob deletes pending predictions older than retention.
// Predictions with results are kept for lifetime accuracy.
func CleanupPredictionsJob(d PendingPredictionDeleter, retention, interval time.Duration, now func() time.Time, logger *zap.Logger) ScheduledJob {
	if now == nil {
		now = time.Now
	}
	log := logger.Sugar()
	return ScheduledJob{
		ID:       JobCleanupPredictions,
		Name:     "Clean up old pending predictions",
		Interval: interval,
		Run: func(ctx context.Context) error {
			cutoff := now().Add(-retention)
			n, err := d.DeletePendingBefore(ctx, cutoff)
			if err != nil {
				return err
			}
			log.Infow("Prediction cleanup completed", "removed", n, "cutoff", cutoff)
			return nil
		},
	}
}

func RefreshPerformanceJob(r PerformanceRefresher, interval time.Duration) ScheduledJob {
	return ScheduledJob{
		ID:       JobRefreshPerformance,
		Name:     "Refresh model performance",
		Interval: interval,
		Run: func(ctx context.Context) error {
			_, err := r.Refresh(ctx)
			return err
		},
	}
}
