package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fightsim/fightsim-api/internal/classifier"
	"github.com/fightsim/fightsim-api/internal/config"
	"github.com/fightsim/fightsim-api/internal/handlers"
	"github.com/fightsim/fightsim-api/internal/logic"
	"github.com/fightsim/fightsim-api/internal/store"
	"github.com/fightsim/fightsim-api/internal/worker"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog, err := newLogger(cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer zapLog.Sync()

	zapLog.Info("Starting fightsim API...", zap.String("env", cfg.Env), zap.Int("port", cfg.Port))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- PostgreSQL ---
	var pg *pgxpool.Pool
	err = retryWithBackoff(func() error {
		var err error
		pg, err = pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()

	if err := store.Migrate(ctx, pg); err != nil {
		zapLog.Fatal("postgres migration failed", zap.Error(err))
	}

	// --- Redis ---
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		zapLog.Fatal("invalid REDIS_URL", zap.Error(err))
	}
	rdb := redis.NewClient(redisOpts)
	err = retryWithBackoff(func() error {
		return rdb.Ping(ctx).Err()
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rdb.Close()

	// --- ClickHouse ---
	chOpts, err := clickhouse.ParseDSN(cfg.ClickHouseURL)
	if err != nil {
		zapLog.Fatal("invalid CLICKHOUSE_URL", zap.Error(err))
	}
	var ch driver.Conn
	err = retryWithBackoff(func() error {
		var err error
		ch, err = clickhouse.Open(chOpts)
		if err != nil {
			return err
		}
		return ch.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "ClickHouse connection")
	if err != nil {
		zapLog.Fatal("clickhouse failed after retries", zap.Error(err))
	}
	defer ch.Close()

	if err := store.MigrateAnalytics(ctx, ch); err != nil {
		// Analytics is optional for serving predictions
		zapLog.Warn("clickhouse migration failed", zap.Error(err))
	}

	// --- Repositories ---
	fighters := store.NewFighterRepository(pg)
	predictions := store.NewPredictionRepository(pg)
	analytics := store.NewAnalyticsSink(ch, zapLog)

	// --- Classifier ---
	model := classifier.NewService(classifier.Config{Path: cfg.ModelPath, Logger: zapLog})
	if err := model.Reload(); err != nil {
		zapLog.Warn("classifier not loaded, classifier and blended predictions will fail until reload",
			zap.String("path", cfg.ModelPath), zap.Error(err))
	}

	// --- Prediction core ---
	exchange := cfg.Tuning.ExchangeWeights()
	fatigue := cfg.Tuning.FatigueStrategy()

	var strategy logic.TrialStrategy = logic.StandardStrategy{}
	if cfg.SimStrategy == "fatigue" {
		strategy = fatigue
	}
	simulator := logic.NewSimulator(logic.SimulationOptions{
		Rounds:            cfg.SimRounds,
		Trials:            cfg.SimTrials,
		ExchangesPerRound: cfg.SimExchanges,
		Workers:           cfg.SimWorkers,
		Strategy:          strategy,
	}, zapLog)

	ensemble := logic.NewEnsemble(logic.EnsembleConfig{
		Lookup:     fighters,
		Classifier: model,
		Simulator:  simulator,
		Exchange:   exchange,
		Blend:      cfg.Tuning.BlendWeights(),
		Penalty:    cfg.Tuning.PenaltyWeights(),
		// Rescale classifier output toward the heavier fighter
		ApplyMismatchAdjustment: cfg.ApplyMismatchAdj,
		Logger:                  zapLog,
	})

	predictionSvc := logic.NewPredictionService(logic.PredictionServiceConfig{
		Ensemble:  ensemble,
		Lookup:    fighters,
		Simulator: simulator,
		Exchange:  exchange,
		Fatigue:   fatigue,
		Cache:     rdb,
		CacheTTL:  cfg.PredictionCacheTTL,
		Logger:    zapLog,
	})
	performanceSvc := logic.NewPerformanceService(predictions, rdb, cfg.PerformanceInterval, zapLog)

	// --- Workers ---
	pool := worker.NewPool(worker.PoolConfig{
		WorkerCount:   cfg.WorkerCount,
		QueueSize:     cfg.QueueSize,
		BatchSize:     cfg.BatchSize,
		FlushInterval: cfg.FlushInterval,
		Predictor:     predictionSvc,
		Predictions:   predictions,
		Analytics:     analytics,
		Logger:        zapLog,
	})
	pool.Start(ctx)

	scheduler := worker.NewScheduler(worker.SchedulerConfig{State: rdb, Logger: zapLog})
	jobs := []worker.ScheduledJob{
		worker.ReloadModelJob(model, cfg.ModelReloadInterval, zapLog),
		worker.CleanupPredictionsJob(predictions, cfg.CleanupRetention, cfg.CleanupInterval, nil, zapLog),
		worker.RefreshPerformanceJob(performanceSvc, cfg.PerformanceInterval),
	}
	for _, job := range jobs {
		if err := scheduler.Register(job); err != nil {
			zapLog.Fatal("failed to register scheduled job", zap.String("job", job.ID), zap.Error(err))
		}
	}
	scheduler.Start(ctx)

	// --- HTTP ---
	h := handlers.New(handlers.Config{
		WorkerPool: pool,
		Fighters:   fighters,
		Results:    predictions,
		Model:      model,
		Scheduler:  scheduler,
		Checks: map[string]handlers.Check{
			"postgres":   pg.Ping,
			"redis":      func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
			"clickhouse": ch.Ping,
		},
		Migrations: map[string]func(ctx context.Context) error{
			"postgres":   func(ctx context.Context) error { return store.Migrate(ctx, pg) },
			"clickhouse": func(ctx context.Context) error { return store.MigrateAnalytics(ctx, ch) },
		},
		Logger:      zapLog,
		Prediction:  predictionSvc,
		Performance: performanceSvc,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           h.Routes(cfg.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      90 * time.Second,
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	<-ctx.Done()
	zapLog.Info("Shutdown signal received, draining...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("HTTP server shutdown failed", zap.Error(err))
	}
	scheduler.Stop()
	pool.Stop()

	zapLog.Info("fightsim API stopped gracefully")
}
