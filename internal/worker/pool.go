// Package worker implements the buffered worker pool used for batch card
// predictions and prediction logging, plus the interval job scheduler.
// The pool decouples HTTP request handling from database writes, providing:
// - Backpressure handling via load shedding
// - Batch inserts into Postgres and ClickHouse
// - Graceful shutdown with flush guarantees

package worker

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/fightsim/fightsim-api/internal/models"
	"github.com/fightsim/fightsim-api/internal/store"
)

// Prometheus metrics
var (
	jobsIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fightsim_batch_jobs_ingested_total",
		Help: "Total number of prediction jobs accepted by the pool",
	})

	jobsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fightsim_batch_jobs_processed_total",
		Help: "Total number of prediction records persisted by workers",
	})

	jobsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fightsim_batch_jobs_failed_total",
		Help: "Total number of prediction jobs that failed, by stage",
	}, []string{"stage"})

	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fightsim_worker_queue_depth",
		Help: "Current depth of the worker queue",
	})

	batchFlushDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fightsim_batch_flush_duration_seconds",
		Help:    "Duration of prediction batch flushes",
		Buckets: prometheus.DefBuckets,
	})

	jobsLoadShed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fightsim_batch_jobs_load_shed_total",
		Help: "Total number of prediction jobs dropped due to load shedding",
	})
)

// Predictor runs one prediction
type Predictor interface {
	Predict(ctx context.Context, nameA, nameB string, mode models.PredictionMode) (*models.EnsembleResult, error)
}

// PredictionWriter persists prediction records
type PredictionWriter interface {
	SaveBatch(ctx context.Context, recs []models.PredictionRecord) error
}

// AnalyticsWriter streams prediction records to the analytics store
type AnalyticsWriter interface {
	InsertPredictions(ctx context.Context, recs []models.PredictionRecord) error
}

// Job is either a matchup to predict or, when Result is set, an already
// computed prediction that only needs logging.
type Job struct {
	BatchID   string
	EventID   string
	FighterA  string
	FighterB  string
	Mode      models.PredictionMode
	Result    *models.EnsembleResult
	Timestamp time.Time
}

// PoolConfig configures the worker pool
type PoolConfig struct {
	WorkerCount   int
	QueueSize     int
	BatchSize     int
	FlushInterval time.Duration
	// JobTimeout bounds a single prediction
	JobTimeout  time.Duration
	Predictor   Predictor
	Predictions PredictionWriter
	Analytics   AnalyticsWriter
	Logger      *zap.Logger
}

// Pool manages a pool of workers for async prediction processing
type Pool struct {
	config   PoolConfig
	jobQueue chan Job
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
	logger   *zap.SugaredLogger

	stopOnce sync.Once
	mu       sync.RWMutex
	stopped  bool
}

// NewPool creates a new worker pool
func NewPool(cfg PoolConfig) *Pool {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1000
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 2 * time.Second
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 30 * time.Second
	}

	return &Pool{
		config:   cfg,
		jobQueue: make(chan Job, cfg.QueueSize),
		logger:   cfg.Logger.Sugar(),
	}
}

// Start launches the worker goroutines
func (p *Pool) Start(ctx context.Context) {
	p.ctx, p.cancel = context.WithCancel(ctx)

	for i := 0; i < p.config.WorkerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}

	go p.reportQueueDepth()

	p.logger.Infow("Worker pool started",
		"workers", p.config.WorkerCount,
		"queueSize", p.config.QueueSize,
		"batchSize", p.config.BatchSize,
	)
}

// Stop closes the queue and waits for workers to drain it and flush
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		p.logger.Info("Stopping worker pool...")

		p.mu.Lock()
		p.stopped = true
		close(p.jobQueue)
		p.mu.Unlock()

		p.wg.Wait()
		if p.cancel != nil {
			p.cancel()
		}
		p.logger.Info("Worker pool stopped")
	})
}

// Enqueue adds a job without blocking. It returns false when the queue is
// full or the pool has stopped.
func (p *Pool) Enqueue(job Job) bool {
	if job.Timestamp.IsZero() {
		job.Timestamp = time.Now().UTC()
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		jobsLoadShed.Inc()
		return false
	}

	select {
	case p.jobQueue <- job:
		jobsIngested.Inc()
		return true
	default:
		p.logger.Warnw("Worker queue full, dropping job",
			"fighterA", job.FighterA, "fighterB", job.FighterB, "batch", job.BatchID)
		jobsLoadShed.Inc()
		return false
	}
}

// Record queues an already computed prediction for persistence
func (p *Pool) Record(result *models.EnsembleResult, eventID string) bool {
	return p.Enqueue(Job{
		EventID:  eventID,
		FighterA: result.FighterA,
		FighterB: result.FighterB,
		Mode:     result.Mode,
		Result:   result,
	})
}

// QueueDepth returns current queue size
func (p *Pool) QueueDepth() int {
	return len(p.jobQueue)
}

// worker predicts queued matchups and flushes records in batches
func (p *Pool) worker(id int) {
	defer p.wg.Done()

	batch := make([]models.PredictionRecord, 0, p.config.BatchSize)
	ticker := time.NewTicker(p.config.FlushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}

		start := time.Now()
		if err := p.processBatch(batch); err != nil {
			p.logger.Errorw("Batch processing failed",
				"worker", id,
				"batchSize", len(batch),
				"error", err,
			)
			jobsFailed.WithLabelValues("persist").Add(float64(len(batch)))
		} else {
			p.logger.Infow("Batch persisted", "worker", id, "batchSize", len(batch), "duration", time.Since(start))
			jobsProcessed.Add(float64(len(batch)))
		}
		batchFlushDuration.Observe(time.Since(start).Seconds())

		batch = batch[:0]
	}

	for {
		select {
		case job, ok := <-p.jobQueue:
			if !ok {
				flush()
				return
			}

			rec, ok := p.runJob(job)
			if !ok {
				continue
			}
			batch = append(batch, rec)
			if len(batch) >= p.config.BatchSize {
				flush()
			}

		case <-ticker.C:
			flush()
		}
	}
}

func (p *Pool) runJob(job Job) (models.PredictionRecord, bool) {
	result := job.Result
	if result == nil {
		ctx, cancel := context.WithTimeout(p.baseContext(), p.config.JobTimeout)
		defer cancel()

		var err error
		result, err = p.config.Predictor.Predict(ctx, job.FighterA, job.FighterB, job.Mode)
		if err != nil {
			p.logger.Warnw("Batch prediction failed",
				"error", err,
				"batch", job.BatchID,
				"event", job.EventID,
				"fighterA", job.FighterA,
				"fighterB", job.FighterB,
			)
			jobsFailed.WithLabelValues("predict").Inc()
			return models.PredictionRecord{}, false
		}
	}

	rec := store.RecordFromResult(result, job.EventID)
	rec.Timestamp = job.Timestamp
	return rec, true
}

// processBatch writes records to Postgres, then to ClickHouse. Analytics
// failures are logged without failing the batch.
func (p *Pool) processBatch(batch []models.PredictionRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	records := make([]models.PredictionRecord, len(batch))
	copy(records, batch)

	if p.config.Predictions != nil {
		if err := p.config.Predictions.SaveBatch(ctx, records); err != nil {
			return err
		}
	}

	if p.config.Analytics != nil {
		if err := p.config.Analytics.InsertPredictions(ctx, records); err != nil {
			p.logger.Warnw("Analytics insert failed", "error", err, "batchSize", len(records))
			jobsFailed.WithLabelValues("analytics").Add(float64(len(records)))
		}
	}
	return nil
}

// baseContext outlives Stop so queued predictions still finish while draining
func (p *Pool) baseContext() context.Context {
	if p.ctx == nil {
		return context.Background()
	}
	return context.WithoutCancel(p.ctx)
}

func (p *Pool) reportQueueDepth() {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			queueDepth.Set(float64(len(p.jobQueue)))
		case <-p.ctx.Done():
			return
		}
	}
}
