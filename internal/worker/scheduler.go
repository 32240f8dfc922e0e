package worker

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var (
	ErrJobNotFound   = errors.New("scheduler job not found")
	ErrJobRunning    = errors.New("scheduler job already running")
	ErrDuplicateJob  = errors.New("scheduler job already registered")
	ErrSchedulerBusy = errors.New("scheduler already started")
)

var schedulerRuns = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "fightsim_scheduler_job_runs_total",
	Help: "Scheduler job executions by job and result",
}, []string{"job", "result"})

const lastRunKeyPrefix = "scheduler:last_run:"

// StateStore keeps scheduler state across restarts
type StateStore interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// ScheduledJob is a function run every Interval
type ScheduledJob struct {
	ID       string
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// JobStatus is the reported state of one job
type JobStatus struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Interval  string     `json:"interval"`
	LastRun   *time.Time `json:"last_run"`
	NextRun   *time.Time `json:"next_run"`
	LastError string     `json:"last_error,omitempty"`
	Running   bool       `json:"running"`
}

// SchedulerStatus is the reported state of the scheduler
type SchedulerStatus struct {
	Running bool        `json:"running"`
	Paused  bool        `json:"paused"`
	Jobs    []JobStatus `json:"jobs"`
}

type jobState struct {
	job       ScheduledJob
	lastRun   time.Time
	nextRun   time.Time
	lastError string
	running   bool
}

type SchedulerConfig struct {
	State  StateStore
	Logger *zap.Logger
	Now    func() time.Time
}

// Scheduler runs registered jobs on fixed intervals. A job never overlaps
// with itself: a tick that arrives while the previous run is still going
// is skipped.
type Scheduler struct {
	state  StateStore
	logger *zap.SugaredLogger
	now    func() time.Time

	mu      sync.Mutex
	jobs    map[string]*jobState
	paused  bool
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewScheduler(cfg SchedulerConfig) *Scheduler {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Scheduler{
		state:  cfg.State,
		logger: cfg.Logger.Sugar(),
		now:    cfg.Now,
		jobs:   make(map[string]*jobState),
	}
}

// Register adds a job. Jobs must be registered before Start.
func (s *Scheduler) Register(job ScheduledJob) error {
	if job.ID == "" || job.Run == nil || job.Interval <= 0 {
		return fmt.Errorf("invalid scheduler job %q", job.ID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrSchedulerBusy
	}
	if _, ok := s.jobs[job.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateJob, job.ID)
	}
	s.jobs[job.ID] = &jobState{job: job}
	return nil
}

// Start restores last-run times and launches one loop per job
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.running = true

	now := s.now()
	for _, js := range s.jobs {
		js.lastRun = s.loadLastRun(ctx, js.job.ID)
		js.nextRun = now.Add(firstDelay(js.lastRun, js.job.Interval, now))

		s.wg.Add(1)
		go s.loop(js)
	}

	s.logger.Infow("Scheduler started", "jobs", len(s.jobs))
}

// firstDelay keeps the cadence across restarts: a job that ran recently
// waits out the rest of its interval, an overdue job runs right away.
func firstDelay(lastRun time.Time, interval time.Duration, now time.Time) time.Duration {
	if lastRun.IsZero() {
		return interval
	}
	remaining := interval - now.Sub(lastRun)
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (s *Scheduler) loop(js *jobState) {
	defer s.wg.Done()

	s.mu.Lock()
	delay := js.nextRun.Sub(s.now())
	s.mu.Unlock()
	if delay < 0 {
		delay = 0
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-timer.C:
			s.mu.Lock()
			paused := s.paused
			s.mu.Unlock()
			if !paused {
				if err := s.execute(s.ctx, js); err != nil && !errors.Is(err, ErrJobRunning) {
					s.logger.Errorw("Scheduled job failed", "job", js.job.ID, "error", err)
				}
			}
			s.mu.Lock()
			js.nextRun = s.now().Add(js.job.Interval)
			s.mu.Unlock()
			timer.Reset(js.job.Interval)
		}
	}
}

func (s *Scheduler) execute(ctx context.Context, js *jobState) error {
	s.mu.Lock()
	if js.running {
		s.mu.Unlock()
		schedulerRuns.WithLabelValues(js.job.ID, "skipped").Inc()
		return ErrJobRunning
	}
	js.running = true
	s.mu.Unlock()

	start := s.now()
	err := js.job.Run(ctx)

	s.mu.Lock()
	js.running = false
	js.lastRun = start
	if err != nil {
		js.lastError = err.Error()
	} else {
		js.lastError = ""
	}
	s.mu.Unlock()

	if err != nil {
		schedulerRuns.WithLabelValues(js.job.ID, "error").Inc()
	} else {
		schedulerRuns.WithLabelValues(js.job.ID, "ok").Inc()
		s.logger.Infow("Scheduled job completed", "job", js.job.ID, "duration", s.now().Sub(start))
	}
	s.saveLastRun(ctx, js.job.ID, start)
	return err
}

// Stop cancels all loops and waits for running jobs to return
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("Scheduler stopped")
}

func (s *Scheduler) Pause() {
	s.mu.Lock()
	s.paused = true
	s.mu.Unlock()
	s.logger.Info("Scheduler paused")
}

func (s *Scheduler) Resume() {
	s.mu.Lock()
	s.paused = false
	s.mu.Unlock()
	s.logger.Info("Scheduler resumed")
}

// RunNow executes a job synchronously, regardless of the paused flag
func (s *Scheduler) RunNow(ctx context.Context, id string) error {
	s.mu.Lock()
	js, ok := s.jobs[id]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	s.logger.Infow("Running job on demand", "job", id)
	return s.execute(ctx, js)
}

// Status reports every job sorted by ID
func (s *Scheduler) Status() SchedulerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := SchedulerStatus{
		Running: s.running,
		Paused:  s.paused,
		Jobs:    make([]JobStatus, 0, len(s.jobs)),
	}
	for _, js := range s.jobs {
		st := JobStatus{
			ID:        js.job.ID,
			Name:      js.job.Name,
			Interval:  js.job.Interval.String(),
			LastError: js.lastError,
			Running:   js.running,
		}
		if !js.lastRun.IsZero() {
			t := js.lastRun
			st.LastRun = &t
		}
		if s.running && !s.paused && !js.nextRun.IsZero() {
			t := js.nextRun
			st.NextRun = &t
		}
		status.Jobs = append(status.Jobs, st)
	}
	sort.Slice(status.Jobs, func(i, j int) bool {
		return status.Jobs[i].ID < status.Jobs[j].ID
	})
	return status
}

func (s *Scheduler) loadLastRun(ctx context.Context, id string) time.Time {
	if s.state == nil {
		return time.Time{}
	}
	raw, err := s.state.Get(ctx, lastRunKeyPrefix+id).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warnw("Failed to load job state", "job", id, "error", err)
		}
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func (s *Scheduler) saveLastRun(ctx context.Context, id string, t time.Time) {
	if s.state == nil {
		return
	}
	if err := s.state.Set(context.WithoutCancel(ctx), lastRunKeyPrefix+id, t.UTC().Format(time.RFC3339Nano), 0).Err(); err != nil {
		s.logger.Warnw("Failed to save job state", "job", id, "error", err)
	}
}
