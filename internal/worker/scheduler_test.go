package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fightsim/fightsim-api/internal/models"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func countingJob(id string, interval time.Duration, counter *int32) ScheduledJob {
	return ScheduledJob{
		ID:       id,
		Name:     id,
		Interval: interval,
		Run: func(ctx context.Context) error {
			atomic.AddInt32(counter, 1)
			return nil
		},
	}
}

func TestSchedulerRegisterValidation(t *testing.T) {
	s := NewScheduler(SchedulerConfig{Logger: zap.NewNop()})
	var n int32

	if err := s.Register(ScheduledJob{ID: "x", Interval: time.Second}); err == nil {
		t.Error("expected error for job without Run")
	}
	if err := s.Register(countingJob("a", time.Second, &n)); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := s.Register(countingJob("a", time.Second, &n)); !errors.Is(err, ErrDuplicateJob) {
		t.Errorf("expected ErrDuplicateJob, got %v", err)
	}

	s.Start(context.Background())
	defer s.Stop()
	if err := s.Register(countingJob("b", time.Second, &n)); !errors.Is(err, ErrSchedulerBusy) {
		t.Errorf("expected ErrSchedulerBusy after Start, got %v", err)
	}
}

func TestSchedulerRunsOnInterval(t *testing.T) {
	var n int32
	s := NewScheduler(SchedulerConfig{Logger: zap.NewNop()})
	if err := s.Register(countingJob("tick", 10*time.Millisecond, &n)); err != nil {
		t.Fatal(err)
	}
	s.Start(context.Background())

	if !waitFor(time.Second, func() bool { return atomic.LoadInt32(&n) >= 3 }) {
		t.Fatalf("expected at least 3 runs, got %d", atomic.LoadInt32(&n))
	}
	s.Stop()

	after := atomic.LoadInt32(&n)
	time.Sleep(30 * time.Millisecond)
	if atomic.LoadInt32(&n) != after {
		t.Error("job kept running after Stop")
	}
}

func TestSchedulerPauseResume(t *testing.T) {
	var n int32
	s := NewScheduler(SchedulerConfig{Logger: zap.NewNop()})
	if err := s.Register(countingJob("tick", 10*time.Millisecond, &n)); err != nil {
		t.Fatal(err)
	}
	s.Pause()
	s.Start(context.Background())
	defer s.Stop()

	time.Sleep(50 * time.Millisecond)
	if atomic.LoadInt32(&n) != 0 {
		t.Errorf("paused scheduler ran job %d times", atomic.LoadInt32(&n))
	}
	status := s.Status()
	if !status.Paused || status.Jobs[0].NextRun != nil {
		t.Errorf("unexpected paused status %+v", status)
	}

	s.Resume()
	if !waitFor(time.Second, func() bool { return atomic.LoadInt32(&n) > 0 }) {
		t.Fatal("job did not run after Resume")
	}
}

func TestSchedulerRunNow(t *testing.T) {
	var n int32
	fail := errors.New("scrape failed")
	s := NewScheduler(SchedulerConfig{Logger: zap.NewNop()})
	_ = s.Register(countingJob("ok", time.Hour, &n))
	_ = s.Register(ScheduledJob{ID: "bad", Interval: time.Hour, Run: func(ctx context.Context) error { return fail }})

	if err := s.RunNow(context.Background(), "ok"); err != nil {
		t.Fatalf("RunNow failed: %v", err)
	}
	if atomic.LoadInt32(&n) != 1 {
		t.Errorf("expected 1 run, got %d", n)
	}
	if err := s.RunNow(context.Background(), "bad"); !errors.Is(err, fail) {
		t.Errorf("expected job error, got %v", err)
	}
	if err := s.RunNow(context.Background(), "missing"); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("expected ErrJobNotFound, got %v", err)
	}

	status := s.Status()
	if len(status.Jobs) != 2 || status.Jobs[0].ID != "bad" {
		t.Fatalf("expected jobs sorted by id, got %+v", status.Jobs)
	}
	if status.Jobs[0].LastError != "scrape failed" || status.Jobs[0].LastRun == nil {
		t.Errorf("unexpected status for failed job %+v", status.Jobs[0])
	}
	if status.Jobs[1].LastError != "" || status.Jobs[1].LastRun == nil {
		t.Errorf("unexpected status for ok job %+v", status.Jobs[1])
	}
}

func TestSchedulerJobDoesNotOverlap(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	s := NewScheduler(SchedulerConfig{Logger: zap.NewNop()})
	_ = s.Register(ScheduledJob{ID: "slow", Interval: time.Hour, Run: func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	}})

	done := make(chan error)
	go func() { done <- s.RunNow(context.Background(), "slow") }()
	<-started

	if err := s.RunNow(context.Background(), "slow"); !errors.Is(err, ErrJobRunning) {
		t.Errorf("expected ErrJobRunning, got %v", err)
	}
	if !s.Status().Jobs[0].Running {
		t.Error("expected job to be reported as running")
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first run failed: %v", err)
	}
}

func TestSchedulerPersistsLastRun(t *testing.T) {
	mr, client := newTestRedis(t)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	var n int32

	s := NewScheduler(SchedulerConfig{State: client, Logger: zap.NewNop(), Now: func() time.Time { return now }})
	_ = s.Register(countingJob("cleanup", 24*time.Hour, &n))
	if err := s.RunNow(context.Background(), "cleanup"); err != nil {
		t.Fatal(err)
	}

	stored, err := mr.Get(lastRunKeyPrefix + "cleanup")
	if err != nil {
		t.Fatalf("last run not stored: %v", err)
	}
	if stored != now.Format(time.RFC3339Nano) {
		t.Errorf("unexpected stored time %q", stored)
	}

	// A fresh scheduler picks the schedule up where the old one left off
	later := now.Add(6 * time.Hour)
	restarted := NewScheduler(SchedulerConfig{State: client, Logger: zap.NewNop(), Now: func() time.Time { return later }})
	_ = restarted.Register(countingJob("cleanup", 24*time.Hour, &n))
	restarted.Start(context.Background())
	defer restarted.Stop()

	job := restarted.Status().Jobs[0]
	if job.LastRun == nil || !job.LastRun.Equal(now) {
		t.Errorf("expected restored last run %v, got %v", now, job.LastRun)
	}
	if job.NextRun == nil || !job.NextRun.Equal(now.Add(24*time.Hour)) {
		t.Errorf("expected next run %v, got %v", now.Add(24*time.Hour), job.NextRun)
	}
}

func TestFirstDelay(t *testing.T) {
	now := time.Now()
	if d := firstDelay(time.Time{}, time.Hour, now); d != time.Hour {
		t.Errorf("never-run job should wait a full interval, got %v", d)
	}
	if d := firstDelay(now.Add(-2*time.Hour), time.Hour, now); d != 0 {
		t.Errorf("overdue job should run immediately, got %v", d)
	}
	if d := firstDelay(now.Add(-20*time.Minute), time.Hour, now); d != 40*time.Minute {
		t.Errorf("expected 40m remaining, got %v", d)
	}
}

type stubReloader struct {
	changed bool
	err     error
}

func (s stubReloader) ReloadIfChanged() (bool, error) { return s.changed, s.err }

type stubDeleter struct{ cutoff time.Time }

func (s *stubDeleter) DeletePendingBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.cutoff = cutoff
	return 3, nil
}

type stubRefresher struct{ calls int }

func (s *stubRefresher) Refresh(ctx context.Context) (*models.ModelPerformance, error) {
	s.calls++
	return &models.ModelPerformance{}, nil
}

func TestJobs(t *testing.T) {
	ctx := context.Background()
	logger := zap.NewNop()

	if err := ReloadModelJob(stubReloader{changed: true}, time.Minute, logger).Run(ctx); err != nil {
		t.Errorf("reload job failed: %v", err)
	}
	if err := ReloadModelJob(stubReloader{err: errMock}, time.Minute, logger).Run(ctx); !errors.Is(err, errMock) {
		t.Errorf("expected reload error, got %v", err)
	}

	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	d := &stubDeleter{}
	job := CleanupPredictionsJob(d, 180*24*time.Hour, 24*time.Hour, func() time.Time { return now }, logger)
	if job.ID != JobCleanupPredictions {
		t.Errorf("unexpected job id %q", job.ID)
	}
	if err := job.Run(ctx); err != nil {
		t.Fatal(err)
	}
	if !d.cutoff.Equal(now.AddDate(0, 0, -180)) {
		t.Errorf("unexpected cutoff %v", d.cutoff)
	}

	r := &stubRefresher{}
	if err := RefreshPerformanceJob(r, time.Hour).Run(ctx); err != nil || r.calls != 1 {
		t.Errorf("refresh job: err=%v calls=%d", err, r.calls)
	}
}
