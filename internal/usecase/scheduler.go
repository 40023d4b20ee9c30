package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/metrics"
	"NewsDigest/internal/ports"
)

var (
	// ErrRunInProgress is returned when a run is requested while another one is active.
	ErrRunInProgress = errors.New("digest run already in progress")
	// ErrSchedulerStopped is returned for triggers that arrive after Stop.
	ErrSchedulerStopped = errors.New("scheduler stopped")
	// ErrRunAbandoned is returned by Stop when the in-flight run had to be cancelled.
	ErrRunAbandoned = errors.New("in-flight run abandoned")
	// ErrRunStillActive is returned by Stop when a cancelled run has not returned yet.
	// Resources the run uses must stay open.
	ErrRunStillActive = errors.New("in-flight run still active after cancellation")
)

const defaultAbandonWait = 5 * time.Second

// Runner executes one digest cycle.
type Runner interface {
	Run(ctx context.Context, trigger domain.Trigger) (domain.RunResult, error)
}

// Scheduler wires the cron-like driver with the pipeline use case and
// guarantees that at most one run is active at any time.
type Scheduler struct {
	driver  ports.Scheduler
	runner  Runner
	metrics *metrics.Metrics
	logger  *slog.Logger

	running sync.Mutex
	stopped atomic.Bool

	// abort is cancelled when Stop gives up waiting; every run context follows it.
	abort       context.Context
	cancelRuns  context.CancelFunc
	abandonWait time.Duration

	mu   sync.Mutex
	last *domain.RunResult
}

// NewScheduler returns a helper to start/stop recurring jobs.
func NewScheduler(driver ports.Scheduler, runner Runner, m *metrics.Metrics, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	abort, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		driver:      driver,
		runner:      runner,
		metrics:     m,
		logger:      logger,
		abort:       abort,
		cancelRuns:  cancel,
		abandonWait: defaultAbandonWait,
	}
}

// WithAbandonWait sets how long Stop waits for a cancelled run to return.
func (s *Scheduler) WithAbandonWait(d time.Duration) *Scheduler {
	s.abandonWait = d
	return s
}

// Start registers the pipeline with the driver. Scheduled runs outlive ctx
// cancellation and are only interrupted when Stop gives up waiting.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.runner == nil {
		return fmt.Errorf("scheduler is not configured")
	}

	base := context.WithoutCancel(ctx)
	job := func(tick time.Time) {
		s.logger.Info("scheduled run triggered", "tick", tick)
		_, _ = s.execute(base, domain.TriggerSchedule)
	}

	return s.driver.Start(ctx, job)
}

// RunNow executes a run immediately in the caller's goroutine. The run is
// cancelled when ctx is done or when Stop abandons it.
func (s *Scheduler) RunNow(ctx context.Context) (domain.RunResult, error) {
	return s.execute(ctx, domain.TriggerManual)
}

// Stop halts the timer and waits for the in-flight run. When ctx expires
// first the run is cancelled and given abandonWait to return.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.stopped.Store(true)

	var stopErr error
	if s.driver != nil {
		if err := s.driver.Stop(ctx); err != nil {
			stopErr = fmt.Errorf("stop driver: %w", err)
		}
	}

	if s.running.TryLock() {
		s.running.Unlock()
		s.cancelRuns()
		return stopErr
	}

	done := make(chan struct{})
	go func() {
		s.running.Lock()
		s.running.Unlock()
		close(done)
	}()

	select {
	case <-done:
		s.cancelRuns()
		return stopErr
	case <-ctx.Done():
	}

	s.logger.Warn("shutdown timeout reached, cancelling in-flight run")
	s.cancelRuns()

	select {
	case <-done:
		return fmt.Errorf("%w: %w", ErrRunAbandoned, ctx.Err())
	case <-time.After(s.abandonWait):
		s.logger.Error("in-flight run ignored cancellation", "waited", s.abandonWait)
		return fmt.Errorf("%w: %w: %w", ErrRunAbandoned, ErrRunStillActive, ctx.Err())
	}
}

// LastRun returns the most recent completed run, if any.
func (s *Scheduler) LastRun() (domain.RunResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return domain.RunResult{}, false
	}
	return *s.last, true
}

func (s *Scheduler) execute(ctx context.Context, trigger domain.Trigger) (domain.RunResult, error) {
	if s.stopped.Load() {
		return domain.RunResult{}, ErrSchedulerStopped
	}
	if !s.running.TryLock() {
		s.logger.Warn("run skipped, previous run still active", "trigger", trigger)
		s.metrics.RunSkipped(trigger)
		return domain.RunResult{}, ErrRunInProgress
	}
	defer s.running.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stopFollowing := context.AfterFunc(s.abort, cancel)
	defer stopFollowing()

	res, err := s.runner.Run(runCtx, trigger)

	s.mu.Lock()
	s.last = &res
	s.mu.Unlock()

	return res, err
}
