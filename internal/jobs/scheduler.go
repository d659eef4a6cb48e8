// Package jobs runs the periodic maintenance tasks of the payment server on
// a cron schedule.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/kevin07696/paygo-service/pkg/resilience"
	"github.com/kevin07696/paygo-service/pkg/shutdown"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

var (
	jobRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paygo_job_runs_total",
		Help: "Scheduled job runs by job and result",
	}, []string{"job", "result"})

	jobAffected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paygo_job_affected_total",
		Help: "Records changed by scheduled jobs",
	}, []string{"job"})

	jobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "paygo_job_duration_seconds",
		Help:    "Scheduled job duration",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
)

// PaymentSweeper closes payments that can no longer finish on their own:
// PENDING ones past their deadline and PROCESSING ones whose confirmation
// never recorded an outcome.
type PaymentSweeper interface {
	ExpirePending(ctx context.Context) (int, error)
	ReapStuckProcessing(ctx context.Context) (int, error)
}

// StaleTerminalSweeper takes silent terminals offline
type StaleTerminalSweeper interface {
	SweepStale(ctx context.Context) (int64, error)
}

// Config holds the cron specs. An empty spec disables the job.
type Config struct {
	ExpirePendingSpec string
	SweepTerminalSpec string
	ReapStuckSpec     string
}

// DefaultConfig runs every job once a minute
func DefaultConfig() Config {
	return Config{
		ExpirePendingSpec: "@every 1m",
		SweepTerminalSpec: "@every 1m",
		ReapStuckSpec:     "@every 1m",
	}
}

// Task is one unit of scheduled work. It returns how many records changed.
type Task func(ctx context.Context) (int64, error)

// Scheduler wraps a cron runner. Each run gets the cron-job timeout and is
// tracked so shutdown waits for it.
type Scheduler struct {
	cron     *cron.Cron
	logger   *zap.Logger
	timeouts *resilience.TimeoutConfig
	tracker  *shutdown.InFlightTracker
}

// NewScheduler creates an idle scheduler
func NewScheduler(logger *zap.Logger, timeouts *resilience.TimeoutConfig) *Scheduler {
	if timeouts == nil {
		timeouts = resilience.DefaultTimeoutConfig()
	}
	return &Scheduler{
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		logger:   logger,
		timeouts: timeouts,
		tracker:  shutdown.NewInFlightTracker("jobs", logger),
	}
}

// Add schedules task under name
func (s *Scheduler) Add(name, spec string, task Task) error {
	if spec == "" {
		s.logger.Info("Scheduled job disabled", zap.String("job", name))
		return nil
	}
	if _, err := s.cron.AddFunc(spec, func() { s.RunOnce(name, task) }); err != nil {
		return fmt.Errorf("schedule %s (%q): %w", name, spec, err)
	}
	s.logger.Info("Scheduled job registered", zap.String("job", name), zap.String("spec", spec))
	return nil
}

// RunOnce executes task immediately with the job timeout. Panics are
// recovered and counted as errors.
func (s *Scheduler) RunOnce(name string, task Task) {
	s.tracker.Run(func() {
		ctx, cancel := s.timeouts.CronContext(context.Background())
		defer cancel()

		start := time.Now()
		n, err := safeRun(ctx, task)
		jobDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())

		if err != nil {
			jobRuns.WithLabelValues(name, "error").Inc()
			s.logger.Error("Scheduled job failed", zap.String("job", name), zap.Error(err))
			return
		}
		jobRuns.WithLabelValues(name, "ok").Inc()
		if n > 0 {
			jobAffected.WithLabelValues(name).Add(float64(n))
			s.logger.Info("Scheduled job finished",
				zap.String("job", name),
				zap.Int64("affected", n),
				zap.Duration("elapsed", time.Since(start)),
			)
		}
	})
}

func safeRun(ctx context.Context, task Task) (n int64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return task(ctx)
}

// Start begins running scheduled jobs in the background
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Shutdown stops scheduling and waits for running jobs
func (s *Scheduler) Shutdown(ctx context.Context) error {
	stopped := s.cron.Stop()
	select {
	case <-stopped.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	return s.tracker.Shutdown(ctx)
}

// Register adds the payment sweeps and the stale terminal sweep
func Register(s *Scheduler, cfg Config, payments PaymentSweeper, terminals StaleTerminalSweeper) error {
	if err := s.Add("expire_pending_payments", cfg.ExpirePendingSpec, counted(payments.ExpirePending)); err != nil {
		return err
	}
	if err := s.Add("reap_stuck_payments", cfg.ReapStuckSpec, counted(payments.ReapStuckProcessing)); err != nil {
		return err
	}
	return s.Add("sweep_stale_terminals", cfg.SweepTerminalSpec, terminals.SweepStale)
}

func counted(fn func(ctx context.Context) (int, error)) Task {
	return func(ctx context.Context) (int64, error) {
		n, err := fn(ctx)
		return int64(n), err
	}
}
