package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/askservice/leadmarket-backend/pkg/logger"
	"github.com/askservice/leadmarket-backend/pkg/metrics"
)

const (
	defaultInterval   = time.Hour
	defaultJobTimeout = 10 * time.Minute
)

type ServiceParams struct {
	Logger     *logger.Logger
	Registry   *Registry
	Lock       Lock
	Metrics    *metrics.CronJobMetrics
	Interval   time.Duration
	JobTimeout time.Duration
}

// Service runs every registered job once per interval while holding Lock.
type Service struct {
	logg       *logger.Logger
	registry   *Registry
	lock       Lock
	metrics    *metrics.CronJobMetrics
	interval   time.Duration
	jobTimeout time.Duration
}

// JobResult is the outcome of one job within a cycle.
type JobResult struct {
	Name     string
	Duration time.Duration
	Err      error
}

// CycleReport summarises a RunOnce call. Skipped is set when another replica
// held the lock.
type CycleReport struct {
	Skipped bool
	Results []JobResult
}

// Failed counts jobs that returned an error.
func (r CycleReport) Failed() int {
	failed := 0
	for _, res := range r.Results {
		if res.Err != nil {
			failed++
		}
	}
	return failed
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Lock == nil {
		return nil, fmt.Errorf("lock required")
	}
	registry := params.Registry
	if registry == nil {
		registry = &Registry{}
	}
	svc := &Service{
		logg:       params.Logger,
		registry:   registry,
		lock:       params.Lock,
		metrics:    params.Metrics,
		interval:   params.Interval,
		jobTimeout: params.JobTimeout,
	}
	if svc.interval <= 0 {
		svc.interval = defaultInterval
	}
	if svc.jobTimeout <= 0 {
		svc.jobTimeout = defaultJobTimeout
	}
	return svc, nil
}

// Run executes a cycle immediately and then on every tick until ctx ends.
func (s *Service) Run(ctx context.Context) error {
	ctx = s.logg.WithField(ctx, "jobs", s.registry.Names())
	s.logg.Info(ctx, "cron.started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		if _, err := s.RunOnce(ctx); err != nil {
			s.logg.Error(ctx, "cron.cycle_failed", err)
		}
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "cron.stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunOnce takes the lock and runs each job in order. A failing job does not
// stop the ones after it.
func (s *Service) RunOnce(ctx context.Context) (CycleReport, error) {
	locked, err := s.lock.Acquire(ctx)
	if err != nil {
		return CycleReport{}, fmt.Errorf("acquire cron lock: %w", err)
	}
	if !locked {
		s.metrics.ObserveSkipped()
		s.logg.Info(ctx, "cron.skipped_locked")
		return CycleReport{Skipped: true}, nil
	}
	defer func() {
		if err := s.lock.Release(context.WithoutCancel(ctx)); err != nil {
			s.logg.Error(ctx, "cron.lock_release_failed", err)
		}
	}()

	report := CycleReport{}
	for _, job := range s.registry.Jobs() {
		report.Results = append(report.Results, s.runJob(ctx, job))
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"jobs_run":    len(report.Results),
		"jobs_failed": report.Failed(),
	}), "cron.cycle_complete")
	return report, nil
}

func (s *Service) runJob(ctx context.Context, job Job) (result JobResult) {
	name := job.Name()
	jobCtx := s.logg.WithField(ctx, "job", name)
	jobCtx, cancel := context.WithTimeout(jobCtx, s.jobTimeout)
	defer cancel()

	start := time.Now()
	result.Name = name
	defer func() {
		if rec := recover(); rec != nil {
			result.Err = fmt.Errorf("job %s panicked: %v", name, rec)
		}
		result.Duration = time.Since(start)
		s.metrics.ObserveRun(name, result.Duration, result.Err)

		doneCtx := s.logg.WithField(jobCtx, "duration_ms", result.Duration.Milliseconds())
		if result.Err != nil {
			s.logg.Error(doneCtx, "cron.job_failed", result.Err)
			return
		}
		s.logg.Info(doneCtx, "cron.job_complete")
	}()

	result.Err = job.Run(jobCtx)
	return result
}
