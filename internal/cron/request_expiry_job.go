package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/askservice/leadmarket-backend/pkg/logger"
)

const (
	requestExpiryDays  = 30
	requestExpiryBatch = 200
)

type RequestExpiryJobParams struct {
	Logger     *logger.Logger
	Requests   requestExpirer
	ExpiryDays int
	BatchSize  int
}

type requestExpirer interface {
	ExpireBefore(ctx context.Context, cutoff time.Time, batch int) (int, error)
}

func NewRequestExpiryJob(params RequestExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Requests == nil {
		return nil, fmt.Errorf("service request expirer required")
	}
	days := params.ExpiryDays
	if days <= 0 {
		days = requestExpiryDays
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = requestExpiryBatch
	}
	return &requestExpiryJob{
		logg:     params.Logger,
		requests: params.Requests,
		days:     days,
		batch:    batch,
		now:      time.Now,
	}, nil
}

// requestExpiryJob moves stale ACTIVE requests to EXPIRED, one batch at a
// time until a short batch signals the backlog is drained.
type requestExpiryJob struct {
	logg     *logger.Logger
	requests requestExpirer
	days     int
	batch    int
	now      func() time.Time
}

func (j *requestExpiryJob) Name() string { return "service-request-expiry" }

func (j *requestExpiryJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().AddDate(0, 0, -j.days)
	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		expired, err := j.requests.ExpireBefore(ctx, cutoff, j.batch)
		total += expired
		if err != nil {
			return fmt.Errorf("expire service requests: %w", err)
		}
		if expired < j.batch {
			break
		}
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":      cutoff,
		"expiry_days": j.days,
		"expired":     total,
	})
	j.logg.Info(logCtx, "service request expiry complete")
	return nil
}
