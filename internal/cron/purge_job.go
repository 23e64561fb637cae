package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/askservice/leadmarket-backend/pkg/logger"
)

const defaultRetentionDays = 30

// PurgeFunc deletes rows older than cutoff and reports how many went.
type PurgeFunc func(ctx context.Context, cutoff time.Time) (int64, error)

// NotificationPurge keeps unread notifications regardless of age.
func NotificationPurge(repo interface {
	DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error)
}) PurgeFunc {
	return repo.DeleteReadBefore
}

func OutboxPurge(store interface {
	DeletePublishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}) PurgeFunc {
	return store.DeletePublishedBefore
}

type PurgeJobParams struct {
	Name          string
	Logger        *logger.Logger
	Purge         PurgeFunc
	RetentionDays int
}

type purgeJob struct {
	name  string
	logg  *logger.Logger
	purge PurgeFunc
	days  int
	now   func() time.Time
}

func NewPurgeJob(params PurgeJobParams) (Job, error) {
	switch {
	case params.Name == "":
		return nil, errors.New("purge job name required")
	case params.Logger == nil:
		return nil, errors.New("logger required")
	case params.Purge == nil:
		return nil, fmt.Errorf("purge func required for %s", params.Name)
	}
	days := params.RetentionDays
	if days <= 0 {
		days = defaultRetentionDays
	}
	return &purgeJob{
		name:  params.Name,
		logg:  params.Logger,
		purge: params.Purge,
		days:  days,
		now:   time.Now,
	}, nil
}

func (j *purgeJob) Name() string { return j.name }

func (j *purgeJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().AddDate(0, 0, -j.days)
	deleted, err := j.purge(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("%s: %w", j.name, err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":         cutoff,
		"retention_days": j.days,
		"rows_deleted":   deleted,
	}), "cron.purge_complete")
	return nil
}
