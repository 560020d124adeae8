package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/delicado-shop/delicado-api/pkg/logger"
)

const (
	defaultOutboxRetention = 7 * 24 * time.Hour
	defaultDLQRetention    = 30 * 24 * time.Hour

	OutboxRetentionJobName = "outbox-retention"
	DLQRetentionJobName    = "outbox-dlq-retention"
)

type publishedPruner interface {
	DeletePublishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type dlqPruner interface {
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type RetentionJobParams struct {
	Logger    *logger.Logger
	Retention time.Duration
	Now       func() time.Time
}

// NewOutboxRetentionJob deletes outbox rows that were relayed more than
// Retention ago. Unpublished rows are never touched.
func NewOutboxRetentionJob(repo publishedPruner, params RetentionJobParams) (Job, error) {
	if repo == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	base, err := newRetention(OutboxRetentionJobName, defaultOutboxRetention, params)
	if err != nil {
		return nil, err
	}
	base.prune = repo.DeletePublishedBefore
	return base, nil
}

// NewDLQRetentionJob deletes dead-lettered outbox rows older than Retention.
func NewDLQRetentionJob(repo dlqPruner, params RetentionJobParams) (Job, error) {
	if repo == nil {
		return nil, fmt.Errorf("dlq repository required")
	}
	base, err := newRetention(DLQRetentionJobName, defaultDLQRetention, params)
	if err != nil {
		return nil, err
	}
	base.prune = repo.DeleteBefore
	return base, nil
}

type retentionJob struct {
	name      string
	logg      *logger.Logger
	retention time.Duration
	now       func() time.Time
	prune     func(ctx context.Context, cutoff time.Time) (int64, error)
}

func newRetention(name string, fallback time.Duration, params RetentionJobParams) (*retentionJob, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = fallback
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &retentionJob{
		name:      name,
		logg:      params.Logger,
		retention: retention,
		now:       now,
	}, nil
}

func (j *retentionJob) Name() string { return j.name }

func (j *retentionJob) cutoff() time.Time {
	return j.now().UTC().Add(-j.retention)
}

func (j *retentionJob) Run(ctx context.Context) (int64, error) {
	cutoff := j.cutoff()
	deleted, err := j.prune(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", j.name, err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"retention":    j.retention.String(),
		"rows_deleted": deleted,
	})
	j.logg.Info(logCtx, "retention sweep complete")
	return deleted, nil
}
