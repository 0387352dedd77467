package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/khata-app/khata/internal/jobs"
)

// KeyCleaner deletes idempotency keys older than a cutoff.
type KeyCleaner interface {
	Cleanup(ctx context.Context, olderThan time.Duration) error
}

// IdempotencyCleanupJob prunes idempotency keys past their retention.
type IdempotencyCleanupJob struct {
	Store   KeyCleaner
	MaxAge  time.Duration
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

func (j *IdempotencyCleanupJob) Handle(ctx context.Context, _ *asynq.Task) error {
	if j == nil || j.Store == nil {
		return errors.New("idempotency cleanup: handler not configured")
	}
	maxAge := j.MaxAge
	if maxAge <= 0 {
		maxAge = 72 * time.Hour
	}
	metrics := j.Metrics
	if metrics == nil {
		metrics = defaultJobMetrics
	}
	tracker := metrics.Track(TaskIdempotencyCleanup)
	err := j.Store.Cleanup(ctx, maxAge)
	if err != nil && j.Logger != nil {
		j.Logger.Error("idempotency cleanup", slog.Any("error", err))
	}
	return tracker.End(err)
}
