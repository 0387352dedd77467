package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/khata-app/khata/internal/jobs"
	"github.com/khata-app/khata/internal/reports"
)

// DashboardBuilder builds (and caches) a user's dashboard.
type DashboardBuilder interface {
	Build(ctx context.Context, userID int64) (*reports.Dashboard, error)
}

// ReportsWarmupJob pre-populates the report cache.
type ReportsWarmupJob struct {
	Reports DashboardBuilder
	Users   UserLister
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewReportsWarmupJob wires dependencies for the warmup handler.
func NewReportsWarmupJob(reports DashboardBuilder, users UserLister, logger *slog.Logger, metrics *jobmetrics.Metrics) *ReportsWarmupJob {
	return &ReportsWarmupJob{Reports: reports, Users: users, Logger: logger, Metrics: metrics}
}

// Handle processes warmup tasks.
func (j *ReportsWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Reports == nil {
		return errors.New("reports warmup: handler not configured")
	}
	var payload ReportsWarmupPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}

	metrics := j.Metrics
	if metrics == nil {
		metrics = defaultJobMetrics
	}
	tracker := metrics.Track(TaskReportsWarmup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger()
	start := time.Now()

	users := payload.UserIDs
	if len(users) == 0 {
		if j.Users == nil {
			resultErr = errors.New("reports warmup: user lister not configured")
			return resultErr
		}
		var err error
		users, err = j.Users.ActiveUsers(ctx)
		if err != nil {
			resultErr = err
			logger.Error("load users", slog.Any("error", err))
			return resultErr
		}
	}

	warmed := 0
	var failures []error
	for _, userID := range users {
		// Each build gets its own deadline.
		userCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
		_, err := j.Reports.Build(userCtx, userID)
		cancel()
		if err != nil {
			logger.Error("warm dashboard", slog.Int64("user_id", userID), slog.Any("error", err))
			failures = append(failures, fmt.Errorf("user %d: %w", userID, err))
			continue
		}
		warmed++
	}
	metrics.AddWarmedDashboards(warmed)

	logger.Info("completed reports warmup", slog.Int("users", warmed), slog.Int("failed", len(failures)), slog.Duration("duration", time.Since(start)))
	resultErr = errors.Join(failures...)
	return resultErr
}

func (j *ReportsWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskReportsWarmup))
	}
	return slog.Default().With(slog.String("job", TaskReportsWarmup))
}
