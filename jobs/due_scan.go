package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/khata-app/khata/internal/jobs"
	"github.com/khata-app/khata/internal/reports"
	"github.com/khata-app/khata/internal/shared"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// DueReporter lists customers with a collection due.
type DueReporter interface {
	DueCollections(ctx context.Context, userID int64, asOf time.Time) ([]reports.CustomerRow, error)
}

// Notifier delivers due reminders to the shop owner.
type Notifier interface {
	NotifyDue(ctx context.Context, userID int64, asOf time.Time, rows []reports.CustomerRow) error
}

// LogNotifier writes reminders to the log. It stands in until a push or SMS
// channel exists.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) NotifyDue(_ context.Context, userID int64, asOf time.Time, rows []reports.CustomerRow) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	for _, row := range rows {
		logger.Info("collection due",
			slog.Int64("user_id", userID),
			slog.Int64("customer_id", row.CustomerID),
			slog.String("customer", row.CustomerName),
			slog.String("udhaar", row.Udhaar.StringFixed(2)),
			slog.String("pending", row.Pending.StringFixed(2)),
			slog.String("as_of", shared.NewDate(asOf).String()),
		)
	}
	return nil
}

// DueScanJob checks every active user for collections that have come due.
type DueScanJob struct {
	Reports  DueReporter
	Users    UserLister
	Notifier Notifier
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
	clock    func() time.Time
}

// NewDueScanJob wires dependencies for the scan handler.
func NewDueScanJob(reports DueReporter, users UserLister, notifier Notifier, logger *slog.Logger, metrics *jobmetrics.Metrics) *DueScanJob {
	return &DueScanJob{
		Reports:  reports,
		Users:    users,
		Notifier: notifier,
		Logger:   logger,
		Metrics:  metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes due scan tasks. A failure for one user is logged and the
// scan moves on; the task fails if any user failed.
func (j *DueScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Reports == nil || j.Users == nil {
		return errors.New("due scan: handler not configured")
	}
	var payload DueScanPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	asOf := j.now()
	if payload.AsOf != "" {
		d, err := shared.ParseDate(payload.AsOf)
		if err != nil {
			return asynq.SkipRetry
		}
		asOf = d.Time
	}

	tracker := j.metrics().Track(TaskCollectionsDueScan)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.String("as_of", shared.NewDate(asOf).String()))
	logger.Info("starting due scan")

	users, err := j.Users.ActiveUsers(ctx)
	if err != nil {
		resultErr = err
		logger.Error("load users", slog.Any("error", err))
		return resultErr
	}

	var failures []error
	found := 0
	for _, userID := range users {
		rows, err := j.Reports.DueCollections(ctx, userID, asOf)
		if err != nil {
			logger.Error("scan user", slog.Int64("user_id", userID), slog.Any("error", err))
			failures = append(failures, err)
			continue
		}
		if len(rows) == 0 {
			continue
		}
		found += len(rows)
		if j.Notifier != nil {
			if err := j.Notifier.NotifyDue(ctx, userID, asOf, rows); err != nil {
				logger.Warn("notify due", slog.Int64("user_id", userID), slog.Any("error", err))
			}
		}
	}
	j.metrics().AddDueCollections(found)

	resultErr = errors.Join(failures...)
	logger.Info("completed due scan", slog.Int("users", len(users)), slog.Int("due", found))
	return resultErr
}

func (j *DueScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskCollectionsDueScan))
	}
	return slog.Default().With(slog.String("job", TaskCollectionsDueScan))
}

func (j *DueScanJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *DueScanJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
