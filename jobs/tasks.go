package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskCollectionsDueScan finds customers whose collection date has arrived.
	TaskCollectionsDueScan = "collections:due_scan"
	// TaskReportsWarmup builds dashboards into the report cache.
	TaskReportsWarmup = "reports:warmup"
	// TaskIdempotencyCleanup prunes old collection idempotency keys.
	TaskIdempotencyCleanup = "idempotency:cleanup"
)

// DueScanPayload selects the day to scan. An empty AsOf means today (UTC).
type DueScanPayload struct {
	AsOf string `json:"as_of,omitempty"`
}

// ReportsWarmupPayload limits the warmup to some users. Empty means every
// active user.
type ReportsWarmupPayload struct {
	UserIDs []int64 `json:"user_ids,omitempty"`
}

// NewDueScanTask constructs the due scan task.
func NewDueScanTask(payload DueScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCollectionsDueScan, data), nil
}

// NewReportsWarmupTask constructs the warmup task.
func NewReportsWarmupTask(payload ReportsWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReportsWarmup, data), nil
}
