package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"

	"github.com/caza2026/panel/internal/api"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskAuditLogView records that an operator opened a document.
	TaskAuditLogView = "audit:log-view"
	// TaskStatsWarmup refreshes the cached dashboard counters.
	TaskStatsWarmup = "stats:warmup"
)

// LogViewPayload is the audit entry posted to /log-sent-item.
type LogViewPayload = api.SentItemLog

// NewLogViewTask constructs an audit task.
func NewLogViewTask(payload LogViewPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuditLogView, data, asynq.MaxRetry(5)), nil
}

// StatsWarmupPayload controls the warmup task.
type StatsWarmupPayload struct {
	Reason string `json:"reason"`
}

// NewStatsWarmupTask constructs a counter warmup task.
func NewStatsWarmupTask(reason string) (*asynq.Task, error) {
	data, err := json.Marshal(StatsWarmupPayload{Reason: reason})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskStatsWarmup, data), nil
}
