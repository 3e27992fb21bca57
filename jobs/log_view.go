package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/hibiken/asynq"

	"github.com/caza2026/panel/internal/api"
	jobmetrics "github.com/caza2026/panel/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// AuditSink posts audit entries to the backend.
type AuditSink interface {
	LogSentItem(ctx context.Context, entry api.SentItemLog) error
}

// LogViewJob delivers queued document-view audit entries.
type LogViewJob struct {
	API     AuditSink
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewLogViewJob wires dependencies for the audit handler.
func NewLogViewJob(sink AuditSink, logger *slog.Logger, metrics *jobmetrics.Metrics) *LogViewJob {
	return &LogViewJob{API: sink, Logger: logger, Metrics: metrics}
}

// Handle processes TaskAuditLogView tasks.
func (j *LogViewJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.API == nil {
		return errors.New("log view: handler not configured")
	}
	var payload LogViewPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if strings.TrimSpace(payload.Identifier) == "" || payload.Action == "" {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskAuditLogView)
	err := j.API.LogSentItem(ctx, payload)
	if err != nil {
		j.logger().Warn("log view delivery",
			slog.String("identifier", payload.Identifier),
			slog.String("action", payload.Action),
			slog.Any("error", err))
		// 4xx answers will not improve on retry.
		var netErr *api.NetworkError
		if errors.As(err, &netErr) && netErr.StatusCode >= 400 && netErr.StatusCode < 500 {
			_ = tracker.End(err)
			return asynq.SkipRetry
		}
	}
	return tracker.End(err)
}

func (j *LogViewJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

func (j *LogViewJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
