package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/caza2026/panel/internal/jobs"
	"github.com/caza2026/panel/internal/stats"
)

// StatsRefresher is implemented by stats.Service.
type StatsRefresher interface {
	Refresh(ctx context.Context) (stats.Snapshot, error)
}

// StatsWarmupJob repopulates the shared counter cache.
type StatsWarmupJob struct {
	Stats   StatsRefresher
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewStatsWarmupJob wires dependencies for the warmup handler.
func NewStatsWarmupJob(svc StatsRefresher, logger *slog.Logger, metrics *jobmetrics.Metrics) *StatsWarmupJob {
	return &StatsWarmupJob{Stats: svc, Logger: logger, Metrics: metrics}
}

// Handle processes TaskStatsWarmup tasks.
func (j *StatsWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Stats == nil {
		return errors.New("stats warmup: handler not configured")
	}
	var payload StatsWarmupPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	if payload.Reason == "" {
		payload.Reason = "scheduled"
	}

	metrics := j.Metrics
	if metrics == nil {
		metrics = defaultJobMetrics
	}
	logger := j.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tracker := metrics.Track(TaskStatsWarmup)

	snap, err := j.Stats.Refresh(ctx)
	if err != nil {
		logger.Error("stats warmup", slog.String("reason", payload.Reason), slog.Any("error", err))
		return tracker.End(err)
	}
	logger.Info("stats warmed",
		slog.String("reason", payload.Reason),
		slog.Int("inscripciones", snap.Inscripciones),
		slog.Int("permisos", snap.Permisos.Total))
	return tracker.End(nil)
}
