package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/meridian-fin/meridian/internal/consol"
	jobmetrics "github.com/meridian-fin/meridian/internal/jobs"
)

// ConsolidationService describes the behaviour required to rebuild a consolidation run.
type ConsolidationService interface {
	RunConsolidation(ctx context.Context, scope consol.Scope) (*consol.ConsolidatedResult, error)
}

// ConsolidateRefreshJob coordinates the refresh workflow.
type ConsolidateRefreshJob struct {
	Service ConsolidationService
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewConsolidateRefreshJob constructs the job handler.
func NewConsolidateRefreshJob(service ConsolidationService, logger *slog.Logger, metrics *jobmetrics.Metrics) *ConsolidateRefreshJob {
	return &ConsolidateRefreshJob{
		Service: service,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes the consolidate refresh job.
func (j *ConsolidateRefreshJob) Handle(ctx context.Context, task *asynq.Task) error {
	if j == nil || j.Service == nil {
		return errors.New("consolidate refresh: dependencies not configured")
	}
	var payload ConsolidateRefreshPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.Period == "" {
		j.log().Warn("missing period in payload, dropping task")
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskConsolidateRefresh)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	scope := consol.Scope{
		Period:                    payload.Period,
		DefaultMethod:             consol.Method(payload.Method),
		EliminateIntercompany:     payload.EliminateIntercompany,
		CalculateMinorityInterest: payload.CalculateMinorityInterest,
	}

	start := j.now()
	result, err := j.Service.RunConsolidation(ctx, scope)
	if err != nil {
		resultErr = err
		j.log().Error("run consolidation", slog.String("period", payload.Period), slog.Any("error", err))
		return resultErr
	}

	byMethod := map[string]int{}
	for _, el := range result.Eliminations {
		byMethod[el.Type]++
	}
	for method, count := range byMethod {
		j.metrics().AddEliminations(result.Period, method, count)
	}

	j.log().Info("refreshed consolidation",
		slog.String("run_id", result.RunID),
		slog.String("period", result.Period),
		slog.Int("eliminations", len(result.Eliminations)),
		slog.Duration("duration", time.Since(start)))
	return resultErr
}

func (j *ConsolidateRefreshJob) metrics() *jobmetrics.Metrics {
	if j != nil && j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *ConsolidateRefreshJob) log() *slog.Logger {
	if j != nil && j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskConsolidateRefresh))
	}
	return slog.Default().With(slog.String("job", TaskConsolidateRefresh))
}

func (j *ConsolidateRefreshJob) now() time.Time {
	if j != nil && j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}

// WithClock overrides the internal clock for deterministic tests.
func (j *ConsolidateRefreshJob) WithClock(clock func() time.Time) {
	if j != nil && clock != nil {
		j.clock = clock
	}
}
