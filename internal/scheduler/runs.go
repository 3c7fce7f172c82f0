package scheduler

import (
	"context"
	"time"

	jobrundomain "github.com/smallbiznis/crm/internal/jobrun/domain"
	obsmetrics "github.com/smallbiznis/crm/internal/observability/metrics"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// Job run history is best effort: a failed write is logged and the job
// carries on.

func (s *Scheduler) startRun(ctx context.Context, job, runID string, startedAt time.Time) *jobrundomain.JobRun {
	run := &jobrundomain.JobRun{
		ID:            s.genID.Generate(),
		Job:           job,
		CorrelationID: runID,
		Status:        jobrundomain.StatusRunning,
		StartedAt:     startedAt,
	}
	if s.runs == nil {
		return run
	}
	if err := s.runs.Insert(context.WithoutCancel(ctx), s.db, run); err != nil {
		s.logger(ctx).Warn("scheduler.run.record_failed", zap.Error(err))
	}
	return run
}

func (s *Scheduler) finishRun(ctx context.Context, run *jobrundomain.JobRun, elapsed time.Duration, processed int, err error) {
	finishedAt := s.clock.Now().UTC()
	run.FinishedAt = &finishedAt
	run.Metadata = datatypes.JSONMap{
		"duration_ms":     elapsed.Milliseconds(),
		"processed_count": processed,
	}
	if err != nil {
		run.Status = jobrundomain.StatusFailed
		run.Message = err.Error()
		run.Metadata["reason"] = obsmetrics.ClassifySchedulerJobReason(err)
	} else {
		run.Status = jobrundomain.StatusSucceeded
	}
	if s.runs == nil {
		return
	}
	if err := s.runs.Finish(context.WithoutCancel(ctx), s.db, run); err != nil {
		s.logger(ctx).Warn("scheduler.run.record_failed", zap.Error(err))
	}
}

func (s *Scheduler) recordSkipped(ctx context.Context, job, runID string, startedAt time.Time) {
	if s.runs == nil {
		return
	}
	run := &jobrundomain.JobRun{
		ID:            s.genID.Generate(),
		Job:           job,
		CorrelationID: runID,
		Status:        jobrundomain.StatusSkipped,
		Message:       "lock held by another instance",
		StartedAt:     startedAt,
		FinishedAt:    &startedAt,
	}
	if err := s.runs.Insert(context.WithoutCancel(ctx), s.db, run); err != nil {
		s.logger(ctx).Warn("scheduler.run.record_failed", zap.Error(err))
	}
}
