package scheduler

import (
	"context"
	"time"

	obslogger "github.com/smallbiznis/crm/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/crm/internal/observability/metrics"
	"go.uber.org/zap"
)

func (s *Scheduler) logger(ctx context.Context) *zap.Logger {
	return obslogger.WithContext(ctx, s.log)
}

func (s *Scheduler) logJobStart(ctx context.Context, job Job) {
	s.logger(ctx).Info("scheduler.job.start",
		zap.String("schedule", job.Schedule),
		zap.Duration("timeout", job.Timeout),
	)
}

func (s *Scheduler) logJobFinish(ctx context.Context, elapsed time.Duration, processed int, err error) {
	fields := []zap.Field{
		zap.Int64("duration_ms", elapsed.Milliseconds()),
		zap.Int("processed_count", processed),
	}
	log := s.logger(ctx)
	if err != nil {
		log.Error("scheduler.job.failed", append(fields,
			zap.String("error_type", obsmetrics.ClassifySchedulerJobReason(err)),
			zap.Bool("retryable", obsmetrics.IsSchedulerErrorRetryable(err)),
			zap.Error(err),
		)...)
		return
	}
	log.Info("scheduler.job.finish", fields...)
}
