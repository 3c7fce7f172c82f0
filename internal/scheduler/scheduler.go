package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/robfig/cron/v3"
	"github.com/smallbiznis/crm/internal/clock"
	"github.com/smallbiznis/crm/internal/config"
	"github.com/smallbiznis/crm/internal/heartbeat"
	jobrundomain "github.com/smallbiznis/crm/internal/jobrun/domain"
	obscontext "github.com/smallbiznis/crm/internal/observability/context"
	obsmetrics "github.com/smallbiznis/crm/internal/observability/metrics"
	"github.com/smallbiznis/crm/internal/reminder"
	"github.com/smallbiznis/crm/internal/replenishment"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrInvalidConfig = errors.New("scheduler: invalid config")
	ErrUnknownJob    = errors.New("scheduler: unknown job")
)

var tracer = otel.Tracer("crm/scheduler")

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Job is one scheduled unit of work. Run reports how many Resource rows it
// processed. Exclusive jobs take the distributed lock, when one is
// configured, so that only one instance runs them.
type Job struct {
	Name      string
	Schedule  string
	Timeout   time.Duration
	Exclusive bool
	Resource  string
	Run       func(ctx context.Context) (int, error)
}

type Params struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	Clock         clock.Clock
	GenID         *snowflake.Node
	Jobs          *config.JobsConfigHolder
	Runs          jobrundomain.Repository
	Heartbeat     *heartbeat.Service
	Replenishment *replenishment.Service
	Reminders     *reminder.Service
	Locker        Locker                       `optional:"true"`
	Metrics       *obsmetrics.SchedulerMetrics `optional:"true"`
	Config        Config                       `optional:"true"`
}

type Scheduler struct {
	db      *gorm.DB
	log     *zap.Logger
	clock   clock.Clock
	genID   *snowflake.Node
	runs    jobrundomain.Repository
	locker  Locker
	metrics *obsmetrics.SchedulerMetrics
	cfg     Config

	cron *cron.Cron
	jobs []Job
}

// New builds the scheduler with the heartbeat, replenishment and order
// reminder jobs. Schedules and timeouts are read from the jobs config once
// here; everything else the jobs need is re-read on each run.
func New(p Params) (*Scheduler, error) {
	if p.Jobs == nil || p.Heartbeat == nil || p.Replenishment == nil || p.Reminders == nil {
		return nil, ErrInvalidConfig
	}

	jobsCfg := p.Jobs.Get()
	heartbeatTimeout := jobsCfg.Heartbeat.ProbeTimeout + 5*time.Second
	jobs := []Job{
		{
			Name:     heartbeat.JobName,
			Schedule: jobsCfg.Heartbeat.Schedule,
			Timeout:  heartbeatTimeout,
			Run: func(ctx context.Context) (int, error) {
				return 1, p.Heartbeat.Run(ctx)
			},
		},
		{
			Name:      replenishment.JobName,
			Schedule:  jobsCfg.Replenishment.Schedule,
			Timeout:   jobsCfg.Replenishment.Timeout,
			Exclusive: true,
			Resource:  "products",
			Run:       p.Replenishment.Run,
		},
		{
			Name:      reminder.JobName,
			Schedule:  jobsCfg.Reminders.Schedule,
			Timeout:   jobsCfg.Reminders.Timeout,
			Exclusive: true,
			Resource:  "orders",
			Run:       p.Reminders.Send,
		},
	}

	return newScheduler(p, jobs)
}

func newScheduler(p Params, jobs []Job) (*Scheduler, error) {
	if p.DB == nil || p.Log == nil || p.Clock == nil || p.GenID == nil {
		return nil, ErrInvalidConfig
	}
	metrics := p.Metrics
	if metrics == nil {
		metrics = obsmetrics.Scheduler()
	}
	cfg := p.Config.withDefaults()

	for i := range jobs {
		if jobs[i].Name == "" || jobs[i].Run == nil {
			return nil, ErrInvalidConfig
		}
		if jobs[i].Timeout <= 0 {
			jobs[i].Timeout = cfg.DefaultTimeout
		}
	}

	return &Scheduler{
		db:      p.DB,
		log:     p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		clock:   p.Clock,
		genID:   p.GenID,
		runs:    p.Runs,
		locker:  p.Locker,
		metrics: metrics,
		cfg:     cfg,
		cron:    cron.New(cron.WithParser(cronParser), cron.WithLocation(time.UTC)),
		jobs:    jobs,
	}, nil
}

func (s *Scheduler) Jobs() []Job {
	out := make([]Job, len(s.jobs))
	copy(out, s.jobs)
	return out
}

// Start registers every job with cron and starts ticking. A schedule that
// does not parse fails startup.
func (s *Scheduler) Start() error {
	for _, job := range s.jobs {
		job := job
		_, err := s.cron.AddFunc(job.Schedule, func() {
			_ = s.runJob(context.Background(), job)
		})
		if err != nil {
			return fmt.Errorf("schedule %s %q: %w", job.Name, job.Schedule, err)
		}
		s.log.Info("scheduler.job.registered",
			zap.String("job", job.Name),
			zap.String("schedule", job.Schedule),
			zap.Bool("exclusive", job.Exclusive),
		)
	}
	s.cron.Start()
	return nil
}

// Stop stops scheduling new runs and waits for running ones, or for ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunJob runs the named job once, outside its schedule.
func (s *Scheduler) RunJob(ctx context.Context, name string) error {
	for _, job := range s.jobs {
		if job.Name == name {
			return s.runJob(ctx, job)
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownJob, name)
}

// RunOnce runs every job once in registration order and joins their errors.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	var err error
	for _, job := range s.jobs {
		err = errors.Join(err, s.runJob(ctx, job))
	}
	return err
}

func (s *Scheduler) runJob(parent context.Context, job Job) error {
	startedAt := s.clock.Now().UTC()
	start := time.Now()

	ctx, cancel := context.WithTimeout(parent, job.Timeout)
	defer cancel()
	ctx, runID := obscontext.EnsureRunID(ctx)
	ctx = obscontext.WithJob(ctx, job.Name)
	ctx, span := tracer.Start(ctx, "job "+job.Name)
	defer span.End()
	log := s.logger(ctx)

	if job.Exclusive && s.locker != nil {
		key := lockKey(job.Name)
		token, ok, err := s.locker.TryLock(ctx, key, s.cfg.LockTTL)
		if err != nil {
			s.metrics.IncJobError(job.Name, err)
			log.Warn("scheduler.lock.failed", zap.Error(err))
			return fmt.Errorf("%s: lock: %w", job.Name, err)
		}
		if !ok {
			s.metrics.IncJobSkipped(job.Name, obsmetrics.SchedulerSkipReasonLockHeld)
			s.recordSkipped(ctx, job.Name, runID, startedAt)
			log.Info("scheduler.job.skipped", zap.String("reason", obsmetrics.SchedulerSkipReasonLockHeld))
			return nil
		}
		defer func() {
			if err := s.locker.Release(context.WithoutCancel(ctx), key, token); err != nil {
				log.Warn("scheduler.lock.release_failed", zap.Error(err))
			}
		}()
	}

	s.metrics.IncJobRun(job.Name)
	run := s.startRun(ctx, job.Name, runID, startedAt)
	s.logJobStart(ctx, job)

	processed, err := invoke(ctx, job.Run)
	elapsed := time.Since(start)
	span.SetAttributes(attribute.Int("job.processed", processed))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "job failed")
	}
	s.metrics.ObserveJobDuration(job.Name, elapsed)
	if job.Resource != "" {
		s.metrics.AddBatchProcessed(job.Name, job.Resource, processed)
	}
	s.finishRun(ctx, run, elapsed, processed, err)
	s.logJobFinish(ctx, elapsed, processed, err)

	if err == nil {
		s.metrics.SetLastSuccess(job.Name, s.clock.Now())
		return nil
	}

	s.metrics.IncJobError(job.Name, err)
	if errors.Is(err, context.DeadlineExceeded) {
		// A timed out run is retried by the next tick.
		s.metrics.IncJobTimeout(job.Name)
		log.Warn("job timed out", zap.Duration("timeout", job.Timeout), zap.Error(err))
		return nil
	}
	return fmt.Errorf("%s: %w", job.Name, err)
}

// invoke runs fn, turning a panic into ErrJobPanicked so one bad run never
// takes the scheduler down.
func invoke(ctx context.Context, fn func(context.Context) (int, error)) (processed int, err error) {
	defer func() {
		if r := recover(); r != nil {
			processed = 0
			err = fmt.Errorf("%w: %v", obsmetrics.ErrJobPanicked, r)
		}
	}()
	return fn(ctx)
}
