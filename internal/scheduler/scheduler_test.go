package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/crm/internal/clock"
	jobrundomain "github.com/smallbiznis/crm/internal/jobrun/domain"
	jobrunrepo "github.com/smallbiznis/crm/internal/jobrun/repository"
	obscontext "github.com/smallbiznis/crm/internal/observability/context"
	obsmetrics "github.com/smallbiznis/crm/internal/observability/metrics"
	"github.com/smallbiznis/crm/internal/testutil/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var testNow = time.Date(2025, 8, 1, 6, 0, 0, 0, time.UTC)

type harness struct {
	db       *gorm.DB
	registry *prometheus.Registry
	runs     jobrundomain.Repository
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return &harness{
		db:       dbtest.Open(t),
		registry: prometheus.NewRegistry(),
		runs:     jobrunrepo.Provide(),
	}
}

func (h *harness) scheduler(t *testing.T, locker Locker, jobs ...Job) *Scheduler {
	t.Helper()
	s, err := newScheduler(Params{
		DB:      h.db,
		Log:     zap.NewNop(),
		Clock:   clock.NewFakeClock(testNow),
		GenID:   dbtest.Node(t),
		Runs:    h.runs,
		Locker:  locker,
		Metrics: obsmetrics.NewSchedulerWithRegistry(h.registry, obsmetrics.Config{}),
	}, jobs)
	require.NoError(t, err)
	return s
}

func (h *harness) jobRuns(t *testing.T, job string) []jobrundomain.JobRun {
	t.Helper()
	runs, err := h.runs.List(context.Background(), h.db, jobrundomain.ListJobRunFilter{Job: job})
	require.NoError(t, err)
	return runs
}

// metricValue sums the counter or gauge samples of name whose labels include want.
func (h *harness) metricValue(t *testing.T, name string, want map[string]string) float64 {
	t.Helper()
	families, err := h.registry.Gather()
	require.NoError(t, err)

	var total float64
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, m := range family.GetMetric() {
			if !hasLabels(m, want) {
				continue
			}
			switch {
			case m.GetCounter() != nil:
				total += m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				total += m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				total += float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	return total
}

func hasLabels(m *dto.Metric, want map[string]string) bool {
	matched := 0
	for _, pair := range m.GetLabel() {
		if v, ok := want[pair.GetName()]; ok && v == pair.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}

func TestRunJobRecordsSuccess(t *testing.T) {
	h := newHarness(t)
	var seenJob, seenRun string
	s := h.scheduler(t, nil, Job{
		Name:     "replenishment",
		Schedule: "@every 1h",
		Resource: "products",
		Run: func(ctx context.Context) (int, error) {
			seenJob = obscontext.JobFromContext(ctx)
			seenRun = obscontext.RunIDFromContext(ctx)
			return 3, nil
		},
	})

	require.NoError(t, s.RunJob(context.Background(), "replenishment"))

	assert.Equal(t, "replenishment", seenJob)
	assert.Len(t, seenRun, 26)

	runs := h.jobRuns(t, "replenishment")
	require.Len(t, runs, 1)
	assert.Equal(t, jobrundomain.StatusSucceeded, runs[0].Status)
	assert.Equal(t, seenRun, runs[0].CorrelationID)
	require.NotNil(t, runs[0].FinishedAt)
	assert.Equal(t, json.Number("3"), runs[0].Metadata["processed_count"])

	job := map[string]string{"job": "replenishment"}
	assert.Equal(t, 1.0, h.metricValue(t, "crm_scheduler_job_runs_total", job))
	assert.Equal(t, 1.0, h.metricValue(t, "crm_scheduler_job_duration_seconds", job))
	assert.Equal(t, 3.0, h.metricValue(t, "crm_scheduler_batch_processed_total", map[string]string{"job": "replenishment", "resource": "products"}))
	assert.Equal(t, float64(testNow.Unix()), h.metricValue(t, "crm_scheduler_job_last_success_timestamp_seconds", job))
}

func TestRunJobRecoversPanic(t *testing.T) {
	h := newHarness(t)
	s := h.scheduler(t, nil, Job{
		Name:     "reminders",
		Schedule: "@daily",
		Run: func(context.Context) (int, error) {
			var m map[string]int
			m["boom"] = 1
			return 0, nil
		},
	})

	err := s.RunJob(context.Background(), "reminders")
	require.ErrorIs(t, err, obsmetrics.ErrJobPanicked)

	runs := h.jobRuns(t, "reminders")
	require.Len(t, runs, 1)
	assert.Equal(t, jobrundomain.StatusFailed, runs[0].Status)
	assert.Equal(t, obsmetrics.SchedulerJobReasonPanic, runs[0].Metadata["reason"])
	assert.Equal(t, 1.0, h.metricValue(t, "crm_scheduler_job_errors_total",
		map[string]string{"job": "reminders", "reason": obsmetrics.SchedulerJobReasonPanic}))
}

func TestRunJobTimeoutIsSoft(t *testing.T) {
	h := newHarness(t)
	s := h.scheduler(t, nil, Job{
		Name:     "heartbeat",
		Schedule: "@every 1m",
		Timeout:  20 * time.Millisecond,
		Run: func(ctx context.Context) (int, error) {
			<-ctx.Done()
			return 0, ctx.Err()
		},
	})

	require.NoError(t, s.RunJob(context.Background(), "heartbeat"))

	runs := h.jobRuns(t, "heartbeat")
	require.Len(t, runs, 1)
	assert.Equal(t, jobrundomain.StatusFailed, runs[0].Status)
	assert.Equal(t, obsmetrics.SchedulerJobReasonDeadlineExceeded, runs[0].Metadata["reason"])
	assert.Equal(t, 1.0, h.metricValue(t, "crm_scheduler_job_timeouts_total", map[string]string{"job": "heartbeat"}))
}

func TestRunOnceJoinsErrors(t *testing.T) {
	h := newHarness(t)
	var ran atomic.Int32
	failing := errors.New("store down")
	s := h.scheduler(t, nil,
		Job{Name: "a", Schedule: "@hourly", Run: func(context.Context) (int, error) {
			ran.Add(1)
			return 0, failing
		}},
		Job{Name: "b", Schedule: "@hourly", Run: func(context.Context) (int, error) {
			ran.Add(1)
			return 0, nil
		}},
	)

	err := s.RunOnce(context.Background())
	require.ErrorIs(t, err, failing)
	assert.Contains(t, err.Error(), "a: store down")
	assert.Equal(t, int32(2), ran.Load())

	assert.ErrorIs(t, s.RunJob(context.Background(), "missing"), ErrUnknownJob)
}

func TestExclusiveJobSkippedWhileLockHeld(t *testing.T) {
	h := newHarness(t)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	var calls atomic.Int32
	s := h.scheduler(t, ProvideLocker(client), Job{
		Name:      "replenishment",
		Schedule:  "@hourly",
		Exclusive: true,
		Run: func(context.Context) (int, error) {
			calls.Add(1)
			return 0, nil
		},
	})

	require.NoError(t, mr.Set(lockKey("replenishment"), "other-instance"))
	require.NoError(t, s.RunJob(context.Background(), "replenishment"))
	assert.Zero(t, calls.Load())

	runs := h.jobRuns(t, "replenishment")
	require.Len(t, runs, 1)
	assert.Equal(t, jobrundomain.StatusSkipped, runs[0].Status)
	assert.Equal(t, 1.0, h.metricValue(t, "crm_scheduler_job_skipped_total",
		map[string]string{"job": "replenishment", "reason": obsmetrics.SchedulerSkipReasonLockHeld}))

	mr.Del(lockKey("replenishment"))
	require.NoError(t, s.RunJob(context.Background(), "replenishment"))
	assert.Equal(t, int32(1), calls.Load())
	assert.False(t, mr.Exists(lockKey("replenishment")), "lock released after the run")
}

func TestRedisLockerReleasesOnlyOwnToken(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	locker := NewRedisLocker(client)
	ctx := context.Background()

	token, ok, err := locker.TryLock(ctx, "k", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = locker.TryLock(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, locker.Release(ctx, "k", "not-mine"))
	assert.True(t, mr.Exists("k"))

	require.NoError(t, locker.Release(ctx, "k", token))
	assert.False(t, mr.Exists("k"))

	_, _, err = locker.TryLock(ctx, "k", 0)
	assert.Error(t, err)
	assert.Nil(t, ProvideLocker(nil))
}

func TestStartRejectsBadSchedule(t *testing.T) {
	h := newHarness(t)
	s := h.scheduler(t, nil, Job{
		Name:     "broken",
		Schedule: "every now and then",
		Run:      func(context.Context) (int, error) { return 0, nil },
	})

	err := s.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
	require.NoError(t, s.Stop(context.Background()))
}

func TestStartAndStop(t *testing.T) {
	h := newHarness(t)
	done := make(chan struct{}, 1)
	s := h.scheduler(t, nil, Job{
		Name:     "tick",
		Schedule: "* * * * * *",
		Run: func(context.Context) (int, error) {
			select {
			case done <- struct{}{}:
			default:
			}
			return 0, nil
		},
	})

	require.NoError(t, s.Start())
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("job did not fire")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
}

func TestNewSchedulerValidates(t *testing.T) {
	_, err := newScheduler(Params{}, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = New(Params{})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	h := newHarness(t)
	_, err = newScheduler(Params{
		DB:    h.db,
		Log:   zap.NewNop(),
		Clock: clock.NewFakeClock(testNow),
		GenID: dbtest.Node(t),
	}, []Job{{Name: "no-run"}})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
