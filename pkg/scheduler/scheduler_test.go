package scheduler_test

import (
	"context"
	"errors"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/docvault/pkg/metrics"
	"github.com/yeisme/docvault/pkg/scheduler"
)

// yearly 测试期间不会自然触发.
const yearly = "0 0 1 1 *"

func newScheduler(t *testing.T) *scheduler.Scheduler {
	t.Helper()

	s, err := scheduler.NewScheduler()
	require.NoError(t, err)

	s.Start()
	t.Cleanup(func() { _ = s.Stop() })

	return s
}

func okRuns(t *testing.T, name string) float64 {
	t.Helper()

	var m dto.Metric
	require.NoError(t, metrics.SchedulerJobRuns.WithLabelValues(name, "ok").Write(&m))

	return m.GetCounter().GetValue()
}

func waitRuns(t *testing.T, s *scheduler.Scheduler, name string, runs int) scheduler.JobInfo {
	t.Helper()

	var info scheduler.JobInfo

	require.Eventually(t, func() bool {
		var err error
		info, err = s.Job(name)

		return err == nil && info.Runs == runs
	}, 5*time.Second, 10*time.Millisecond)

	return info
}

func TestRunNowRecordsSuccess(t *testing.T) {
	s := newScheduler(t)

	ran := make(chan struct{}, 1)
	require.NoError(t, s.AddCron("validate-sweep", yearly, func(ctx context.Context) error {
		ran <- struct{}{}
		return nil
	}, context.Background()))

	before := okRuns(t, "validate-sweep")

	require.NoError(t, s.RunNow("validate-sweep"))

	info := waitRuns(t, s, "validate-sweep", 1)
	assert.Len(t, ran, 1)
	assert.Equal(t, scheduler.StatusScheduled, info.Status)
	assert.Zero(t, info.Failures)
	assert.False(t, info.LastSuccess.IsZero())
	assert.False(t, info.NextRun.IsZero())

	assert.Equal(t, before+1, okRuns(t, "validate-sweep"))
}

func TestRunNowRecordsFailure(t *testing.T) {
	s := newScheduler(t)

	require.NoError(t, s.AddCron("trash-purge", yearly, func(ctx context.Context) error {
		return errors.New("purge 7: remove docs/2026/10/a.pdf: permission denied")
	}, context.Background()))

	require.NoError(t, s.RunNow("trash-purge"))

	info := waitRuns(t, s, "trash-purge", 1)
	assert.Equal(t, scheduler.StatusError, info.Status)
	assert.Equal(t, 1, info.Failures)
	assert.Contains(t, info.Error, "permission denied")
	assert.True(t, info.LastSuccess.IsZero())
}

func TestPanicIsRecorded(t *testing.T) {
	s := newScheduler(t)

	require.NoError(t, s.AddCron("validate-sweep", yearly, func(ctx context.Context) error {
		panic("nil validator")
	}, context.Background()))

	require.NoError(t, s.RunNow("validate-sweep"))

	info := waitRuns(t, s, "validate-sweep", 1)
	assert.Equal(t, scheduler.StatusError, info.Status)
	assert.Contains(t, info.Error, "nil validator")
}

func TestJobsByName(t *testing.T) {
	s := newScheduler(t)
	noop := func(ctx context.Context) error { return nil }

	require.NoError(t, s.AddCron("validate-sweep", yearly, noop, context.Background()))
	require.NoError(t, s.AddCron("trash-purge", "30 3 * * *", noop, context.Background()))
	assert.Error(t, s.AddCron("trash-purge", yearly, noop, context.Background()))

	jobs := s.Jobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, "trash-purge", jobs[0].Name)
	assert.Equal(t, "30 3 * * *", jobs[0].CronExpr)
	assert.Equal(t, "validate-sweep", jobs[1].Name)

	require.NoError(t, s.Remove("trash-purge"))

	_, err := s.Job("trash-purge")
	assert.ErrorIs(t, err, scheduler.ErrJobNotFound)
	assert.ErrorIs(t, s.RunNow("trash-purge"), scheduler.ErrJobNotFound)
	assert.ErrorIs(t, s.Remove("trash-purge"), scheduler.ErrJobNotFound)
	assert.Len(t, s.Jobs(), 1)
}

func TestStopJobsMarksStopped(t *testing.T) {
	s := newScheduler(t)

	require.NoError(t, s.AddCron("validate-sweep", yearly, func(ctx context.Context) error { return nil }, context.Background()))
	require.NoError(t, s.StopJobs())

	info, err := s.Job("validate-sweep")
	require.NoError(t, err)
	assert.Equal(t, scheduler.StatusStopped, info.Status)
}
