package schedjobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCronMatches(t *testing.T) {
	job := NewIntervalCronJob("remind", 15, nil)
	at := func(h, m int) time.Time { return time.Date(2024, 3, 14, h, m, 0, 0, time.UTC) }

	assert.True(t, job.Matches(at(7, 0)))
	assert.True(t, job.Matches(at(7, 45)))
	assert.False(t, job.Matches(at(7, 20)))

	job.Hours = BitsFromHours([]int{7, 8})
	assert.True(t, job.Matches(at(8, 30)))
	assert.False(t, job.Matches(at(9, 30)))

	job.Weekdays = BitsFromWeekdays([]int{int(time.Friday)})
	assert.False(t, job.Matches(at(8, 30))) // Thursday
	job.DaysOfMonth = BitsFromDaysOfMonth([]int{15})
	assert.True(t, job.Matches(time.Date(2024, 3, 15, 8, 30, 0, 0, time.UTC)))
}

func TestIntervalCronJobEveryMinute(t *testing.T) {
	assert.Equal(t, AllMinutes, NewIntervalCronJob("x", 1, nil).Minutes)
	assert.Equal(t, BitsFromMinutes([]int{0, 20, 40}), NewIntervalCronJob("x", 20, nil).Minutes)
}

func TestTickRunsMatchingCronJobs(t *testing.T) {
	s := NewScheduler()
	var runs atomic.Int32
	var finished atomic.Int32
	boom := errors.New("boom")
	s.OnCronJobFinished = func(job *CronJob, err error) {
		if errors.Is(err, boom) {
			finished.Add(1)
		}
	}
	s.AddCronJob(NewIntervalCronJob("every15", 15, func(ctx context.Context) error {
		runs.Add(1)
		return boom
	}))
	s.AddCronJob(NewIntervalCronJob("panics", 1, func(ctx context.Context) error {
		panic("oops")
	}))

	s.Tick(time.Date(2024, 3, 14, 7, 15, 0, 0, time.Local))
	s.Tick(time.Date(2024, 3, 14, 7, 16, 0, 0, time.Local))
	s.Wait()
	assert.EqualValues(t, 1, runs.Load())
	assert.EqualValues(t, 1, finished.Load())

	_, ok := s.CronJob("every15")
	assert.True(t, ok)
	s.DeleteCronJob("every15")
	_, ok = s.CronJob("every15")
	assert.False(t, ok)
	assert.Len(t, s.GetCronJobs(), 1)
}

func TestOneTimeJob(t *testing.T) {
	s := NewScheduler()
	require.Error(t, s.AddOneTimeJob(&OneTimeJob{ID: "past", ExecTime: time.Now()}))

	exec := time.Now().Add(5 * time.Minute).Truncate(time.Minute).Add(10 * time.Second)
	done := make(chan error, 1)
	added := false
	require.NoError(t, s.AddOneTimeJob(&OneTimeJob{
		ID:         "once",
		ExecTime:   exec,
		Task:       func(ctx context.Context) error { return nil },
		OnAdded:    func() { added = true },
		OnFinished: func(err error) { done <- err },
	}))
	assert.True(t, added)
	require.Len(t, s.GetOneTimeJobs(), 1)

	s.Tick(exec.Truncate(time.Minute).Add(time.Minute)) // rounded up
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("one-time job did not run")
	}
	assert.Empty(t, s.GetOneTimeJobs())
}

func TestStartStop(t *testing.T) {
	s := NewScheduler()
	require.NoError(t, s.Start())
	assert.Error(t, s.Start())
	s.Stop()
	select {
	case err := <-s.Done():
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("no shutdown signal")
	}
}
