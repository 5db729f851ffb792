package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	name string
	runs atomic.Int32
	err  error
	ran  chan struct{}
}

func newCountingJob(name string) *countingJob {
	return &countingJob{name: name, ran: make(chan struct{}, 16)}
}

func (j *countingJob) Name() string        { return j.name }
func (j *countingJob) Description() string { return "counts runs" }

func (j *countingJob) Run(context.Context) error {
	j.runs.Add(1)
	select {
	case j.ran <- struct{}{}:
	default:
	}
	return j.err
}

func TestScheduler_Register(t *testing.T) {
	s, err := NewScheduler(SchedulerConfig{})
	require.NoError(t, err)

	job := newCountingJob("count")
	require.NoError(t, s.Register(job, time.Hour))

	assert.ErrorIs(t, s.Register(job, time.Hour), ErrJobAlreadyExists)
	assert.ErrorIs(t, s.Register(nil, time.Hour), ErrNilJob)
	assert.ErrorIs(t, s.Register(newCountingJob("zero"), 0), ErrInvalidInterval)

	jobs := s.ListJobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, "count", jobs[0].Name)
	assert.Equal(t, time.Hour, jobs[0].Every)
}

func TestScheduler_RunNow(t *testing.T) {
	s, err := NewScheduler(SchedulerConfig{})
	require.NoError(t, err)

	failing := newCountingJob("failing")
	failing.err = errors.New("boom")
	require.NoError(t, s.Register(failing, time.Hour))

	result, err := s.RunNow(context.Background(), "failing")
	assert.EqualError(t, err, "boom")
	require.NotNil(t, result)
	assert.False(t, result.Success)
	assert.True(t, result.Manual)

	info := s.ListJobs()[0]
	assert.Equal(t, int64(1), info.RunCount)
	assert.Equal(t, int64(1), info.FailCount)

	_, err = s.RunNow(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestScheduler_RunsOnStart(t *testing.T) {
	s, err := NewScheduler(SchedulerConfig{RunOnStart: true})
	require.NoError(t, err)

	job := newCountingJob("startup")
	require.NoError(t, s.Register(job, time.Hour))
	require.NoError(t, s.Start())
	assert.ErrorIs(t, s.Start(), ErrSchedulerAlreadyRunning)
	assert.True(t, s.IsRunning())

	select {
	case <-job.ran:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not run on start")
	}

	require.NoError(t, s.Stop())
	assert.False(t, s.IsRunning())
	assert.ErrorIs(t, s.Stop(), ErrSchedulerNotRunning)
}
