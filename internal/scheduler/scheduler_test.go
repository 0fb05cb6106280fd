package scheduler

import (
	"errors"
	"testing"

	"github.com/MysteriousMoon/AI-Money-Manager-sub000/internal/scheduler/base"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	base.JobBase
	runs int
	err  error
}

func (j *countingJob) Run() error {
	j.runs++
	return j.err
}

func (j *countingJob) Name() string { return "counting" }

func TestAddJob_InvalidSchedule(t *testing.T) {
	s := New(zerolog.Nop())
	err := s.AddJob("not a schedule", &countingJob{})
	assert.Error(t, err)
	assert.Empty(t, s.Jobs())
}

func TestAddJob_ListsJob(t *testing.T) {
	s := New(zerolog.Nop())
	require.NoError(t, s.AddJob("0 5 0 * * *", &countingJob{}))

	jobs := s.Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, "counting", jobs[0].Name)
	assert.Equal(t, "0 5 0 * * *", jobs[0].Schedule)
}

func TestRunNow_RecordsStatus(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{err: errors.New("boom")}
	require.NoError(t, s.AddJob("@hourly", job))

	err := s.RunNow(job)
	assert.EqualError(t, err, "boom")
	assert.Equal(t, 1, job.runs)

	jobs := s.Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, int64(1), jobs[0].Status.Runs)
	assert.Equal(t, "boom", jobs[0].Status.LastError)
}

func TestStartStop(t *testing.T) {
	s := New(zerolog.Nop())
	s.Start()
	s.Stop()
}

func TestLookup(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{}
	require.NoError(t, s.AddJob("@daily", job))

	found, ok := s.Lookup("counting")
	require.True(t, ok)
	assert.Same(t, job, found)

	_, ok = s.Lookup("missing")
	assert.False(t, ok)
}
