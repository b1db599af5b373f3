package scheduler

import (
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	runs atomic.Int64
	err  error
}

func (j *countingJob) Name() string { return "counting" }

func (j *countingJob) Run() error {
	j.runs.Add(1)
	return j.err
}

func TestAddJobRejectsBadSchedule(t *testing.T) {
	s := New(zerolog.Nop())
	err := s.AddJob("not a schedule", &countingJob{})
	assert.Error(t, err)
}

func TestAddJobAcceptsCronAndDescriptors(t *testing.T) {
	s := New(zerolog.Nop())
	assert.NoError(t, s.AddJob("@every 5m", &countingJob{}))
	assert.NoError(t, s.AddJob("0 30 2 * * *", &countingJob{}))
}

func TestRunNowExecutesImmediately(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{}

	require.NoError(t, s.RunNow(job))
	assert.Equal(t, int64(1), job.runs.Load())
}

func TestStartStop(t *testing.T) {
	s := New(zerolog.Nop())
	require.NoError(t, s.AddJob("@every 1h", &countingJob{}))

	s.Start()
	s.Stop()
}
