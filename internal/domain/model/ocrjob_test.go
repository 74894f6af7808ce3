package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobStatus_Valid(t *testing.T) {
	valid := []JobStatus{
		JobStatusPending,
		JobStatusClaimed,
		JobStatusProcessing,
		JobStatusSucceeded,
		JobStatusFailed,
	}
	for _, s := range valid {
		assert.True(t, s.Valid(), "status %q should be valid", s)
	}

	assert.False(t, JobStatus("").Valid())
	assert.False(t, JobStatus("running").Valid())
	assert.False(t, JobStatus("PENDING").Valid())
}

func TestJobStatus_Terminal(t *testing.T) {
	assert.True(t, JobStatusSucceeded.Terminal())
	assert.True(t, JobStatusFailed.Terminal())
	assert.False(t, JobStatusPending.Terminal())
	assert.False(t, JobStatusClaimed.Terminal())
	assert.False(t, JobStatusProcessing.Terminal())
}

func TestJobStatus_UnmarshalText(t *testing.T) {
	var s JobStatus
	require.NoError(t, s.UnmarshalText([]byte("  Processing ")))
	assert.Equal(t, JobStatusProcessing, s)

	err := s.UnmarshalText([]byte("bogus"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid JobStatus")
}

func TestJob_Claimed(t *testing.T) {
	job := &Job{Status: JobStatusPending}
	assert.False(t, job.Claimed())

	job.Status = JobStatusClaimed
	assert.True(t, job.Claimed())

	job.Status = JobStatusProcessing
	assert.True(t, job.Claimed())

	job.Status = JobStatusSucceeded
	assert.False(t, job.Claimed())
}

func TestJob_Retried(t *testing.T) {
	job := &Job{AttemptCount: 1}
	assert.False(t, job.Retried(), "first attempt is not a retry")

	job.AttemptCount = 2
	assert.True(t, job.Retried())
}

func TestJob_ClaimFields(t *testing.T) {
	now := time.Now()
	worker := "worker-1"
	job := &Job{
		Status:    JobStatusClaimed,
		ClaimedBy: &worker,
		ClaimedAt: &now,
	}
	require.NotNil(t, job.ClaimedBy)
	assert.Equal(t, "worker-1", *job.ClaimedBy)
}
