// Package model defines the core data types and structures used throughout the ocrworker job system.
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// JobStatus represents the current lifecycle state of an OCR job.
type JobStatus string

const (
	// JobStatusPending indicates a job is waiting to be claimed by a worker.
	JobStatusPending JobStatus = "pending"
	// JobStatusClaimed indicates a worker holds the job but has not started processing.
	JobStatusClaimed JobStatus = "claimed"
	// JobStatusProcessing indicates a worker is actively processing the job.
	JobStatusProcessing JobStatus = "processing"
	// JobStatusSucceeded indicates the job finished and its result artifact was persisted.
	JobStatusSucceeded JobStatus = "succeeded"
	// JobStatusFailed indicates the job terminated with an error.
	JobStatusFailed JobStatus = "failed"
)

// ErrNoJobsAvailable is returned when no pending jobs are available to claim.
var ErrNoJobsAvailable = errors.New("no jobs available")

// Valid returns true if the JobStatus is one of the known lifecycle states.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusPending, JobStatusClaimed, JobStatusProcessing, JobStatusSucceeded, JobStatusFailed:
		return true
	default:
		return false
	}
}

// Terminal returns true for states that end a job's lifecycle.
func (s JobStatus) Terminal() bool {
	return s == JobStatusSucceeded || s == JobStatusFailed
}

// UnmarshalText implements encoding.TextUnmarshaler for JobStatus to allow env parsing.
func (s *JobStatus) UnmarshalText(text []byte) error {
	v := JobStatus(strings.ToLower(strings.TrimSpace(string(text))))
	if !v.Valid() {
		return fmt.Errorf("invalid JobStatus: %q", v)
	}
	*s = v
	return nil
}

// Job is one row of the shared OCR job table.
//
// Rows are created by the upstream ingestion system in pending status and are
// mutated exclusively through the JobRepo claim/update operations. Jobs are
// never deleted by this system.
type Job struct {
	ID           string
	DocumentKey  string
	OwnerID      string
	Status       JobStatus
	ClaimedBy    *string
	ClaimedAt    *time.Time
	CompletedAt  *time.Time
	AttemptCount int
	LastError    *string
	ResultKey    *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Claimed reports whether the job currently carries a worker claim.
func (j *Job) Claimed() bool {
	return j.Status == JobStatusClaimed || j.Status == JobStatusProcessing
}

// Retried reports whether this claim is a repeat attempt. The processor uses
// this to probe for a result artifact left behind by a crashed predecessor.
func (j *Job) Retried() bool {
	return j.AttemptCount > 1
}

// JobStats summarises job counts per status for operator visibility.
type JobStats struct {
	Pending    int64 `json:"pending"`
	Claimed    int64 `json:"claimed"`
	Processing int64 `json:"processing"`
	Succeeded  int64 `json:"succeeded"`
	Failed     int64 `json:"failed"`
}
