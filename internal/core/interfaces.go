package core

import (
	"context"
	"time"

	"github.com/pageforge/ocrworker/internal/domain/model"
)

// This file contains the port interfaces (hexagonal architecture) between the
// processing layer and the data/storage adapters. Processors and runners
// depend on these interfaces, not on concrete implementations.

// JobStore defines typed access to the shared OCR job table. All cross-worker
// mutual exclusion derives from the atomic ClaimNext update; no in-memory
// lock coordinates workers across processes.
type JobStore interface {
	// ClaimNext atomically claims the oldest pending job for workerID.
	// Returns model.ErrNoJobsAvailable when no pending row exists.
	ClaimNext(ctx context.Context, workerID string) (*model.Job, error)
	// MarkProcessing transitions claimed -> processing. Returns false when
	// the job was not in claimed status.
	MarkProcessing(ctx context.Context, jobID string) (bool, error)
	// MarkSucceeded transitions processing -> succeeded and records the
	// result artifact location.
	MarkSucceeded(ctx context.Context, jobID, resultKey string) (bool, error)
	// MarkFailed transitions claimed|processing -> failed with an error message.
	MarkFailed(ctx context.Context, jobID, errMsg string) (bool, error)
	// GetByID retrieves a job by its ID.
	GetByID(ctx context.Context, jobID string) (*model.Job, error)
}

// RecoveryStore defines the out-of-band recovery operations used by the
// reaper and by operator tooling.
type RecoveryStore interface {
	// ReclaimStale returns jobs stuck in claimed/processing past the
	// staleness threshold to pending, preserving attempt_count.
	ReclaimStale(ctx context.Context, olderThan time.Duration) (int64, error)
	// Requeue resets a failed job back to pending for explicit re-processing.
	Requeue(ctx context.Context, jobID string) (bool, error)
	// ListFailed returns recently failed jobs, newest first.
	ListFailed(ctx context.Context, limit int) ([]*model.Job, error)
	// Stats summarises job counts per status.
	Stats(ctx context.Context) (*model.JobStats, error)
}

// DocumentStore defines keyed get/put access to object storage.
type DocumentStore interface {
	// Fetch retrieves the raw bytes stored at key.
	Fetch(ctx context.Context, key string) ([]byte, error)
	// Put writes blob at key with the given content type, overwriting any
	// previous object.
	Put(ctx context.Context, key string, blob []byte, contentType string) error
	// Exists reports whether an object is present at key.
	Exists(ctx context.Context, key string) (bool, error)
}

// CacheRepository defines the byte cache used to avoid re-fetching source
// documents when a reclaimed job is retried.
type CacheRepository interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) (bool, error)
	Health(ctx context.Context) error
}
