package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pageforge/ocrworker/internal/domain/model"
)

// JobBuilder provides a fluent interface for seeding ocr_jobs rows in tests.
// Jobs are normally created by the upstream ingestion system, so tests insert
// rows directly rather than going through a repository method.
type JobBuilder struct {
	job *model.Job
}

// NewJob creates a JobBuilder with sensible defaults: a pending job owned by
// a fixed test owner, created at TestTime.
func NewJob() *JobBuilder {
	now := TestTime()
	return &JobBuilder{
		job: &model.Job{
			ID:          uuid.NewString(),
			DocumentKey: "documents/test/sample.pdf",
			OwnerID:     "owner-test",
			Status:      model.JobStatusPending,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
	}
}

// WithID sets the job ID.
func (b *JobBuilder) WithID(id string) *JobBuilder {
	b.job.ID = id
	return b
}

// WithDocumentKey sets the source document key.
func (b *JobBuilder) WithDocumentKey(key string) *JobBuilder {
	b.job.DocumentKey = key
	return b
}

// WithOwnerID sets the owning account.
func (b *JobBuilder) WithOwnerID(ownerID string) *JobBuilder {
	b.job.OwnerID = ownerID
	return b
}

// WithStatus sets the lifecycle status.
func (b *JobBuilder) WithStatus(status model.JobStatus) *JobBuilder {
	b.job.Status = status
	return b
}

// WithClaim sets the claim fields as if workerID claimed the job at claimedAt.
func (b *JobBuilder) WithClaim(workerID string, claimedAt time.Time) *JobBuilder {
	b.job.ClaimedBy = StringPtr(workerID)
	b.job.ClaimedAt = TimePtr(claimedAt)
	return b
}

// WithAttemptCount sets the attempt counter.
func (b *JobBuilder) WithAttemptCount(n int) *JobBuilder {
	b.job.AttemptCount = n
	return b
}

// WithLastError sets the stored error message.
func (b *JobBuilder) WithLastError(msg string) *JobBuilder {
	b.job.LastError = StringPtr(msg)
	return b
}

// WithResultKey sets the persisted result key.
func (b *JobBuilder) WithResultKey(key string) *JobBuilder {
	b.job.ResultKey = StringPtr(key)
	return b
}

// WithCompletedAt sets the completion timestamp.
func (b *JobBuilder) WithCompletedAt(t time.Time) *JobBuilder {
	b.job.CompletedAt = TimePtr(t)
	return b
}

// WithCreatedAt sets the creation timestamp. Claim ordering is FIFO by
// created_at, so tests that care about ordering set this explicitly.
func (b *JobBuilder) WithCreatedAt(t time.Time) *JobBuilder {
	b.job.CreatedAt = t
	b.job.UpdatedAt = t
	return b
}

// Build returns the constructed job.
func (b *JobBuilder) Build() *model.Job {
	return b.job
}

// Insert writes the job into the database and returns it.
func (b *JobBuilder) Insert(t TestingTB, db *sql.DB) *model.Job {
	t.Helper()
	InsertJob(t, db, b.job)
	return b.job
}

// InsertJob inserts a job row directly, the way the upstream ingestion system
// would.
func InsertJob(t TestingTB, db *sql.DB, job *model.Job) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := db.ExecContext(ctx, `
		INSERT INTO ocr_jobs (
			id, document_key, owner_id, status,
			claimed_by, claimed_at, completed_at,
			attempt_count, last_error, result_key,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		job.ID, job.DocumentKey, job.OwnerID, string(job.Status),
		job.ClaimedBy, job.ClaimedAt, job.CompletedAt,
		job.AttemptCount, job.LastError, job.ResultKey,
		job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("Failed to insert test job %s: %v", job.ID, err)
	}
}

// InsertPendingJobs seeds n pending jobs with ascending created_at, one second
// apart, and returns them in insertion (FIFO) order.
func InsertPendingJobs(t TestingTB, db *sql.DB, n int) []*model.Job {
	t.Helper()

	jobs := make([]*model.Job, 0, n)
	base := TestTime()
	for i := 0; i < n; i++ {
		job := NewJob().
			WithDocumentKey(fmt.Sprintf("documents/test/doc-%03d.pdf", i)).
			WithCreatedAt(base.Add(time.Duration(i) * time.Second)).
			Insert(t, db)
		jobs = append(jobs, job)
	}
	return jobs
}
