// Package devseed seeds a local database with representative OCR jobs for
// development. Production deployments never call into this package: jobs are
// created by the upstream ingestion pipeline.
package devseed

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pageforge/ocrworker/internal/data"
	"github.com/pageforge/ocrworker/internal/domain/model"
)

// Services bundles the dependencies needed for development seeding.
type Services struct {
	DB   *sql.DB
	Jobs *data.JobRepo
}

// NewServices constructs the repositories needed for seeding using the provided DB.
func NewServices(db *sql.DB) Services {
	return Services{
		DB:   db,
		Jobs: data.NewJobRepo(db, data.RepoConfig{}),
	}
}

type seedJob struct {
	DocumentKey string
	OwnerID     string
	Status      model.JobStatus
	LastError   string
}

// seedJobs mirrors what the ingestion pipeline would enqueue: mostly pending
// work plus one failed row so the list-failed and requeue admin commands have
// something to show.
func seedJobs() []seedJob {
	return []seedJob{
		{DocumentKey: "documents/acme/invoices/2024-03.pdf", OwnerID: "acme-corp", Status: model.JobStatusPending},
		{DocumentKey: "documents/acme/invoices/2024-04.pdf", OwnerID: "acme-corp", Status: model.JobStatusPending},
		{DocumentKey: "documents/globex/contracts/msa-v2.pdf", OwnerID: "globex", Status: model.JobStatusPending},
		{DocumentKey: "documents/globex/contracts/nda.pdf", OwnerID: "globex", Status: model.JobStatusPending},
		{DocumentKey: "documents/initech/reports/tps-0199.pdf", OwnerID: "initech", Status: model.JobStatusPending},
		{
			DocumentKey: "documents/initech/reports/corrupt.pdf",
			OwnerID:     "initech",
			Status:      model.JobStatusFailed,
			LastError:   "read page count: document is not a valid PDF",
		},
	}
}

// Run executes the development seeding workflow against the provided DB.
// Seeding is idempotent on document key: rows that already exist are skipped.
func Run(ctx context.Context, svcs Services, logger *slog.Logger) error {
	failures := 0
	for _, s := range seedJobs() {
		inserted, err := insertJob(ctx, svcs.DB, s)
		if err != nil {
			failures++
			if logger != nil {
				logger.WarnContext(ctx, "failed to seed job",
					"document_key", s.DocumentKey, "error", err)
			}
			continue
		}
		if logger != nil && inserted {
			logger.InfoContext(ctx, "seeded job",
				"document_key", s.DocumentKey,
				"owner_id", s.OwnerID,
				"status", string(s.Status))
		}
	}

	if failures > 0 {
		return fmt.Errorf("%d seed errors; check logs", failures)
	}

	if svcs.Jobs != nil && logger != nil {
		if stats, statsErr := svcs.Jobs.Stats(ctx); statsErr == nil {
			logger.InfoContext(ctx, "seed complete",
				"pending", stats.Pending, "failed", stats.Failed)
		}
	}
	return nil
}

func insertJob(ctx context.Context, db *sql.DB, s seedJob) (bool, error) {
	var exists bool
	err := db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM ocr_jobs WHERE document_key = $1 AND owner_id = $2)
	`, s.DocumentKey, s.OwnerID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check existing job: %w", err)
	}
	if exists {
		return false, nil
	}

	now := time.Now().UTC()
	var lastError *string
	var completedAt *time.Time
	attempts := 0
	if s.Status == model.JobStatusFailed {
		lastError = &s.LastError
		completedAt = &now
		attempts = 1
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO ocr_jobs (
			id, document_key, owner_id, status,
			attempt_count, last_error, completed_at,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
	`,
		uuid.NewString(), s.DocumentKey, s.OwnerID, string(s.Status),
		attempts, lastError, completedAt, now,
	)
	if err != nil {
		return false, fmt.Errorf("insert job: %w", err)
	}
	return true, nil
}
