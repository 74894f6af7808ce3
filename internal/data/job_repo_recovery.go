package data

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pageforge/ocrworker/internal/data/pgxutil"
	"github.com/pageforge/ocrworker/internal/domain/model"
)

// Advisory lock namespace for recovery operations.
// Using two-arg pg_try_advisory_xact_lock(major, minor) for proper namespacing.
// Major key 2100 is reserved for ocrworker recovery operations.
const (
	advisoryLockRecoveryMajor   = 2100
	advisoryLockRecoveryReclaim = 1 // minor key for ReclaimStale
)

// ReclaimStale returns jobs stuck in claimed or processing past the staleness
// threshold to pending, clearing the claim fields. attempt_count is
// deliberately preserved so operators can see how often a job has been
// picked up. Uses an advisory lock so concurrent reaper instances do not
// both fire.
func (r *JobRepo) ReclaimStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	var rowsAffected int64
	err := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			var locked bool
			if err := tx.QueryRowContext(ctx, "SELECT pg_try_advisory_xact_lock($1, $2)", advisoryLockRecoveryMajor, advisoryLockRecoveryReclaim).Scan(&locked); err != nil {
				return fmt.Errorf("acquire advisory lock: %w", err)
			}
			if !locked {
				rowsAffected = 0
				return nil
			}

			currentTime := r.timeProvider.Now()
			cutoffTime := currentTime.Add(-olderThan)

			res, err := tx.ExecContext(ctx, `
				UPDATE ocr_jobs
				SET status = 'pending',
				    claimed_by = NULL,
				    claimed_at = NULL,
				    updated_at = $1
				WHERE status IN ('claimed', 'processing')
				  AND claimed_at IS NOT NULL
				  AND claimed_at < $2
			`, currentTime.UTC(), cutoffTime.UTC())
			if err != nil {
				return fmt.Errorf("reclaim stale: %w", err)
			}

			ra, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("rows affected: %w", err)
			}
			rowsAffected = ra
			return nil
		},
	})
	if err != nil {
		return 0, classifyInfra("reclaim stale", err)
	}
	return rowsAffected, nil
}

// Requeue resets a failed job back to pending for explicit re-processing.
// attempt_count is preserved for observability; only the terminal state and
// claim fields are cleared.
func (r *JobRepo) Requeue(ctx context.Context, jobID string) (bool, error) {
	currentTime := r.timeProvider.Now().UTC()

	res, err := r.DB.ExecContext(ctx, `
		UPDATE ocr_jobs
		SET status = 'pending',
		    claimed_by = NULL,
		    claimed_at = NULL,
		    completed_at = NULL,
		    updated_at = $2
		WHERE id = $1 AND status = 'failed'
	`, jobID, currentTime)
	if err != nil {
		return false, classifyInfra("requeue job", err)
	}

	return oneRowAffected(res)
}

// ListFailed returns recently failed jobs, newest failure first.
func (r *JobRepo) ListFailed(ctx context.Context, limit int) ([]*model.Job, error) {
	if limit <= 0 {
		limit = 50
	}

	var jobs []*model.Job
	err := pgxutil.WithPgxConn(ctx, r.DB, func(pgxConn *pgx.Conn) error {
		rows, err := pgxConn.Query(ctx, `
			SELECT `+jobColumns+`
			FROM ocr_jobs
			WHERE status = 'failed'
			ORDER BY completed_at DESC NULLS LAST, id
			LIMIT $1
		`, limit)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			job, scanErr := scanJobFromRow(rows)
			if scanErr != nil {
				return scanErr
			}
			jobs = append(jobs, job)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, classifyInfra("list failed", err)
	}
	return jobs, nil
}

// Stats returns job counts per lifecycle state.
func (r *JobRepo) Stats(ctx context.Context) (*model.JobStats, error) {
	var s model.JobStats
	err := r.DB.QueryRowContext(ctx, `
  SELECT
    count(*) FILTER (WHERE status = 'pending')    AS pending,
    count(*) FILTER (WHERE status = 'claimed')    AS claimed,
    count(*) FILTER (WHERE status = 'processing') AS processing,
    count(*) FILTER (WHERE status = 'succeeded')  AS succeeded,
    count(*) FILTER (WHERE status = 'failed')     AS failed
  FROM ocr_jobs
  `).Scan(
		&s.Pending,
		&s.Claimed,
		&s.Processing,
		&s.Succeeded,
		&s.Failed,
	)
	if err != nil {
		return nil, classifyInfra("job stats", err)
	}
	return &s, nil
}
