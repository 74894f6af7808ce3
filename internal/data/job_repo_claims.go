package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/pageforge/ocrworker/internal/data/pgxutil"
	"github.com/pageforge/ocrworker/internal/domain/model"
)

// SQL used by ClaimNext to atomically claim the oldest pending job. The CTE
// with FOR UPDATE SKIP LOCKED guarantees that concurrent claimers across
// processes and hosts never both receive the same row: the row lock is taken
// inside the same statement that performs the conditional status update.
// Ordering is FIFO by creation time with id as the deterministic tie-break.
const claimNextUpdateSQL = `
  WITH next AS (
    SELECT id FROM ocr_jobs
    WHERE status = 'pending'
    ORDER BY created_at ASC, id ASC
    LIMIT 1
    FOR UPDATE SKIP LOCKED
  )
  UPDATE ocr_jobs j
  SET
    status = 'claimed',
    claimed_by = $1,
    claimed_at = $2,
    attempt_count = attempt_count + 1,
    updated_at = $2
  FROM next
  WHERE j.id = next.id
  RETURNING ` + jobColumns

// ClaimNext atomically claims the next pending job for the given worker.
// Returns model.ErrNoJobsAvailable when the queue is empty; that is an idle
// condition, not an error.
func (r *JobRepo) ClaimNext(ctx context.Context, workerID string) (*model.Job, error) {
	if strings.TrimSpace(workerID) == "" {
		return nil, errors.New("worker id is required")
	}

	var job *model.Job
	err := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Opts: &sql.TxOptions{
			Isolation: sql.LevelReadCommitted,
			ReadOnly:  false,
		},
		Fn: func(tx pgx.Tx) error {
			currentTime := r.timeProvider.Now().UTC()

			rows, qerr := tx.Query(ctx, claimNextUpdateSQL, workerID, currentTime)
			if qerr != nil {
				return fmt.Errorf("claim job: %w", qerr)
			}
			defer rows.Close()

			j, cerr := collectJobFromRows(rows)
			if errors.Is(cerr, pgx.ErrNoRows) {
				return model.ErrNoJobsAvailable
			}
			if cerr != nil {
				return fmt.Errorf("claim job: %w", cerr)
			}
			job = j
			return nil
		},
	})
	if err != nil {
		if errors.Is(err, model.ErrNoJobsAvailable) {
			return nil, model.ErrNoJobsAvailable
		}
		return nil, classifyInfra("claim next", err)
	}
	return job, nil
}

// MarkProcessing transitions a job from claimed to processing. It acts as a
// checkpoint that lets the reaper distinguish "claimed but never started"
// from "actively running". Returns false when the job was not in claimed
// status (already reclaimed, or finished by someone else).
func (r *JobRepo) MarkProcessing(ctx context.Context, jobID string) (bool, error) {
	currentTime := r.timeProvider.Now().UTC()

	res, err := r.DB.ExecContext(ctx, `
		UPDATE ocr_jobs
		SET status = 'processing',
		    updated_at = $2
		WHERE id = $1 AND status = 'claimed'
	`, jobID, currentTime)
	if err != nil {
		return false, classifyInfra("mark processing", err)
	}

	return oneRowAffected(res)
}

// MarkSucceeded transitions a job from processing to succeeded and records
// where the result artifact was written.
func (r *JobRepo) MarkSucceeded(ctx context.Context, jobID, resultKey string) (bool, error) {
	if strings.TrimSpace(resultKey) == "" {
		return false, errors.New("result key is required")
	}

	currentTime := r.timeProvider.Now().UTC()

	res, err := r.DB.ExecContext(ctx, `
		UPDATE ocr_jobs
		SET status = 'succeeded',
		    result_key = $2,
		    completed_at = $3,
		    last_error = NULL,
		    updated_at = $3
		WHERE id = $1 AND status = 'processing'
	`, jobID, resultKey, currentTime)
	if err != nil {
		return false, classifyInfra("mark succeeded", err)
	}

	return oneRowAffected(res)
}

// MarkFailed transitions a job from claimed or processing to failed. The
// error message is the sole failure-reporting channel and is truncated to
// keep the row small.
func (r *JobRepo) MarkFailed(ctx context.Context, jobID, errMsg string) (bool, error) {
	currentTime := r.timeProvider.Now().UTC()

	res, err := r.DB.ExecContext(ctx, `
		UPDATE ocr_jobs
		SET status = 'failed',
		    last_error = $2,
		    completed_at = $3,
		    updated_at = $3
		WHERE id = $1 AND status IN ('claimed', 'processing')
	`, jobID, truncateError(errMsg), currentTime)
	if err != nil {
		return false, classifyInfra("mark failed", err)
	}

	return oneRowAffected(res)
}

// GetByID retrieves a job by its ID.
func (r *JobRepo) GetByID(ctx context.Context, jobID string) (*model.Job, error) {
	var job *model.Job
	err := pgxutil.WithPgxConn(ctx, r.DB, func(pgxConn *pgx.Conn) error {
		rows, err := pgxConn.Query(ctx, `
			SELECT `+jobColumns+`
			FROM ocr_jobs
			WHERE id = $1
		`, jobID)
		if err != nil {
			return err
		}
		defer rows.Close()
		job, err = collectJobFromRows(rows)
		return err
	})

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, classifyInfra("get job", err)
	}
	return job, nil
}

const maxStoredErrorLen = 500

func truncateError(msg string) string {
	if len(msg) <= maxStoredErrorLen {
		return msg
	}
	// Cutting mid-rune would hand postgres invalid UTF-8 and fail the very
	// update that records the failure.
	cut := maxStoredErrorLen
	for cut > 0 && !utf8.RuneStart(msg[cut]) {
		cut--
	}
	return msg[:cut]
}

func oneRowAffected(res sql.Result) (bool, error) {
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}
