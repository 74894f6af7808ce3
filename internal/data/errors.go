package data

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pageforge/ocrworker/internal/domain/model"
)

// ErrJobNotFound is returned when a job is not found.
var ErrJobNotFound = errors.New("job not found")

// classifyInfra wraps database errors as retryable infrastructure failures.
// Context cancellation passes through untouched so callers can distinguish
// shutdown from genuine store trouble. Constraint violations are kept
// unwrapped too: retrying them is pointless.
func classifyInfra(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgerrcode.IsIntegrityConstraintViolation(pgErr.Code) || pgerrcode.IsDataException(pgErr.Code) {
			return err
		}
	}

	return model.NewInfrastructureError(op, err)
}
