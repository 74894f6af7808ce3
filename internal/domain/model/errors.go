package model

import (
	"errors"
	"fmt"
)

// InfrastructureError marks store or network failures that are retryable:
// database timeouts, object-storage errors, connection resets.
type InfrastructureError struct {
	Op  string
	Err error
}

func (e *InfrastructureError) Error() string {
	return fmt.Sprintf("infrastructure error: %s: %v", e.Op, e.Err)
}

func (e *InfrastructureError) Unwrap() error { return e.Err }

// NewInfrastructureError wraps err as a retryable infrastructure failure.
func NewInfrastructureError(op string, err error) *InfrastructureError {
	return &InfrastructureError{Op: op, Err: err}
}

// DecodeError marks a corrupt page or document. It is scoped to the page that
// failed to decode and is not retryable for that page.
type DecodeError struct {
	Page int
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode error: page %d: %v", e.Page, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// EngineError marks a recognition call failure. It is page-scoped and
// retryable at the page level up to a small fixed attempt count.
type EngineError struct {
	Err error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("engine error: %v", e.Err)
}

func (e *EngineError) Unwrap() error { return e.Err }

// FatalJobError marks a job-scoped terminal failure: document not found, zero
// pages, every page failed. Jobs failing with this are not retried
// automatically; re-processing requires an explicit reset to pending.
type FatalJobError struct {
	Reason string
	Err    error
}

func (e *FatalJobError) Error() string {
	if e.Err == nil {
		return "fatal job error: " + e.Reason
	}
	return fmt.Sprintf("fatal job error: %s: %v", e.Reason, e.Err)
}

func (e *FatalJobError) Unwrap() error { return e.Err }

// NewFatalJobError wraps err as a terminal job-scoped failure.
func NewFatalJobError(reason string, err error) *FatalJobError {
	return &FatalJobError{Reason: reason, Err: err}
}

// IsFatalJobError reports whether any error in err's chain is job-scoped and
// terminal.
func IsFatalJobError(err error) bool {
	var fatal *FatalJobError
	return errors.As(err, &fatal)
}

// IsPageScoped reports whether err is contained to a single page and must not
// abort the surrounding job.
func IsPageScoped(err error) bool {
	var decode *DecodeError
	var engine *EngineError
	return errors.As(err, &decode) || errors.As(err, &engine)
}

// PageError records a page that could not be processed, carrying the 1-based
// page number and the error detail for the result metadata.
type PageError struct {
	Page int
	Err  error
}

func (e *PageError) Error() string {
	return fmt.Sprintf("page %d: %v", e.Page, e.Err)
}

func (e *PageError) Unwrap() error { return e.Err }
