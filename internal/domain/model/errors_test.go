package model

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsFatalJobError(t *testing.T) {
	fatal := NewFatalJobError("document has zero pages", nil)
	assert.True(t, IsFatalJobError(fatal))
	assert.True(t, IsFatalJobError(fmt.Errorf("process job: %w", fatal)))

	assert.False(t, IsFatalJobError(errors.New("plain")))
	assert.False(t, IsFatalJobError(&EngineError{Err: errors.New("oom")}))
	assert.False(t, IsFatalJobError(nil))
}

func TestIsPageScoped(t *testing.T) {
	decode := &DecodeError{Page: 3, Err: errors.New("bad png")}
	engine := &EngineError{Err: errors.New("segfault")}

	assert.True(t, IsPageScoped(decode))
	assert.True(t, IsPageScoped(engine))
	assert.True(t, IsPageScoped(fmt.Errorf("page 3: %w", decode)))

	assert.False(t, IsPageScoped(NewFatalJobError("all pages failed", nil)))
	assert.False(t, IsPageScoped(NewInfrastructureError("fetch", errors.New("timeout"))))
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t,
		"infrastructure error: claim next: connection reset",
		NewInfrastructureError("claim next", errors.New("connection reset")).Error())

	assert.Equal(t,
		"decode error: page 4: truncated image",
		(&DecodeError{Page: 4, Err: errors.New("truncated image")}).Error())

	assert.Equal(t,
		"fatal job error: document has zero pages",
		NewFatalJobError("document has zero pages", nil).Error())

	assert.Equal(t,
		"page 2: engine error: crashed",
		(&PageError{Page: 2, Err: &EngineError{Err: errors.New("crashed")}}).Error())
}

func TestErrorUnwrap(t *testing.T) {
	inner := errors.New("root cause")

	assert.ErrorIs(t, NewInfrastructureError("op", inner), inner)
	assert.ErrorIs(t, &DecodeError{Page: 1, Err: inner}, inner)
	assert.ErrorIs(t, &EngineError{Err: inner}, inner)
	assert.ErrorIs(t, NewFatalJobError("reason", inner), inner)
	assert.ErrorIs(t, &PageError{Page: 1, Err: inner}, inner)
}
