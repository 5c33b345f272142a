package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")

	// Query pipeline
	ErrGenerationFailed      = errors.New("query generation failed")
	ErrValidationRejected    = errors.New("query rejected by validation")
	ErrExecutionFailed       = errors.New("query execution failed")
	ErrSummarizationDegraded = errors.New("summary unavailable")

	// Scheduled work
	ErrCheckExecution    = errors.New("integrity check could not execute")
	ErrPersistenceFailed = errors.New("report persistence failed")
)

// Kind names a terminal failure class carried on results and reports.
type Kind string

const (
	KindNone                  Kind = ""
	KindGenerationFailed      Kind = "GenerationFailed"
	KindValidationRejected    Kind = "ValidationRejected"
	KindExecutionFailed       Kind = "ExecutionFailed"
	KindSummarizationDegraded Kind = "SummarizationDegraded"
	KindCheckExecutionWarning Kind = "CheckExecutionWarning"
	KindPersistenceFailed     Kind = "PersistenceFailed"
)

// KindOf maps an error onto its Kind. Unknown errors map to KindExecutionFailed.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrGenerationFailed):
		return KindGenerationFailed
	case errors.Is(err, ErrValidationRejected):
		return KindValidationRejected
	case errors.Is(err, ErrSummarizationDegraded):
		return KindSummarizationDegraded
	case errors.Is(err, ErrCheckExecution):
		return KindCheckExecutionWarning
	case errors.Is(err, ErrPersistenceFailed):
		return KindPersistenceFailed
	default:
		return KindExecutionFailed
	}
}

// ExecutionError carries the driver's message for a failed statement.
type ExecutionError struct {
	Op     string
	Driver string
	Cause  error
}

// NewExecutionError wraps a driver error raised during op.
func NewExecutionError(op string, cause error) *ExecutionError {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return &ExecutionError{Op: op, Driver: msg, Cause: cause}
}

func (e *ExecutionError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("execution failed: %s", e.Driver)
	}
	return fmt.Sprintf("%s failed: %s", e.Op, e.Driver)
}

func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// Is makes every ExecutionError match ErrExecutionFailed.
func (e *ExecutionError) Is(target error) bool {
	return target == ErrExecutionFailed
}
