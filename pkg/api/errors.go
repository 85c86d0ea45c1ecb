package api

import (
	"errors"
	"fmt"
)

var (
	// ErrRetryBoundRequired is returned when a pipeline is registered
	// without an explicit retry bound.
	ErrRetryBoundRequired = errors.New("retry policy with an explicit bound is required")

	// ErrUnknownPipeline is returned when starting a pipeline that was never
	// registered.
	ErrUnknownPipeline = errors.New("unknown pipeline")

	// ErrDuplicatePipeline is returned when a name is registered twice.
	ErrDuplicatePipeline = errors.New("pipeline already registered")

	// ErrRunNotFound is returned when looking up an unknown run ID.
	ErrRunNotFound = errors.New("run not found")
)

// TaskStepError is the failure of one step during one attempt.
type TaskStepError struct {
	Step  string
	Index int
	// Attempt is the 1-based attempt number.
	Attempt int
	Err     error
}

func (e *TaskStepError) Error() string {
	return fmt.Sprintf("attempt %d: step %d (%s): %v", e.Attempt, e.Index, e.Step, e.Err)
}

func (e *TaskStepError) Unwrap() error { return e.Err }

// RecoveryError is the failure of the recovery action. It is always fatal
// for the run.
type RecoveryError struct {
	// Attempt is the attempt whose failure triggered the recovery.
	Attempt int
	// Cause is the step failure that triggered the recovery.
	Cause *TaskStepError
	Err   error
}

func (e *RecoveryError) Error() string {
	return fmt.Sprintf("recovery after attempt %d failed: %v", e.Attempt, e.Err)
}

func (e *RecoveryError) Unwrap() error { return e.Err }

// RetryExhaustedError is the terminal error of a run whose last allowed
// attempt failed.
type RetryExhaustedError struct {
	// Attempts is the total number of executions of the step sequence.
	Attempts int
	Last     *TaskStepError
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("retries exhausted after %d attempts: %v", e.Attempts, e.Last)
}

func (e *RetryExhaustedError) Unwrap() error { return e.Last }

// IsRetryExhausted reports whether err is or wraps a *RetryExhaustedError.
func IsRetryExhausted(err error) bool {
	var re *RetryExhaustedError
	return errors.As(err, &re)
}

// IsRecoveryFailure reports whether err is or wraps a *RecoveryError.
func IsRecoveryFailure(err error) bool {
	var re *RecoveryError
	return errors.As(err, &re)
}
