// Package api contains the public building blocks used by the pausable
// runner: pipeline definitions, run records, outcomes, errors and observers.
//
// Most users interact with the higher-level pausable package, which
// re-exports selected types and helpers from this package.
//
// # Pipelines
//
// A PipelineDefinition is an ordered list of steps, a RecoveryFunc and a
// RetryPolicy. An attempt runs the steps from index 0; the first failing
// step ends the attempt with a *TaskStepError. The runner then reports the
// failure, runs the recovery and, while retries remain, starts another
// attempt from step 0.
//
// The retry bound is always explicit: a definition without a RetryPolicy
// fails validation with ErrRetryBoundRequired.
//
// # Errors
//
// The terminal error of a failed run is one of:
//
//   - *RetryExhaustedError, wrapping the last *TaskStepError
//   - *RecoveryError, when the recovery action itself failed
//   - a context error, when the run was cancelled
//
// All error types support errors.Is and errors.As.
//
// # Observability
//
// The Observer interface reports run, step, recovery and retry events.
// NewLoggingObserver logs them with log/slog, BasicMetrics counts them, and
// NewCompositeObserver fans events out to several observers.
package api
