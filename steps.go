package pausable

import (
	"context"
	"time"

	"github.com/petrijr/pausable/pkg/api"
)

// PauseCheckpointStep returns a step that waits for the run's pause gate to
// open and passes its input through.
func PauseCheckpointStep() StepFunc {
	return api.PauseCheckpointStep()
}

// PausableSleepStep waits d on a pausable timer and passes the input
// through.
func PausableSleepStep(d time.Duration) StepFunc {
	return api.PausableSleepStep(d)
}

// RecoverWith builds a RecoveryFunc that runs steps in order.
func RecoverWith(steps ...StepFunc) RecoveryFunc {
	return api.RecoverWith(steps...)
}

// DelayRecovery returns a RecoveryFunc that waits d on a pausable timer.
func DelayRecovery(d time.Duration) RecoveryFunc {
	return api.DelayRecovery(d)
}

// TypedStep wraps a strongly-typed function into a StepFunc.
// Example:
//
//	pausable.TypedStep(func(ctx context.Context, s Page) (Page, error) { ... })
func TypedStep[I, O any](fn func(context.Context, I) (O, error)) StepFunc {
	return api.TypedStep(fn)
}
