package api

import (
	"context"
	"fmt"
	"time"

	"github.com/petrijr/pausable/pkg/pause"
)

// PauseCheckpointStep returns a step that blocks while the run's gate is
// paused and then passes its input through. Without a gate in ctx it is a
// no-op.
func PauseCheckpointStep() StepFunc {
	return func(ctx context.Context, input any) (any, error) {
		if g := pause.FromContext(ctx); g != nil {
			if err := g.WaitOpen(ctx); err != nil {
				return nil, err
			}
		}
		return input, nil
	}
}

// PausableSleepStep returns a step that waits for d on a pausable timer and
// passes its input through. Time spent paused after the delay has elapsed
// is added to the wait.
//
// It is context-aware: if the context is cancelled while waiting, it
// returns ctx.Err and the attempt fails at this step.
func PausableSleepStep(d time.Duration) StepFunc {
	return func(ctx context.Context, input any) (any, error) {
		if err := pause.Sleep(ctx, pause.FromContext(ctx), d); err != nil {
			return nil, err
		}
		return input, nil
	}
}

// RecoverWith builds a RecoveryFunc that runs steps in order, feeding each
// step's output to the next. The first step receives nil. The first error
// aborts the recovery.
func RecoverWith(steps ...StepFunc) RecoveryFunc {
	return func(ctx context.Context) error {
		var current any
		for _, step := range steps {
			next, err := step(ctx, current)
			if err != nil {
				return err
			}
			current = next
		}
		return nil
	}
}

// DelayRecovery returns a RecoveryFunc that waits d on a pausable timer
// before the next attempt starts.
func DelayRecovery(d time.Duration) RecoveryFunc {
	return func(ctx context.Context) error {
		return pause.Sleep(ctx, pause.FromContext(ctx), d)
	}
}

// TypedStep adapts a strongly-typed function to a StepFunc. A nil input is
// passed as the zero value of I.
func TypedStep[I, O any](fn func(context.Context, I) (O, error)) StepFunc {
	return func(ctx context.Context, input any) (any, error) {
		var in I
		if input != nil {
			v, ok := input.(I)
			if !ok {
				return nil, fmt.Errorf("TypedStep: expected input of type %T, got %T", in, input)
			}
			in = v
		}
		return fn(ctx, in)
	}
}
