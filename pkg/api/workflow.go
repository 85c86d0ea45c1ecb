package api

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// Status represents the lifecycle state of a run.
//
//	IDLE -> RUNNING -> SUCCEEDED
//	                -> RECOVERING -> RETRY_SCHEDULED -> RUNNING
//	                              -> FAILED
type Status string

const (
	StatusIdle           Status = "IDLE"
	StatusRunning        Status = "RUNNING"
	StatusRecovering     Status = "RECOVERING"
	StatusRetryScheduled Status = "RETRY_SCHEDULED"
	StatusSucceeded      Status = "SUCCEEDED"
	StatusFailed         Status = "FAILED"
)

// Terminal reports whether s is a final state.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// StepFunc is a single step of a pipeline. It receives the previous step's
// output (or the run input for the first step).
type StepFunc func(ctx context.Context, input any) (any, error)

// RecoveryFunc is run after a step failure and before the next attempt.
// It should bring the outside world back to a state from which the whole
// pipeline can be run again. A returned error ends the run.
type RecoveryFunc func(ctx context.Context) error

// StepDefinition describes a named step.
type StepDefinition struct {
	Name string
	Fn   StepFunc
}

// PipelineDefinition describes a pipeline: an ordered list of steps, the
// recovery action run between attempts, and the bound on whole-pipeline
// retries.
type PipelineDefinition struct {
	Name     string
	Steps    []StepDefinition
	Recovery RecoveryFunc

	// Retry must be set. A nil policy is rejected at registration rather
	// than treated as "retry forever".
	Retry *RetryPolicy
}

// Validate checks that the definition can be registered.
func (d PipelineDefinition) Validate() error {
	if d.Name == "" {
		return errors.New("pipeline name is required")
	}
	if len(d.Steps) == 0 {
		return errors.New("pipeline must have at least one step")
	}
	for i, s := range d.Steps {
		if s.Fn == nil {
			return fmt.Errorf("step %d (%s) has nil function", i, s.Name)
		}
	}
	if d.Retry == nil {
		return fmt.Errorf("pipeline %s: %w", d.Name, ErrRetryBoundRequired)
	}
	return d.Retry.Validate()
}

// RetryPolicy bounds how often the whole pipeline is re-run after a failed
// attempt. MaxRetries does not include the first attempt:
//
//	MaxRetries = 0 => one attempt, no retries
//	MaxRetries = 2 => first attempt + up to 2 retries
//
// Backoff fields are optional and describe the delay between the end of
// recovery and the next attempt. The delay is InitialBackoff, multiplied by
// BackoffMultiplier for each further retry and capped at MaxBackoff when
// MaxBackoff > 0.
type RetryPolicy struct {
	MaxRetries int

	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
}

// Validate rejects negative bounds.
func (p RetryPolicy) Validate() error {
	if p.MaxRetries < 0 {
		return fmt.Errorf("max retries must be >= 0, got %d", p.MaxRetries)
	}
	if p.InitialBackoff < 0 || p.MaxBackoff < 0 {
		return errors.New("backoff must not be negative")
	}
	return nil
}

// Delay returns the backoff to apply before retry number retry (1-based).
func (p RetryPolicy) Delay(retry int) time.Duration {
	if p.InitialBackoff <= 0 || retry <= 0 {
		return 0
	}
	mult := p.BackoffMultiplier
	if mult <= 0 {
		mult = 1
	}
	d := p.InitialBackoff
	for i := 1; i < retry; i++ {
		next := float64(d) * mult
		if next >= math.MaxInt64 {
			d = time.Duration(math.MaxInt64)
			break
		}
		d = time.Duration(next)
		if p.MaxBackoff > 0 && d >= p.MaxBackoff {
			return p.MaxBackoff
		}
	}
	if p.MaxBackoff > 0 && d > p.MaxBackoff {
		return p.MaxBackoff
	}
	return d
}

// RunInstance is the record of one pipeline run.
type RunInstance struct {
	ID       string
	Pipeline string
	Status   Status
	Input    any
	Output   any
	Err      error

	// Retries counts the retries consumed so far: 0 during the first
	// attempt, incremented each time the pipeline is scheduled again. It
	// never exceeds the policy's MaxRetries.
	Retries int

	// CurrentStep is the index of the step being run, the failed step after
	// a failure, or len(steps) after success.
	CurrentStep int

	StartedAt  time.Time
	FinishedAt time.Time
}

// AttemptNumber returns the 1-based number of the current attempt.
func (r *RunInstance) AttemptNumber() int {
	return r.Retries + 1
}

// Clone returns a shallow copy of the instance.
func (r *RunInstance) Clone() *RunInstance {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}

// RunListOptions controls how runs are listed.
// Zero values mean "no filter" for that field.
type RunListOptions struct {
	Pipeline string
	Status   Status
}

// Outcome is one event of a run's outcome stream.
//
// Every failed attempt produces a non-final Outcome whose Err is the
// *TaskStepError of that attempt. The stream ends with exactly one final
// Outcome: Value on success, or the terminal error (*RetryExhaustedError,
// *RecoveryError or a context error).
type Outcome struct {
	RunID string
	// Attempt is the 1-based attempt the outcome belongs to.
	Attempt int
	Value   any
	Err     error
	Final   bool
}

// Succeeded reports whether o is the final outcome of a successful run.
func (o Outcome) Succeeded() bool {
	return o.Final && o.Err == nil
}
