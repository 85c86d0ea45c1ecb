package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/petrijr/pausable/internal/persistence"
	"github.com/petrijr/pausable/pkg/api"
	"github.com/petrijr/pausable/pkg/pause"
)

// engineImpl is an in-process runner. Each run executes on one goroutine;
// the only state shared between runs is the pause gate and the stores.
type engineImpl struct {
	pipelines persistence.PipelineStore
	runs      persistence.RunStore
	events    persistence.EventStore

	mu       sync.Mutex // serializes registration
	observer api.Observer
	gate     *pause.Gate
	newID    func() string
}

// Config describes how to construct an engineImpl.
// Only used inside this package; external callers use the helper functions.
type Config struct {
	Persistence persistence.Persistence
	Observer    api.Observer

	// Gate is shared by all runs. Every step waits for it to be open before
	// starting. A nil Gate is replaced by a new open gate.
	Gate *pause.Gate
}

// NewInMemoryEngine returns a Runner whose runs and events live in memory.
func NewInMemoryEngine() api.Runner {
	return NewEngine(persistence.NewInMemory())
}

// NewInMemoryEngineWithObserver returns an in-memory Runner with the given
// Observer.
func NewInMemoryEngineWithObserver(obs api.Observer) api.Runner {
	return NewEngineWithConfig(Config{
		Persistence: persistence.NewInMemory(),
		Observer:    obs,
	})
}

// NewSQLiteEngine returns a Runner that journals run events in SQLite.
// Pipelines and run records remain in-memory.
func NewSQLiteEngine(db *sql.DB, cfg Config) (api.Runner, error) {
	events, err := persistence.NewSQLiteEventStore(db)
	if err != nil {
		return nil, err
	}
	mem := persistence.NewInMemoryStore()

	cfg.Persistence = persistence.Persistence{
		Pipelines: mem,
		Runs:      mem,
		Events:    events,
	}
	return NewEngineWithConfig(cfg), nil
}

// NewEngine returns a Runner backed by the given persistence.
func NewEngine(p persistence.Persistence) api.Runner {
	return NewEngineWithConfig(Config{
		Persistence: p,
	})
}

// NewEngineWithConfig creates a new Runner using the given configuration.
func NewEngineWithConfig(cfg Config) api.Runner {
	obs := cfg.Observer
	if obs == nil {
		obs = api.NoopObserver{}
	}
	g := cfg.Gate
	if g == nil {
		g = pause.NewGate(false)
	}
	p := cfg.Persistence
	if p.Pipelines == nil || p.Runs == nil {
		mem := persistence.NewInMemoryStore()
		if p.Pipelines == nil {
			p.Pipelines = mem
		}
		if p.Runs == nil {
			p.Runs = mem
		}
	}
	if p.Events == nil {
		p.Events = persistence.NoopEventStore{}
	}
	return &engineImpl{
		pipelines: p.Pipelines,
		runs:      p.Runs,
		events:    p.Events,
		observer:  obs,
		gate:      g,
		newID:     uuid.NewString,
	}
}

func (e *engineImpl) Gate() *pause.Gate {
	return e.gate
}

func (e *engineImpl) RegisterPipeline(def api.PipelineDefinition) error {
	if err := def.Validate(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.pipelines.GetPipeline(def.Name); err == nil {
		return fmt.Errorf("%w: %s", api.ErrDuplicatePipeline, def.Name)
	} else if !errors.Is(err, persistence.ErrPipelineNotFound) {
		return err
	}

	// Copy the policy so later changes by the caller are not observed.
	policy := *def.Retry
	def.Retry = &policy

	return e.pipelines.SavePipeline(def)
}

func (e *engineImpl) Run(ctx context.Context, name string, input any) (*api.RunInstance, error) {
	def, run, err := e.prepare(ctx, name, input)
	if err != nil {
		return nil, err
	}
	return e.execute(ctx, def, run, nil)
}

func (e *engineImpl) Start(ctx context.Context, name string, input any) (<-chan api.Outcome, error) {
	def, run, err := e.prepare(ctx, name, input)
	if err != nil {
		return nil, err
	}

	out := make(chan api.Outcome)
	go func() {
		defer close(out)
		_, _ = e.execute(ctx, def, run, out)
	}()
	return out, nil
}

func (e *engineImpl) GetRun(ctx context.Context, id string) (*api.RunInstance, error) {
	run, err := e.runs.GetRun(id)
	if err != nil {
		if errors.Is(err, persistence.ErrRunNotFound) {
			return nil, fmt.Errorf("%w: %s", api.ErrRunNotFound, id)
		}
		return nil, err
	}
	return run, nil
}

func (e *engineImpl) ListRuns(ctx context.Context, opts api.RunListOptions) ([]*api.RunInstance, error) {
	return e.runs.ListRuns(persistence.RunFilter{
		Pipeline: opts.Pipeline,
		Status:   opts.Status,
	})
}

func (e *engineImpl) Events(ctx context.Context, runID string) ([]api.RunEvent, error) {
	return e.events.ListEvents(ctx, runID)
}

// prepare resolves the pipeline and stores a new IDLE run record.
func (e *engineImpl) prepare(ctx context.Context, name string, input any) (api.PipelineDefinition, *api.RunInstance, error) {
	def, err := e.pipelines.GetPipeline(name)
	if err != nil {
		if errors.Is(err, persistence.ErrPipelineNotFound) {
			return def, nil, fmt.Errorf("%w: %s", api.ErrUnknownPipeline, name)
		}
		return def, nil, err
	}

	run := &api.RunInstance{
		ID:       e.newID(),
		Pipeline: def.Name,
		Status:   api.StatusIdle,
		Input:    input,
	}
	if err := e.runs.SaveRun(run); err != nil {
		return def, nil, err
	}
	return def, run, nil
}

// execute drives a run from IDLE to a terminal state. When out is non-nil
// every outcome is delivered on it; a failed attempt's outcome is received
// before recovery for that attempt starts.
func (e *engineImpl) execute(
	ctx context.Context,
	def api.PipelineDefinition,
	run *api.RunInstance,
	out chan<- api.Outcome,
) (*api.RunInstance, error) {
	ctx = pause.WithGate(ctx, e.gate)

	run.Status = api.StatusRunning
	run.StartedAt = time.Now()
	_ = e.runs.UpdateRun(run)

	e.observer.OnRunStart(ctx, run)
	e.record(ctx, run, api.EventRunStarted, -1, "")

	for {
		e.record(ctx, run, api.EventAttemptStarted, -1, "")

		output, err := e.runAttempt(ctx, def, run)
		if err == nil {
			return e.succeed(ctx, def, run, output, out)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return e.fail(ctx, run, ctxErr, out)
		}

		var stepErr *api.TaskStepError
		if !errors.As(err, &stepErr) {
			return e.fail(ctx, run, err, out)
		}

		// Report the failure before recovery runs.
		e.observer.OnAttemptFailed(ctx, run, stepErr)
		e.record(ctx, run, api.EventAttemptFailed, stepErr.Index, stepErr.Error())
		if !emit(ctx, out, api.Outcome{RunID: run.ID, Attempt: stepErr.Attempt, Err: stepErr}) {
			return e.fail(ctx, run, ctx.Err(), out)
		}

		run.Status = api.StatusRecovering
		_ = e.runs.UpdateRun(run)
		e.record(ctx, run, api.EventRecoveryStarted, -1, "")

		if recErr := e.recover(ctx, def, run); recErr != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return e.fail(ctx, run, ctxErr, out)
			}
			e.record(ctx, run, api.EventRecoveryFailed, -1, recErr.Error())
			return e.fail(ctx, run, &api.RecoveryError{
				Attempt: stepErr.Attempt,
				Cause:   stepErr,
				Err:     recErr,
			}, out)
		}
		e.record(ctx, run, api.EventRecoveryCompleted, -1, "")

		// Recovery succeeded; the original step error decides what happens next.
		if run.Retries >= def.Retry.MaxRetries {
			return e.fail(ctx, run, &api.RetryExhaustedError{
				Attempts: run.AttemptNumber(),
				Last:     stepErr,
			}, out)
		}

		run.Retries++
		run.Status = api.StatusRetryScheduled
		_ = e.runs.UpdateRun(run)

		delay := def.Retry.Delay(run.Retries)
		e.observer.OnRetryScheduled(ctx, run, delay)
		e.record(ctx, run, api.EventRetryScheduled, -1, delay.String())

		if delay > 0 {
			if err := pause.Sleep(ctx, e.gate, delay); err != nil {
				return e.fail(ctx, run, err, out)
			}
		}

		run.Status = api.StatusRunning
		_ = e.runs.UpdateRun(run)
	}
}

// runAttempt runs every step once, in order, starting from the run input.
// It returns a *api.TaskStepError for the first failing step, or the
// context error if the run was cancelled while waiting on the gate.
func (e *engineImpl) runAttempt(ctx context.Context, def api.PipelineDefinition, run *api.RunInstance) (any, error) {
	current := run.Input

	for i, step := range def.Steps {
		if err := e.gate.WaitOpen(ctx); err != nil {
			return nil, err
		}

		run.CurrentStep = i
		_ = e.runs.UpdateRun(run)

		e.observer.OnStepStart(ctx, run, step.Name, i)
		e.record(ctx, run, api.EventStepStarted, i, step.Name)

		start := time.Now()
		next, err := step.Fn(ctx, current)
		e.observer.OnStepCompleted(ctx, run, step.Name, i, err, time.Since(start))

		if err != nil {
			e.record(ctx, run, api.EventStepFailed, i, err.Error())
			return nil, &api.TaskStepError{
				Step:    step.Name,
				Index:   i,
				Attempt: run.AttemptNumber(),
				Err:     err,
			}
		}

		e.record(ctx, run, api.EventStepCompleted, i, step.Name)
		current = next
	}

	return current, nil
}

func (e *engineImpl) recover(ctx context.Context, def api.PipelineDefinition, run *api.RunInstance) error {
	if def.Recovery == nil {
		e.observer.OnRecoveryCompleted(ctx, run, nil, 0)
		return nil
	}
	start := time.Now()
	err := def.Recovery(ctx)
	e.observer.OnRecoveryCompleted(ctx, run, err, time.Since(start))
	return err
}

func (e *engineImpl) succeed(
	ctx context.Context,
	def api.PipelineDefinition,
	run *api.RunInstance,
	output any,
	out chan<- api.Outcome,
) (*api.RunInstance, error) {
	run.Status = api.StatusSucceeded
	run.Output = output
	run.CurrentStep = len(def.Steps)
	run.FinishedAt = time.Now()
	_ = e.runs.UpdateRun(run)

	e.observer.OnRunSucceeded(ctx, run)
	e.record(ctx, run, api.EventRunSucceeded, -1, "")

	emit(ctx, out, api.Outcome{
		RunID:   run.ID,
		Attempt: run.AttemptNumber(),
		Value:   output,
		Final:   true,
	})
	return run.Clone(), nil
}

func (e *engineImpl) fail(ctx context.Context, run *api.RunInstance, err error, out chan<- api.Outcome) (*api.RunInstance, error) {
	run.Status = api.StatusFailed
	run.Err = err
	run.FinishedAt = time.Now()
	_ = e.runs.UpdateRun(run)

	e.observer.OnRunFailed(ctx, run, err)
	e.record(ctx, run, api.EventRunFailed, -1, err.Error())

	emit(ctx, out, api.Outcome{
		RunID:   run.ID,
		Attempt: run.AttemptNumber(),
		Err:     err,
		Final:   true,
	})
	return run.Clone(), err
}

// record appends a history event. Journal failures never affect the run.
func (e *engineImpl) record(ctx context.Context, run *api.RunInstance, typ api.EventType, step int, detail string) {
	_ = e.events.AppendEvent(context.WithoutCancel(ctx), api.RunEvent{
		RunID:    run.ID,
		At:       time.Now(),
		Type:     typ,
		Pipeline: run.Pipeline,
		Attempt:  run.AttemptNumber(),
		Step:     step,
		Detail:   detail,
	})
}

// emit delivers o on out. It reports false if ctx ended first. A cancelled
// run delivers nothing further, even to a reader that is waiting.
func emit(ctx context.Context, out chan<- api.Outcome, o api.Outcome) bool {
	if out == nil {
		return true
	}
	if ctx.Err() != nil {
		return false
	}
	select {
	case out <- o:
		return true
	case <-ctx.Done():
		return false
	}
}
