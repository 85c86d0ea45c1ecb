package pausable

import (
	"context"
	"database/sql"

	"github.com/petrijr/pausable/internal/engine"
	"github.com/petrijr/pausable/internal/persistence"
	"github.com/petrijr/pausable/internal/taskqueue"
	"github.com/petrijr/pausable/pkg/api"
	"github.com/petrijr/pausable/pkg/pause"
)

// Re-export key types so users don't need to dig into pkg/api.

type (
	Runner               = api.Runner
	PipelineDefinition   = api.PipelineDefinition
	StepDefinition       = api.StepDefinition
	RunInstance          = api.RunInstance
	RunListOptions       = api.RunListOptions
	RunEvent             = api.RunEvent
	Outcome              = api.Outcome
	Status               = api.Status
	StepFunc             = api.StepFunc
	RecoveryFunc         = api.RecoveryFunc
	RetryPolicy          = api.RetryPolicy
	TaskStepError        = api.TaskStepError
	RecoveryError        = api.RecoveryError
	RetryExhaustedError  = api.RetryExhaustedError
	Observer             = api.Observer
	LoggingObserver      = api.LoggingObserver
	BasicMetrics         = api.BasicMetrics
	BasicMetricsSnapshot = api.BasicMetricsSnapshot
	CompositeObserver    = api.CompositeObserver
	NoopObserver         = api.NoopObserver

	Gate   = pause.Gate
	Policy = pause.Policy
)

// Re-export common observer helpers.

var (
	NewLoggingObserver   = api.NewLoggingObserver
	NewCompositeObserver = api.NewCompositeObserver
)

// Re-export status values and gating policies for convenience.

const (
	StatusIdle           = api.StatusIdle
	StatusRunning        = api.StatusRunning
	StatusRecovering     = api.StatusRecovering
	StatusRetryScheduled = api.StatusRetryScheduled
	StatusSucceeded      = api.StatusSucceeded
	StatusFailed         = api.StatusFailed

	Queue      = pause.Queue
	LatestOnly = pause.LatestOnly
)

// Re-export sentinel errors.

var (
	ErrRetryBoundRequired = api.ErrRetryBoundRequired
	ErrUnknownPipeline    = api.ErrUnknownPipeline
	ErrDuplicatePipeline  = api.ErrDuplicatePipeline
	ErrRunNotFound        = api.ErrRunNotFound
)

// Config configures a Runner built by NewRunnerWithConfig.
type Config struct {
	// Observer receives run, step and recovery callbacks. Nil means none.
	Observer Observer

	// Gate is shared by every run. Nil means a new open gate.
	Gate *Gate
}

// Runner constructors
// These wrap the internal/engine package so external callers
// never need to import internal packages.

// NewInMemoryRunner returns a Runner whose runs and history live in memory.
func NewInMemoryRunner() Runner {
	return engine.NewInMemoryEngine()
}

// NewInMemoryRunnerWithObserver returns an in-memory Runner with the given
// Observer.
func NewInMemoryRunnerWithObserver(obs Observer) Runner {
	return engine.NewInMemoryEngineWithObserver(obs)
}

// NewRunnerWithConfig returns an in-memory Runner configured by cfg.
func NewRunnerWithConfig(cfg Config) Runner {
	return engine.NewEngineWithConfig(engine.Config{
		Persistence: persistence.NewInMemory(),
		Observer:    cfg.Observer,
		Gate:        cfg.Gate,
	})
}

// NewSQLiteRunner returns a Runner that journals run events to SQLite.
// Pipeline definitions and run records are kept in memory.
func NewSQLiteRunner(db *sql.DB, cfg Config) (Runner, error) {
	return engine.NewSQLiteEngine(db, engine.Config{
		Observer: cfg.Observer,
		Gate:     cfg.Gate,
	})
}

// NewGate returns a pause gate with the given initial state.
func NewGate(paused bool) *Gate {
	return pause.NewGate(paused)
}

// NewInMemoryQueue returns an in-memory task queue for use with a worker.
func NewInMemoryQueue(capacity int) *taskqueue.InMemoryQueue {
	return taskqueue.NewInMemoryQueue(capacity)
}

// Convenience helpers that just forward to the underlying Runner.

// Run runs a registered pipeline synchronously.
func Run(ctx context.Context, r Runner, name string, input any) (*RunInstance, error) {
	return r.Run(ctx, name, input)
}

// Start runs a registered pipeline in the background and returns its
// outcome stream.
func Start(ctx context.Context, r Runner, name string, input any) (<-chan Outcome, error) {
	return r.Start(ctx, name, input)
}

// GetRun fetches a run by ID.
func GetRun(ctx context.Context, r Runner, id string) (*RunInstance, error) {
	return r.GetRun(ctx, id)
}

// ListRuns lists runs according to the given options.
func ListRuns(ctx context.Context, r Runner, opts RunListOptions) ([]*RunInstance, error) {
	return r.ListRuns(ctx, opts)
}

// Events returns the recorded history of a run.
func Events(ctx context.Context, r Runner, runID string) ([]RunEvent, error) {
	return r.Events(ctx, runID)
}
