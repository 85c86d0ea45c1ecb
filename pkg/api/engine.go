package api

import (
	"context"

	"github.com/petrijr/pausable/pkg/pause"
)

// Runner registers pipelines and runs them with recovery and bounded retry.
type Runner interface {
	// RegisterPipeline registers a definition by name.
	RegisterPipeline(def PipelineDefinition) error

	// Run runs the pipeline to a terminal state on the calling goroutine.
	// The returned error is the run's terminal error, if any.
	Run(ctx context.Context, name string, input any) (*RunInstance, error)

	// Start runs the pipeline on a new goroutine and returns its outcome
	// stream. The channel is unbuffered: a failed attempt's outcome has been
	// received before recovery for that attempt begins. The channel is
	// closed after the final outcome. The consumer must drain it or cancel
	// ctx.
	Start(ctx context.Context, name string, input any) (<-chan Outcome, error)

	// GetRun looks up a run by ID.
	GetRun(ctx context.Context, id string) (*RunInstance, error)

	// ListRuns returns runs matching the given options.
	ListRuns(ctx context.Context, opts RunListOptions) ([]*RunInstance, error)

	// Events returns the recorded history of a run in order.
	Events(ctx context.Context, runID string) ([]RunEvent, error)

	// Gate returns the pause gate shared by all runs of this runner.
	Gate() *pause.Gate
}
