package pausable

import (
	"fmt"

	"github.com/petrijr/pausable/pkg/api"
)

// PipelineBuilder provides a fluent API for defining pipelines:
//
//	p := pausable.New("Checkout").
//	    Step("openCart", openCart).
//	    Step("pay", pay).
//	    Recover(goHome).
//	    Retry(pausable.Retry(2).WithConstantBackoff(time.Second))
//
//	if err := p.Register(runner); err != nil {
//	    log.Fatal(err)
//	}
//
//	run, err := pausable.Run(ctx, runner, p.Name(), input)
type PipelineBuilder struct {
	def api.PipelineDefinition
}

// New creates a new pipeline builder with the given name.
func New(name string) *PipelineBuilder {
	return &PipelineBuilder{
		def: api.PipelineDefinition{
			Name:  name,
			Steps: make([]api.StepDefinition, 0),
		},
	}
}

// Name returns the pipeline name.
func (b *PipelineBuilder) Name() string {
	return b.def.Name
}

// Definition returns the underlying PipelineDefinition.
func (b *PipelineBuilder) Definition() PipelineDefinition {
	return b.def
}

// Step appends a step to the pipeline.
func (b *PipelineBuilder) Step(name string, fn StepFunc) *PipelineBuilder {
	if name == "" {
		panic("pausable: step name must not be empty")
	}
	if fn == nil {
		panic(fmt.Sprintf("pausable: step %q has nil function", name))
	}

	b.def.Steps = append(b.def.Steps, api.StepDefinition{
		Name: name,
		Fn:   fn,
	})
	return b
}

// Checkpoint appends a step that waits for the pause gate to open.
func (b *PipelineBuilder) Checkpoint(name string) *PipelineBuilder {
	return b.Step(name, PauseCheckpointStep())
}

// Recover sets the recovery action run after every failed attempt.
func (b *PipelineBuilder) Recover(fn RecoveryFunc) *PipelineBuilder {
	b.def.Recovery = fn
	return b
}

// RecoverWith sets a recovery action built from steps run in order.
func (b *PipelineBuilder) RecoverWith(steps ...StepFunc) *PipelineBuilder {
	return b.Recover(api.RecoverWith(steps...))
}

// Retry sets the retry bound from a RetryBuilder.
func (b *PipelineBuilder) Retry(rb RetryBuilder) *PipelineBuilder {
	return b.WithRetry(rb.Policy())
}

// WithRetry sets the retry policy. A pipeline without one cannot be
// registered.
func (b *PipelineBuilder) WithRetry(policy RetryPolicy) *PipelineBuilder {
	// Copy so callers can mutate their RetryPolicy afterwards.
	p := policy
	b.def.Retry = &p
	return b
}

// Register registers the built pipeline with the given runner.
func (b *PipelineBuilder) Register(r Runner) error {
	return r.RegisterPipeline(b.def)
}

// MustRegister is like Register but panics on error.
// Useful for initialization in main().
func (b *PipelineBuilder) MustRegister(r Runner) {
	if err := b.Register(r); err != nil {
		panic(err)
	}
}
