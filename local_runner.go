package pausable

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/petrijr/pausable/internal/taskqueue"
	"github.com/petrijr/pausable/pkg/worker"
)

// LocalRunner bundles an in-memory Runner, an in-memory task queue, and a
// Worker to provide a simple single-process setup.
//
// Typical usage:
//
//	lr := pausable.NewLocalRunner()
//	p := pausable.New("my-pipeline").Step(...).Retry(pausable.Retry(2))
//	p.MustRegister(lr.Runner)
//
//	// Synchronous run (no queue/worker involved):
//	run, err := pausable.Run(ctx, lr.Runner, p.Name(), input)
//
//	// Asynchronous run:
//	_ = lr.StartWorkers(ctx, 2)
//	_, _ = lr.StartRunAsync(ctx, p.Name(), input)
//	lr.Pause()  // workers stop taking tasks, running pipelines hold between steps
//	lr.Resume()
//	...
//	lr.Stop()
type LocalRunner struct {
	// Runner is the in-memory runner used by this LocalRunner.
	Runner Runner

	// Queue is the in-memory task queue used by the Worker.
	Queue taskqueue.Queue

	// Worker processes tasks from Queue using Runner.
	Worker *worker.Worker

	logger  *slog.Logger
	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// LocalRunnerConfig configures NewLocalRunnerWithConfig.
type LocalRunnerConfig struct {
	Config

	// QueueCapacity bounds the task queue. <= 0 means 1024.
	QueueCapacity int

	// Logger is used by the worker loops. Nil means slog.Default().
	Logger *slog.Logger
}

// NewLocalRunner constructs a LocalRunner with default configuration.
func NewLocalRunner() *LocalRunner {
	return NewLocalRunnerWithConfig(LocalRunnerConfig{})
}

// NewLocalRunnerWithConfig constructs a LocalRunner backed by an in-memory
// runner, an in-memory queue and a Worker.
func NewLocalRunnerWithConfig(cfg LocalRunnerConfig) *LocalRunner {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := NewRunnerWithConfig(cfg.Config)
	q := taskqueue.NewInMemoryQueue(cfg.QueueCapacity)
	w := worker.NewWithConfig(r, q, worker.Config{Logger: logger})

	return &LocalRunner{
		Runner: r,
		Queue:  q,
		Worker: w,
		logger: logger,
	}
}

// StartWorkers starts 'concurrency' worker goroutines that continuously call
// Worker.ProcessOne(ctx) until the context is cancelled via Stop.
//
// If StartWorkers is called more than once without Stop, it returns an error.
func (r *LocalRunner) StartWorkers(ctx context.Context, concurrency int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return errors.New("pausable: LocalRunner already started")
	}

	if concurrency <= 0 {
		concurrency = 1
	}

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.running = true

	r.wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func() {
			defer r.wg.Done()

			for {
				processed, err := r.Worker.ProcessOne(ctx)
				if ctx.Err() != nil {
					return
				}
				// Run failures are already logged by the worker. Anything
				// else is logged here so one bad task doesn't kill the loop.
				if err != nil && !processed {
					r.logger.ErrorContext(ctx, "local_runner_worker_error", slog.Any("error", err))
				}
			}
		}()
	}

	return nil
}

// Stop cancels all worker goroutines started by StartWorkers and waits
// for them to exit. Runs in progress are cancelled.
func (r *LocalRunner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	cancel := r.cancel
	r.running = false
	r.cancel = nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	r.wg.Wait()
}

// StartRunAsync enqueues a task to run the given pipeline and returns the
// task ID. The pipeline must already be registered on LocalRunner.Runner.
func (r *LocalRunner) StartRunAsync(ctx context.Context, pipeline string, input any) (string, error) {
	return r.Worker.EnqueueStartRun(ctx, pipeline, input)
}

// Pause closes the shared pause gate.
func (r *LocalRunner) Pause() {
	r.Runner.Gate().Pause()
}

// Resume opens the shared pause gate.
func (r *LocalRunner) Resume() {
	r.Runner.Gate().Resume()
}

// IsPaused reports whether the shared pause gate is closed.
func (r *LocalRunner) IsPaused() bool {
	return r.Runner.Gate().IsPaused()
}
