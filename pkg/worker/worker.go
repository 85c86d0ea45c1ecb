package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/petrijr/pausable/internal/taskqueue"
	"github.com/petrijr/pausable/pkg/api"
)

// ErrUnknownTaskType is returned by ProcessOne for tasks it cannot handle.
var ErrUnknownTaskType = errors.New("unknown task type")

const requeueTimeout = time.Second

// Config tunes a Worker.
type Config struct {
	// Logger receives one record per processed task. Nil means slog.Default().
	Logger *slog.Logger
}

// Worker pulls start-run tasks from a Queue and runs them on a Runner.
//
// A worker does not take new tasks while the runner's pause gate is closed.
// Runs already in progress are held by the gate between their own steps.
type Worker struct {
	runner api.Runner
	queue  taskqueue.Queue
	log    *slog.Logger
}

// New creates a new Worker with default configuration.
func New(runner api.Runner, queue taskqueue.Queue) *Worker {
	return NewWithConfig(runner, queue, Config{})
}

// NewWithConfig creates a new Worker.
func NewWithConfig(runner api.Runner, queue taskqueue.Queue, cfg Config) *Worker {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		runner: runner,
		queue:  queue,
		log:    logger,
	}
}

// EnqueueStartRun enqueues a task that runs the named pipeline. It returns
// the task ID.
func (w *Worker) EnqueueStartRun(ctx context.Context, pipeline string, input any) (string, error) {
	return w.EnqueueStartRunAt(ctx, pipeline, input, time.Time{})
}

// EnqueueStartRunAt is EnqueueStartRun for a task that must not start before
// at.
func (w *Worker) EnqueueStartRunAt(ctx context.Context, pipeline string, input any, at time.Time) (string, error) {
	t := taskqueue.Task{
		ID:         uuid.NewString(),
		Type:       taskqueue.TaskTypeStartRun,
		Pipeline:   pipeline,
		Input:      input,
		EnqueuedAt: time.Now(),
		NotBefore:  at,
	}
	if err := w.queue.Enqueue(ctx, t); err != nil {
		return "", err
	}
	return t.ID, nil
}

// ProcessOne waits for the pause gate to open, then pulls a single task and
// runs it to completion. A task taken while the gate closed again is held
// until the gate reopens, and put back on the queue if ctx ends first.
// Returns (processed, error):
//   - processed == false: no task was taken; err is the context error.
//   - processed == true: a task was run; err is the run's terminal error.
func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {
	if err := w.runner.Gate().WaitOpen(ctx); err != nil {
		return false, err
	}

	task, err := w.queue.Dequeue(ctx)
	if err != nil {
		return false, err
	}
	if task == nil {
		return false, nil
	}

	// The gate may have closed while Dequeue was blocked.
	if err := w.runner.Gate().WaitOpen(ctx); err != nil {
		w.requeue(ctx, task)
		return false, err
	}

	switch task.Type {
	case taskqueue.TaskTypeStartRun:
		run, runErr := w.runner.Run(ctx, task.Pipeline, task.Input)
		w.logRun(ctx, task, run, runErr)
		return true, runErr

	default:
		// Mark as processed but return an error so this isn't silently ignored.
		err := fmt.Errorf("%w: %s", ErrUnknownTaskType, task.Type)
		w.log.ErrorContext(ctx, "task_rejected", slog.String("task_id", task.ID), slog.Any("error", err))
		return true, err
	}
}

// requeue puts back a task that was dequeued but never started.
func (w *Worker) requeue(ctx context.Context, task *taskqueue.Task) {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), requeueTimeout)
	defer cancel()

	if err := w.queue.Enqueue(rctx, *task); err != nil {
		w.log.ErrorContext(rctx, "task_requeue_failed", slog.String("task_id", task.ID), slog.Any("error", err))
	}
}

func (w *Worker) logRun(ctx context.Context, task *taskqueue.Task, run *api.RunInstance, err error) {
	attrs := []any{
		slog.String("task_id", task.ID),
		slog.String("pipeline", task.Pipeline),
	}
	if run != nil {
		attrs = append(attrs,
			slog.String("run_id", run.ID),
			slog.String("status", string(run.Status)),
			slog.Int("attempts", run.AttemptNumber()),
		)
	}
	if err != nil {
		w.log.WarnContext(ctx, "task_failed", append(attrs, slog.Any("error", err))...)
		return
	}
	w.log.InfoContext(ctx, "task_completed", attrs...)
}
