package taskqueue

import (
	"context"
	"errors"
	"time"
)

// ErrClosed is returned by Enqueue after Close.
var ErrClosed = errors.New("task queue closed")

// TaskType identifies what the worker should do.
type TaskType string

const (
	TaskTypeStartRun TaskType = "start-run"
)

// Task represents a unit of work for the worker.
type Task struct {
	ID   string
	Type TaskType

	// Pipeline is the registered pipeline to run.
	Pipeline string
	Input    any

	EnqueuedAt time.Time

	// NotBefore is the earliest time this task should be handed out.
	// Zero means immediately.
	NotBefore time.Time
}

// Queue is a FIFO task queue.
type Queue interface {
	// Enqueue adds a task to the queue. It respects ctx for cancellation.
	Enqueue(ctx context.Context, t Task) error

	// Dequeue removes and returns the next eligible task, blocking until one
	// is available or the context is cancelled.
	Dequeue(ctx context.Context) (*Task, error)

	// Len returns the approximate number of tasks queued.
	Len() int
}
