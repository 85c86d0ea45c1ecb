package taskqueue

import (
	"context"
	"sync"
	"time"
)

// InMemoryQueue is a Queue backed by a slice. It is safe for concurrent use.
//
// Tasks are handed out in enqueue order. A task whose NotBefore lies in the
// future holds back the tasks behind it.
type InMemoryQueue struct {
	mu       sync.Mutex
	tasks    []Task
	capacity int
	closed   bool

	// notify is closed and replaced whenever the queue changes.
	notify chan struct{}
}

// NewInMemoryQueue creates a new queue with the given capacity.
// A capacity <= 0 means 1024.
func NewInMemoryQueue(capacity int) *InMemoryQueue {
	if capacity <= 0 {
		capacity = 1024
	}
	return &InMemoryQueue{
		capacity: capacity,
		notify:   make(chan struct{}),
	}
}

// Ensure InMemoryQueue implements Queue.
var _ Queue = (*InMemoryQueue)(nil)

func (q *InMemoryQueue) Enqueue(ctx context.Context, t Task) error {
	if t.EnqueuedAt.IsZero() {
		t.EnqueuedAt = time.Now()
	}
	for {
		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			return ErrClosed
		}
		if len(q.tasks) < q.capacity {
			q.tasks = append(q.tasks, t)
			q.broadcastLocked()
			q.mu.Unlock()
			return nil
		}
		wait := q.notify
		q.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (q *InMemoryQueue) Dequeue(ctx context.Context) (*Task, error) {
	for {
		q.mu.Lock()
		var delay <-chan time.Time
		if len(q.tasks) > 0 {
			head := q.tasks[0]
			d := time.Until(head.NotBefore)
			if head.NotBefore.IsZero() || d <= 0 {
				q.tasks = q.tasks[1:]
				q.broadcastLocked()
				q.mu.Unlock()
				return &head, nil
			}
			delay = time.After(d)
		}
		wait := q.notify
		q.mu.Unlock()

		select {
		case <-wait:
		case <-delay:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (q *InMemoryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// Close rejects further Enqueue calls. Queued tasks can still be dequeued.
func (q *InMemoryQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.broadcastLocked()
}

func (q *InMemoryQueue) broadcastLocked() {
	close(q.notify)
	q.notify = make(chan struct{})
}
