package pausable

import (
	"database/sql"

	"github.com/petrijr/pausable/internal/taskqueue"
	workerpkg "github.com/petrijr/pausable/pkg/worker"
)

// WorkerBundle wires together a Runner that journals to SQLite, a task
// queue, and a Worker that consumes tasks from that queue.
type WorkerBundle struct {
	Runner Runner
	Worker *workerpkg.Worker

	// queue is kept unexported; it is primarily useful for tests.
	queue taskqueue.Queue
}

// NewSQLiteBundle constructs a Runner + Queue + Worker combo. Run events are
// written to the provided *sql.DB and can be read back after a restart with
// Runner.Events, given the run ID.
//
// Typical usage:
//
//	db, _ := sql.Open("sqlite", "file:pausable.db?_pragma=journal_mode(WAL)")
//	bundle, err := pausable.NewSQLiteBundle(db, pausable.Config{}, worker.Config{})
//	// register pipelines on bundle.Runner
//	// enqueue work via bundle.Worker
func NewSQLiteBundle(db *sql.DB, cfg Config, wcfg workerpkg.Config) (*WorkerBundle, error) {
	r, err := NewSQLiteRunner(db, cfg)
	if err != nil {
		return nil, err
	}

	q := taskqueue.NewInMemoryQueue(0)
	w := workerpkg.NewWithConfig(r, q, wcfg)

	return &WorkerBundle{
		Runner: r,
		Worker: w,
		queue:  q,
	}, nil
}
