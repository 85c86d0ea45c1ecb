package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/petrijr/pausable/pkg/api"
)

const sqliteJournalSchema = `
CREATE TABLE IF NOT EXISTS run_events (
	seq      INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id   TEXT    NOT NULL,
	at_ns    INTEGER NOT NULL,
	type     TEXT    NOT NULL,
	pipeline TEXT    NOT NULL DEFAULT '',
	attempt  INTEGER NOT NULL DEFAULT 0,
	step     INTEGER NOT NULL DEFAULT -1,
	detail   TEXT    NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_run_events_run ON run_events(run_id, seq);
`

// SQLiteEventStore is the run journal on SQLite. It only ever appends, so
// the history of finished and abandoned runs can be read back after the
// process restarts, even though the runs themselves are gone.
//
// Open db with a registered SQLite driver, such as modernc.org/sqlite.
type SQLiteEventStore struct {
	db *sql.DB
}

var _ EventStore = (*SQLiteEventStore)(nil)

// NewSQLiteEventStore creates the journal table if it does not exist yet.
// Existing history is kept.
func NewSQLiteEventStore(db *sql.DB) (*SQLiteEventStore, error) {
	if _, err := db.Exec(sqliteJournalSchema); err != nil {
		return nil, fmt.Errorf("sqlite journal: create schema: %w", err)
	}
	return &SQLiteEventStore{db: db}, nil
}

func (s *SQLiteEventStore) AppendEvent(ctx context.Context, ev api.RunEvent) error {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO run_events (run_id, at_ns, type, pipeline, attempt, step, detail) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ev.RunID, ev.At.UnixNano(), string(ev.Type), ev.Pipeline, ev.Attempt, ev.Step, ev.Detail,
	)
	if err != nil {
		return fmt.Errorf("sqlite journal: append %s for run %s: %w", ev.Type, ev.RunID, err)
	}
	return nil
}

// ListEvents returns the history of runID in append order.
func (s *SQLiteEventStore) ListEvents(ctx context.Context, runID string) ([]api.RunEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT at_ns, type, pipeline, attempt, step, detail FROM run_events WHERE run_id = ? ORDER BY seq`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite journal: list run %s: %w", runID, err)
	}
	defer rows.Close()

	var history []api.RunEvent
	for rows.Next() {
		ev := api.RunEvent{RunID: runID}
		var (
			atNs int64
			typ  string
		)
		if err := rows.Scan(&atNs, &typ, &ev.Pipeline, &ev.Attempt, &ev.Step, &ev.Detail); err != nil {
			return nil, fmt.Errorf("sqlite journal: scan run %s: %w", runID, err)
		}
		ev.At = time.Unix(0, atNs)
		ev.Type = api.EventType(typ)
		history = append(history, ev)
	}
	return history, rows.Err()
}
