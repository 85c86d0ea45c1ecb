package persistence

import (
	"context"
	"database/sql"
	"time"

	corep "github.com/petrijr/pausable/internal/persistence"
	"github.com/petrijr/pausable/pkg/api"
)

// PostgresEventStore is an EventStore backed by PostgreSQL.
//
// It expects an *sql.DB that uses a PostgreSQL driver (for example,
// "github.com/jackc/pgx/v5/stdlib").
type PostgresEventStore struct {
	db *sql.DB
}

var _ corep.EventStore = (*PostgresEventStore)(nil)

// NewPostgresEventStore creates the run_events table if needed.
func NewPostgresEventStore(db *sql.DB) (*PostgresEventStore, error) {
	s := &PostgresEventStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (p *PostgresEventStore) initSchema() error {
	_, err := p.db.Exec(`
		CREATE TABLE IF NOT EXISTS run_events (
			id BIGSERIAL PRIMARY KEY,
			run_id TEXT NOT NULL,
			at TIMESTAMPTZ NOT NULL,
			type TEXT NOT NULL,
			pipeline TEXT NOT NULL DEFAULT '',
			attempt INTEGER NOT NULL DEFAULT 0,
			step INTEGER NOT NULL DEFAULT -1,
			detail TEXT NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS idx_run_events_run_id ON run_events(run_id, id);
	`)
	return err
}

func (p *PostgresEventStore) AppendEvent(ctx context.Context, ev api.RunEvent) error {
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO run_events (run_id, at, type, pipeline, attempt, step, detail)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		ev.RunID,
		at.UTC(),
		string(ev.Type),
		ev.Pipeline,
		ev.Attempt,
		ev.Step,
		ev.Detail,
	)
	return err
}

func (p *PostgresEventStore) ListEvents(ctx context.Context, runID string) ([]api.RunEvent, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT run_id, at, type, pipeline, attempt, step, detail
		FROM run_events
		WHERE run_id = $1
		ORDER BY id ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []api.RunEvent
	for rows.Next() {
		var (
			ev  api.RunEvent
			typ string
		)
		if err := rows.Scan(&ev.RunID, &ev.At, &typ, &ev.Pipeline, &ev.Attempt, &ev.Step, &ev.Detail); err != nil {
			return nil, err
		}
		ev.Type = api.EventType(typ)
		out = append(out, ev)
	}
	return out, rows.Err()
}
