package postgres

import (
	"database/sql"

	"github.com/petrijr/pausable"
	"github.com/petrijr/pausable/internal/engine"
	"github.com/petrijr/pausable/internal/persistence"

	pstore "github.com/petrijr/pausable/postgres/internal/persistence"
)

// NewPostgresRunner returns a Runner that journals run events to PostgreSQL.
// Pipeline definitions and run records are kept in memory.
//
// The caller opens db with a PostgreSQL driver, e.g.:
//
//	import _ "github.com/jackc/pgx/v5/stdlib"
//	db, err := sql.Open("pgx", dsn)
func NewPostgresRunner(db *sql.DB, cfg pausable.Config) (pausable.Runner, error) {
	events, err := pstore.NewPostgresEventStore(db)
	if err != nil {
		return nil, err
	}
	mem := persistence.NewInMemoryStore()

	return engine.NewEngineWithConfig(engine.Config{
		Persistence: persistence.Persistence{
			Pipelines: mem,
			Runs:      mem,
			Events:    events,
		},
		Observer: cfg.Observer,
		Gate:     cfg.Gate,
	}), nil
}
