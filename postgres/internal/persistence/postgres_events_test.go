package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/require"

	"github.com/petrijr/pausable/pkg/api"
	"github.com/petrijr/pausable/postgres/internal/testutil"
)

func newTestPostgresEventStore(t *testing.T) *PostgresEventStore {
	t.Helper()

	db, err := sql.Open("pgx", testutil.GetPostgresEndpoint(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store, err := NewPostgresEventStore(db)
	require.NoError(t, err)

	_, err = db.Exec("TRUNCATE TABLE run_events")
	require.NoError(t, err)
	return store
}

func TestPostgresEventStore_AppendAndList(t *testing.T) {
	ctx := context.Background()
	store := newTestPostgresEventStore(t)

	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.AppendEvent(ctx, api.RunEvent{RunID: "r1", At: at, Type: api.EventRunStarted, Pipeline: "p", Step: -1}))
	require.NoError(t, store.AppendEvent(ctx, api.RunEvent{RunID: "r2", At: at, Type: api.EventRunStarted, Pipeline: "q", Step: -1}))
	require.NoError(t, store.AppendEvent(ctx, api.RunEvent{RunID: "r1", At: at, Type: api.EventStepFailed, Pipeline: "p", Attempt: 1, Step: 0, Detail: "boom"}))
	require.NoError(t, store.AppendEvent(ctx, api.RunEvent{RunID: "r1", Type: api.EventRunFailed, Pipeline: "p", Attempt: 1, Step: -1}))

	evs, err := store.ListEvents(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, evs, 3)

	require.Equal(t, api.EventRunStarted, evs[0].Type)
	require.True(t, at.Equal(evs[0].At))
	require.Equal(t, api.EventStepFailed, evs[1].Type)
	require.Equal(t, 1, evs[1].Attempt)
	require.Equal(t, "boom", evs[1].Detail)
	require.Equal(t, api.EventRunFailed, evs[2].Type)
	require.False(t, evs[2].At.IsZero())

	none, err := store.ListEvents(ctx, "missing")
	require.NoError(t, err)
	require.Empty(t, none)
}
