package api

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/petrijr/pausable/pkg/pause"
)

func TestPauseCheckpointStep_WaitsForGate(t *testing.T) {
	g := pause.NewGate(true)
	ctx := pause.WithGate(context.Background(), g)

	done := make(chan any, 1)
	go func() {
		out, _ := PauseCheckpointStep()(ctx, "in")
		done <- out
	}()

	select {
	case <-done:
		t.Fatal("checkpoint passed a closed gate")
	case <-time.After(30 * time.Millisecond):
	}

	g.Resume()
	require.Equal(t, "in", <-done)
}

func TestPauseCheckpointStep_NoGateIsNoop(t *testing.T) {
	out, err := PauseCheckpointStep()(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, 7, out)
}

func TestPausableSleepStep(t *testing.T) {
	start := time.Now()
	out, err := PausableSleepStep(20*time.Millisecond)(context.Background(), "x")
	require.NoError(t, err)
	require.Equal(t, "x", out)
	require.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = PausableSleepStep(time.Hour)(ctx, "x")
	require.ErrorIs(t, err, context.Canceled)
}

func TestRecoverWith_ChainsAndStopsOnError(t *testing.T) {
	var trace []any
	record := func(out any) StepFunc {
		return func(ctx context.Context, input any) (any, error) {
			trace = append(trace, input)
			return out, nil
		}
	}

	require.NoError(t, RecoverWith(record("a"), record("b"))(context.Background()))
	require.Equal(t, []any{nil, "a"}, trace)

	boom := errors.New("boom")
	trace = nil
	err := RecoverWith(
		record("a"),
		func(ctx context.Context, input any) (any, error) { return nil, boom },
		record("never"),
	)(context.Background())
	require.ErrorIs(t, err, boom)
	require.Equal(t, []any{nil}, trace)
}

func TestDelayRecovery(t *testing.T) {
	start := time.Now()
	require.NoError(t, DelayRecovery(15*time.Millisecond)(context.Background()))
	require.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond)
}

func TestTypedStep(t *testing.T) {
	step := TypedStep(func(ctx context.Context, in int) (string, error) {
		return "n=" + string(rune('0'+in)), nil
	})

	out, err := step(context.Background(), 5)
	require.NoError(t, err)
	require.Equal(t, "n=5", out)

	_, err = step(context.Background(), "not-int")
	require.ErrorContains(t, err, "TypedStep: expected input of type")

	ptr := TypedStep(func(ctx context.Context, in *int) (bool, error) { return in == nil, nil })
	out, err = ptr(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, true, out)
}
