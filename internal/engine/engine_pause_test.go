package engine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/petrijr/pausable/internal/persistence"
	"github.com/petrijr/pausable/pkg/api"
	"github.com/petrijr/pausable/pkg/pause"
)

func newGatedEngine(paused bool) (api.Runner, *pause.Gate) {
	g := pause.NewGate(paused)
	return NewEngineWithConfig(Config{
		Persistence: persistence.NewInMemory(),
		Gate:        g,
	}), g
}

func TestStepsWaitForOpenGate(t *testing.T) {
	engine, g := newGatedEngine(true)

	var calls int32
	require.NoError(t, engine.RegisterPipeline(api.PipelineDefinition{
		Name: "gated",
		Steps: []api.StepDefinition{{
			Name: "count",
			Fn: func(ctx context.Context, input any) (any, error) {
				atomic.AddInt32(&calls, 1)
				return "done", nil
			},
		}},
		Retry: &api.RetryPolicy{},
	}))

	done := make(chan *api.RunInstance, 1)
	go func() {
		run, _ := engine.Run(context.Background(), "gated", nil)
		done <- run
	}()

	time.Sleep(50 * time.Millisecond)
	require.Equal(t, int32(0), atomic.LoadInt32(&calls))

	g.Resume()

	select {
	case run := <-done:
		require.Equal(t, api.StatusSucceeded, run.Status)
		require.Equal(t, int32(1), atomic.LoadInt32(&calls))
	case <-time.After(time.Second):
		t.Fatal("run did not finish after resume")
	}
}

func TestPauseBetweenSteps(t *testing.T) {
	engine, g := newGatedEngine(false)

	var second int32
	require.NoError(t, engine.RegisterPipeline(api.PipelineDefinition{
		Name: "between",
		Steps: []api.StepDefinition{
			{Name: "first", Fn: func(ctx context.Context, input any) (any, error) {
				g.Pause()
				return input, nil
			}},
			{Name: "second", Fn: func(ctx context.Context, input any) (any, error) {
				atomic.AddInt32(&second, 1)
				return input, nil
			}},
		},
		Retry: &api.RetryPolicy{},
	}))

	done := make(chan error, 1)
	go func() {
		_, err := engine.Run(context.Background(), "between", nil)
		done <- err
	}()

	time.Sleep(50 * time.Millisecond)
	require.Equal(t, int32(0), atomic.LoadInt32(&second))

	g.Resume()
	require.NoError(t, <-done)
	require.Equal(t, int32(1), atomic.LoadInt32(&second))
}

func TestGateIsAvailableToSteps(t *testing.T) {
	engine, g := newGatedEngine(false)

	var seen *pause.Gate
	require.NoError(t, engine.RegisterPipeline(api.PipelineDefinition{
		Name: "ctx-gate",
		Steps: []api.StepDefinition{{
			Name: "peek",
			Fn: func(ctx context.Context, input any) (any, error) {
				seen = pause.FromContext(ctx)
				return nil, nil
			},
		}},
		Retry: &api.RetryPolicy{},
	}))

	_, err := engine.Run(context.Background(), "ctx-gate", nil)
	require.NoError(t, err)
	require.Same(t, g, seen)
	require.Same(t, g, engine.Gate())
}

func TestCancelWhileWaitingOnGate(t *testing.T) {
	engine, _ := newGatedEngine(true)

	require.NoError(t, engine.RegisterPipeline(api.PipelineDefinition{
		Name: "never",
		Steps: []api.StepDefinition{{
			Name: "never",
			Fn:   func(ctx context.Context, input any) (any, error) { return nil, nil },
		}},
		Retry: &api.RetryPolicy{MaxRetries: 3},
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	run, err := engine.Run(ctx, "never", nil)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, api.StatusFailed, run.Status)
	require.False(t, api.IsRetryExhausted(err))
}

func TestCancelDuringStepSkipsRecovery(t *testing.T) {
	engine, _ := newGatedEngine(false)

	var recoveries int32
	require.NoError(t, engine.RegisterPipeline(api.PipelineDefinition{
		Name: "slow",
		Steps: []api.StepDefinition{{
			Name: "slow",
			Fn: func(ctx context.Context, input any) (any, error) {
				<-ctx.Done()
				return nil, ctx.Err()
			},
		}},
		Recovery: countingRecovery(&recoveries),
		Retry:    &api.RetryPolicy{MaxRetries: 3},
	}))

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	_, err := engine.Run(ctx, "slow", nil)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, int32(0), atomic.LoadInt32(&recoveries))
}

func TestCancelDuringRecovery(t *testing.T) {
	engine, _ := newGatedEngine(false)

	var stepCalls int32
	require.NoError(t, engine.RegisterPipeline(api.PipelineDefinition{
		Name:  "slow-recovery",
		Steps: []api.StepDefinition{{Name: "boom", Fn: failingStep(&stepCalls)}},
		Recovery: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
		Retry: &api.RetryPolicy{MaxRetries: 3},
	}))

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	_, err := engine.Run(ctx, "slow-recovery", nil)
	require.ErrorIs(t, err, context.Canceled)
	require.False(t, api.IsRecoveryFailure(err), "cancellation is not a recovery failure")
	require.Equal(t, int32(1), atomic.LoadInt32(&stepCalls))
}

func TestBackoffHonoursGate(t *testing.T) {
	engine, g := newGatedEngine(false)

	var calls int32
	require.NoError(t, engine.RegisterPipeline(api.PipelineDefinition{
		Name: "backoff-gate",
		Steps: []api.StepDefinition{{
			Name: "flaky",
			Fn: func(ctx context.Context, input any) (any, error) {
				if atomic.AddInt32(&calls, 1) == 1 {
					return nil, errors.New("first attempt fails")
				}
				return "ok", nil
			},
		}},
		Recovery: func(ctx context.Context) error {
			g.Pause()
			return nil
		},
		Retry: &api.RetryPolicy{MaxRetries: 1, InitialBackoff: 10 * time.Millisecond},
	}))

	done := make(chan error, 1)
	go func() {
		_, err := engine.Run(context.Background(), "backoff-gate", nil)
		done <- err
	}()

	time.Sleep(60 * time.Millisecond)
	require.Equal(t, int32(1), atomic.LoadInt32(&calls))

	g.Resume()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("run did not resume")
	}
	require.Equal(t, int32(2), atomic.LoadInt32(&calls))
}
