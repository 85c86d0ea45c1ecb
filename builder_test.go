package pausable

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func echo(ctx context.Context, input any) (any, error) { return input, nil }

// simple helper used by multiple tests
func addConst(c int) StepFunc {
	return TypedStep(func(ctx context.Context, in int) (int, error) {
		return in + c, nil
	})
}

func TestPipelineBuilder_BuildAndRegister(t *testing.T) {
	r := NewInMemoryRunner()

	p := New("builder-sample").
		Step("s1", addConst(1)).
		Checkpoint("wait-if-paused").
		Step("s2", addConst(2)).
		Recover(func(ctx context.Context) error { return nil }).
		Retry(Retry(1).Immediate())

	require.Equal(t, "builder-sample", p.Name())
	require.Len(t, p.Definition().Steps, 3)
	require.NoError(t, p.Register(r))

	run, err := Run(context.Background(), r, p.Name(), 1)
	require.NoError(t, err)
	require.Equal(t, StatusSucceeded, run.Status)
	require.Equal(t, 4, run.Output)

	got, err := GetRun(context.Background(), r, run.ID)
	require.NoError(t, err)
	require.Equal(t, run.ID, got.ID)

	runs, err := ListRuns(context.Background(), r, RunListOptions{Pipeline: p.Name()})
	require.NoError(t, err)
	require.Len(t, runs, 1)

	evs, err := Events(context.Background(), r, run.ID)
	require.NoError(t, err)
	require.NotEmpty(t, evs)
}

func TestPipelineBuilder_RequiresRetryBound(t *testing.T) {
	r := NewInMemoryRunner()

	err := New("unbounded").Step("s", echo).Register(r)
	require.ErrorIs(t, err, ErrRetryBoundRequired)
}

func TestPipelineBuilder_WithRetryCopiesPolicy(t *testing.T) {
	policy := RetryPolicy{MaxRetries: 1}
	p := New("copy").Step("s", echo).WithRetry(policy)
	policy.MaxRetries = 9

	require.Equal(t, 1, p.Definition().Retry.MaxRetries)
}

func TestPipelineBuilder_StepPanicsOnBadInput(t *testing.T) {
	require.Panics(t, func() { New("p").Step("", echo) })
	require.Panics(t, func() { New("p").Step("s", nil) })
}

func TestPipelineBuilder_MustRegisterPanicsOnDuplicate(t *testing.T) {
	r := NewInMemoryRunner()
	p := New("dup").Step("s", echo).Retry(Retry(0))

	p.MustRegister(r)
	require.Panics(t, func() { p.MustRegister(r) })
}

func TestPipelineBuilder_RecoverWithRunsStepsOnFailure(t *testing.T) {
	r := NewInMemoryRunner()

	var recovered []any
	attempts := 0
	p := New("recover-with").
		Step("flaky", func(ctx context.Context, input any) (any, error) {
			attempts++
			if attempts == 1 {
				return nil, errors.New("lost")
			}
			return "found", nil
		}).
		RecoverWith(
			func(ctx context.Context, input any) (any, error) {
				recovered = append(recovered, "back")
				return "home", nil
			},
			func(ctx context.Context, input any) (any, error) {
				recovered = append(recovered, input)
				return nil, nil
			},
		).
		Retry(Retry(1))
	p.MustRegister(r)

	run, err := Run(context.Background(), r, p.Name(), nil)
	require.NoError(t, err)
	require.Equal(t, "found", run.Output)
	require.Equal(t, []any{"back", "home"}, recovered)
}

func TestStart_StreamsOutcomes(t *testing.T) {
	r := NewInMemoryRunner()
	New("streamed").
		Step("fail", func(ctx context.Context, input any) (any, error) { return nil, errors.New("x") }).
		Retry(Retry(1)).
		MustRegister(r)

	ch, err := Start(context.Background(), r, "streamed", nil)
	require.NoError(t, err)

	var outcomes []Outcome
	for o := range ch {
		outcomes = append(outcomes, o)
	}
	require.Len(t, outcomes, 3)
	require.False(t, outcomes[0].Final)
	require.False(t, outcomes[1].Final)
	require.True(t, outcomes[2].Final)

	var exhausted *RetryExhaustedError
	require.ErrorAs(t, outcomes[2].Err, &exhausted)
}

func TestNewRunnerWithConfig_UsesGateAndObserver(t *testing.T) {
	g := NewGate(false)
	metrics := &BasicMetrics{}
	r := NewRunnerWithConfig(Config{Gate: g, Observer: metrics})

	require.Same(t, g, r.Gate())

	New("cfg").Step("s", echo).Retry(Retry(0)).MustRegister(r)
	_, err := Run(context.Background(), r, "cfg", nil)
	require.NoError(t, err)
	require.Equal(t, int64(1), metrics.Snapshot().RunsSucceeded)
}
