package pause

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func recvTick(t *testing.T, tm *Timer, d time.Duration) (Tick, bool) {
	t.Helper()
	select {
	case tick, ok := <-tm.C:
		return tick, ok
	case <-time.After(d):
		t.Fatalf("no tick within %v", d)
		return Tick{}, false
	}
}

func TestTimer_OneShotFiresOnceAndCompletes(t *testing.T) {
	g := NewGate(false)
	start := time.Now()

	tm := NewTimer(context.Background(), g, TimerConfig{InitialDelay: 20 * time.Millisecond})
	defer tm.Stop()

	tick, ok := recvTick(t, tm, time.Second)
	require.True(t, ok)
	require.Equal(t, 0, tick.Seq)
	require.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)

	_, ok = recvTick(t, tm, time.Second)
	require.False(t, ok, "one-shot timer must complete after its tick")
}

func TestTimer_OneShotClosedGateWithholdsTickUntilOpen(t *testing.T) {
	g := NewGate(true)

	tm := NewTimer(context.Background(), g, TimerConfig{InitialDelay: 20 * time.Millisecond})
	defer tm.Stop()

	// Well past the initial delay, still nothing while the gate is closed.
	select {
	case tick := <-tm.C:
		t.Fatalf("tick released while paused: %+v", tick)
	case <-time.After(80 * time.Millisecond):
	}

	g.Resume()

	tick, ok := recvTick(t, tm, time.Second)
	require.True(t, ok)
	require.Equal(t, 0, tick.Seq)

	_, ok = recvTick(t, tm, time.Second)
	require.False(t, ok, "exactly one tick expected")
}

func TestTimer_PeriodicTicksInOrder(t *testing.T) {
	g := NewGate(false)

	tm := NewTimer(context.Background(), g, TimerConfig{
		InitialDelay: 5 * time.Millisecond,
		Interval:     5 * time.Millisecond,
	})

	for want := 0; want < 4; want++ {
		tick, ok := recvTick(t, tm, time.Second)
		require.True(t, ok)
		require.Equal(t, want, tick.Seq)
	}

	tm.Stop()

	// Stop waits for C to close; draining must terminate.
	for range tm.C {
	}
}

func TestTimer_QueuePolicyWithholdsTicksWithoutDropping(t *testing.T) {
	g := NewGate(true)

	tm := NewTimer(context.Background(), g, TimerConfig{
		InitialDelay: time.Millisecond,
		Interval:     5 * time.Millisecond,
	})
	defer tm.Stop()

	time.Sleep(60 * time.Millisecond)
	g.Resume()

	for want := 0; want < 6; want++ {
		tick, ok := recvTick(t, tm, time.Second)
		require.True(t, ok)
		require.Equal(t, want, tick.Seq, "ticks must not be dropped while paused")
	}
}

func TestTimer_LatestOnlyPolicyDropsTicksDuringWait(t *testing.T) {
	g := NewGate(true)

	tm := NewTimer(context.Background(), g, TimerConfig{
		InitialDelay: time.Millisecond,
		Interval:     5 * time.Millisecond,
		Policy:       LatestOnly,
	})
	defer tm.Stop()

	time.Sleep(60 * time.Millisecond)
	g.Resume()

	first, ok := recvTick(t, tm, time.Second)
	require.True(t, ok)
	require.Equal(t, 0, first.Seq)

	second, ok := recvTick(t, tm, time.Second)
	require.True(t, ok)
	require.Greater(t, second.Seq, 1, "ticks that arrived during the wait must be dropped")
}

func TestTimer_StopCancelsPendingGateWait(t *testing.T) {
	g := NewGate(true)

	tm := NewTimer(context.Background(), g, TimerConfig{InitialDelay: time.Millisecond})
	time.Sleep(20 * time.Millisecond)

	tm.Stop()
	tm.Stop()

	g.Resume()
	_, ok := <-tm.C
	require.False(t, ok, "stopped timer must not release its pending tick")
}

func TestTimer_ContextCancelStopsClock(t *testing.T) {
	g := NewGate(false)
	ctx, cancel := context.WithCancel(context.Background())

	tm := NewTimer(ctx, g, TimerConfig{InitialDelay: time.Hour})
	cancel()

	select {
	case _, ok := <-tm.C:
		require.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("timer did not stop after context cancel")
	}
}

func TestSleep(t *testing.T) {
	t.Run("open gate", func(t *testing.T) {
		err := Sleep(context.Background(), NewGate(false), 5*time.Millisecond)
		require.NoError(t, err)
	})

	t.Run("paused gate until deadline", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
		defer cancel()

		err := Sleep(ctx, NewGate(true), time.Millisecond)
		require.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("resumed while waiting", func(t *testing.T) {
		g := NewGate(true)
		go func() {
			time.Sleep(20 * time.Millisecond)
			g.Resume()
		}()
		require.NoError(t, Sleep(context.Background(), g, time.Millisecond))
	})
}
