package pause

import (
	"context"
	"sync"
	"time"
)

// TimerConfig configures a pausable timer.
type TimerConfig struct {
	// InitialDelay is the delay before the first tick.
	InitialDelay time.Duration

	// Interval, if > 0, makes the timer keep ticking every Interval after the
	// first tick. Otherwise the timer completes after one tick.
	Interval time.Duration

	// Policy used to gate ticks. Defaults to Queue, which withholds ticks
	// while the gate is closed instead of dropping them.
	Policy Policy
}

// Tick is one timer firing. Seq starts at 0; At is the clock time of the raw
// tick, not the time it was released through the gate.
type Tick struct {
	Seq int
	At  time.Time
}

// Timer is a one-shot or periodic timer whose ticks pass through a Gate.
type Timer struct {
	// C delivers released ticks. It is closed when the timer completes or
	// is stopped.
	C <-chan Tick

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// NewTimer starts a timer gated by g. The timer stops when ctx ends or Stop
// is called; either cancels the underlying clock and any pending gate wait.
func NewTimer(ctx context.Context, g *Gate, cfg TimerConfig) *Timer {
	ctx, cancel := context.WithCancel(ctx)

	raw := make(chan Event[Tick])
	go produceTicks(ctx, raw, cfg)

	out := make(chan Tick)
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer close(out)
		defer cancel()
		forward(ctx, g, raw, out, cfg.Policy, nil, func(ev Event[Tick]) Tick { return ev.Value })
	}()

	return &Timer{
		C:      out,
		cancel: cancel,
		done:   done,
	}
}

// Stop cancels the timer and waits until C is closed. Undelivered ticks are
// discarded. Stop is idempotent.
func (t *Timer) Stop() {
	t.once.Do(t.cancel)
	<-t.done
}

func produceTicks(ctx context.Context, raw chan<- Event[Tick], cfg TimerConfig) {
	defer close(raw)

	emit := func(seq int, at time.Time) bool {
		select {
		case raw <- Event[Tick]{Value: Tick{Seq: seq, At: at}}:
			return true
		case <-ctx.Done():
			return false
		}
	}

	first := time.NewTimer(cfg.InitialDelay)
	defer first.Stop()

	select {
	case <-ctx.Done():
		return
	case at := <-first.C:
		if !emit(0, at) {
			return
		}
	}

	if cfg.Interval <= 0 {
		return
	}

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for seq := 1; ; seq++ {
		select {
		case <-ctx.Done():
			return
		case at := <-ticker.C:
			if !emit(seq, at) {
				return
			}
		}
	}
}

// Sleep waits for d to elapse and then for g to be open, using a one-shot
// Timer. It returns ctx.Err() if ctx ends first.
func Sleep(ctx context.Context, g *Gate, d time.Duration) error {
	t := NewTimer(ctx, g, TimerConfig{InitialDelay: d})
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case _, ok := <-t.C:
		if !ok {
			return ctx.Err()
		}
		return nil
	}
}
