// Package pause provides the pause-gating primitives used by pausable runs.
//
// A Gate holds one shared pause flag. Whoever owns the gate flips it with
// SetPaused; everything else only reads it, either by polling IsPaused, by
// subscribing, or by blocking in WaitOpen.
//
// Gated wraps a channel-based stream so that items are released only while
// the gate is open, under one of two policies:
//
//   - Queue keeps every item and releases them in order once the gate opens.
//   - LatestOnly keeps at most one waiting item and drops anything that
//     arrives while it waits.
//
// Timer is a one-shot or periodic timer whose ticks go through Gated, so
// a paused gate withholds ticks until it reopens.
//
//	g := pause.NewGate(false)
//	t := pause.NewTimer(ctx, g, pause.TimerConfig{
//	    InitialDelay: 2 * time.Second,
//	    Interval:     time.Second,
//	})
//	defer t.Stop()
//
//	for tick := range t.C {
//	    fmt.Println("tick", tick.Seq)
//	}
//
// All stages stop when their context is cancelled.
package pause
