package pause

import (
	"context"
	"sync"
)

// Gate holds a single shared pause flag.
//
// There is one writer role (whoever calls SetPaused) and any number of
// readers. Every SetPaused wakes all goroutines blocked in WaitOpen and calls
// every subscriber synchronously with the new value. Subscribers registered
// later receive the latest value immediately.
//
// The zero value is an open gate ready for use.
type Gate struct {
	// notifyMu serializes writers with their notifications so subscribers
	// see values in the order they were set. It is taken before mu.
	notifyMu sync.Mutex

	mu      sync.Mutex
	paused  bool
	changed chan struct{}

	nextSub int
	subs    map[int]func(bool)
}

// NewGate returns a gate with the given initial state.
func NewGate(paused bool) *Gate {
	return &Gate{paused: paused}
}

// SetPaused replaces the pause flag and notifies all observers.
func (g *Gate) SetPaused(paused bool) {
	g.notifyMu.Lock()
	defer g.notifyMu.Unlock()

	g.mu.Lock()
	g.paused = paused
	if g.changed != nil {
		close(g.changed)
		g.changed = nil
	}
	subs := make([]func(bool), 0, len(g.subs))
	for _, fn := range g.subs {
		subs = append(subs, fn)
	}
	g.mu.Unlock()

	for _, fn := range subs {
		fn(paused)
	}
}

// Pause closes the gate.
func (g *Gate) Pause() { g.SetPaused(true) }

// Resume opens the gate.
func (g *Gate) Resume() { g.SetPaused(false) }

// IsPaused reports the current value without blocking.
func (g *Gate) IsPaused() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.paused
}

// state returns the current flag and a channel that is closed on the next
// SetPaused call.
func (g *Gate) state() (bool, <-chan struct{}) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.changed == nil {
		g.changed = make(chan struct{})
	}
	return g.paused, g.changed
}

// WaitOpen blocks until the gate is open. It returns immediately when the
// gate is already open, and ctx.Err() if ctx ends first.
func (g *Gate) WaitOpen(ctx context.Context) error {
	for {
		paused, changed := g.state()
		if !paused {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-changed:
		}
	}
}

// Subscribe registers fn to be called with the current value right away and
// with every subsequent value. Calls happen on the goroutine that invoked
// SetPaused, outside the gate's state lock, so fn may read the gate or
// unsubscribe. fn must not call SetPaused.
//
// The returned function removes the subscription; it is safe to call more
// than once.
func (g *Gate) Subscribe(fn func(paused bool)) (unsubscribe func()) {
	g.notifyMu.Lock()
	defer g.notifyMu.Unlock()

	g.mu.Lock()
	if g.subs == nil {
		g.subs = make(map[int]func(bool))
	}
	id := g.nextSub
	g.nextSub++
	g.subs[id] = fn
	current := g.paused
	g.mu.Unlock()

	fn(current)

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.subs, id)
			g.mu.Unlock()
		})
	}
}

// Changes returns a channel that always holds the most recent pause value.
// Intermediate values are coalesced if the reader falls behind. The channel
// is closed when ctx ends.
func (g *Gate) Changes(ctx context.Context) <-chan bool {
	out := make(chan bool, 1)
	var mu sync.Mutex
	closed := false

	push := func(v bool) {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		select {
		case <-out:
		default:
		}
		out <- v
	}

	unsubscribe := g.Subscribe(push)

	go func() {
		<-ctx.Done()
		unsubscribe()
		mu.Lock()
		closed = true
		close(out)
		mu.Unlock()
	}()

	return out
}

type gateKey struct{}

// WithGate attaches g to ctx so that steps can reach the gate of the run
// executing them.
func WithGate(ctx context.Context, g *Gate) context.Context {
	return context.WithValue(ctx, gateKey{}, g)
}

// FromContext returns the gate attached by WithGate, or nil.
func FromContext(ctx context.Context) *Gate {
	g, _ := ctx.Value(gateKey{}).(*Gate)
	return g
}
