package pause

import (
	"context"
	"fmt"
)

// Policy selects how Gated treats items that arrive while the gate is closed.
type Policy int

const (
	// Queue releases every upstream item, in arrival order, one at a time.
	// Items arriving while the gate is closed are withheld, never dropped.
	Queue Policy = iota

	// LatestOnly lets at most one item wait on the gate. Items arriving
	// while another item is waiting on the closed gate are discarded. While
	// the gate is open nothing is dropped; upstream is held until the reader
	// takes the pending item.
	LatestOnly
)

func (p Policy) String() string {
	switch p {
	case Queue:
		return "QUEUE"
	case LatestOnly:
		return "LATEST_ONLY"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// Event is one element of a gated stream. A non-nil Err terminates the stream.
type Event[T any] struct {
	Value T
	Err   error
}

// EmitterOption customizes Gated.
type EmitterOption[T any] func(*emitterConfig[T])

type emitterConfig[T any] struct {
	onDrop func(T)
}

// WithDropHandler registers fn to be called with every item that LatestOnly
// discards. fn runs on the emitter goroutine and must not block.
func WithDropHandler[T any](fn func(T)) EmitterOption[T] {
	return func(c *emitterConfig[T]) {
		c.onDrop = fn
	}
}

// Gated releases items from in only while g is open.
//
// An item is handed to the reader only while the gate is open; if the gate
// closes before the reader takes it, the item goes back to waiting. Upstream
// errors bypass the gate: the error event is forwarded at once and the
// output is closed. When in is closed, items already waiting are still
// released before the output closes.
//
// Cancelling ctx abandons any waiting items, stops reading in and closes the
// output. A nil gate never closes.
func Gated[T any](ctx context.Context, g *Gate, in <-chan Event[T], policy Policy, opts ...EmitterOption[T]) <-chan Event[T] {
	var cfg emitterConfig[T]
	for _, opt := range opts {
		opt(&cfg)
	}

	out := make(chan Event[T])
	go func() {
		defer close(out)
		forward(ctx, g, in, out, policy, cfg.onDrop, func(ev Event[T]) Event[T] { return ev })
	}()
	return out
}

// forward is the emitter loop shared by Gated and Timer. conv maps the
// released event to the output element type.
func forward[T, O any](
	ctx context.Context,
	g *Gate,
	in <-chan Event[T],
	out chan<- O,
	policy Policy,
	onDrop func(T),
	conv func(Event[T]) O,
) {
	if g == nil {
		g = &Gate{}
	}

	var waiting []T
	src := in

	for {
		if src == nil && len(waiting) == 0 {
			return
		}

		var (
			sendCh  chan<- O
			head    O
			changed <-chan struct{}
		)
		readCh := src
		if len(waiting) > 0 {
			paused, ch := g.state()
			changed = ch
			if !paused {
				sendCh = out
				head = conv(Event[T]{Value: waiting[0]})
				// An open gate drops nothing: hold upstream until the
				// reader takes the head.
				if policy == LatestOnly {
					readCh = nil
				}
			}
		}

		select {
		case <-ctx.Done():
			return

		case ev, ok := <-readCh:
			if !ok {
				src = nil
				continue
			}
			if ev.Err != nil {
				select {
				case out <- conv(ev):
				case <-ctx.Done():
				}
				return
			}
			if policy == LatestOnly && len(waiting) > 0 {
				if onDrop != nil {
					onDrop(ev.Value)
				}
				continue
			}
			waiting = append(waiting, ev.Value)

		case sendCh <- head:
			var zero T
			waiting[0] = zero
			waiting = waiting[1:]

		case <-changed:
			// Gate toggled; re-evaluate on the next iteration.
		}
	}
}
