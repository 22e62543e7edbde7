package agent

import (
	"context"
	"sync"
)

// Bridge connects a background model-call producer to a foreground consumer
// through an unbounded FIFO queue. Publish never blocks, so a slow consumer
// cannot stall model-call progress; the consumer blocks on a real channel
// receive rather than polling.
//
// A Bridge carries exactly one invocation: one producer, one consumer, and
// exactly one terminal event (Done or Failed). After the terminal event has
// been delivered, Next reports end-of-stream regardless of anything still
// queued behind it.
type Bridge struct {
	mu     sync.Mutex
	queue  []Event
	wake   chan struct{}
	closed bool

	// sawTerminal is set once Done or Failed has been handed to the consumer.
	sawTerminal bool
}

// NewBridge creates an open bridge ready for one invocation.
func NewBridge() *Bridge {
	return &Bridge{
		wake: make(chan struct{}, 1),
	}
}

// Publish appends an event to the queue and wakes the consumer. It never
// blocks. Publishing after Close is a no-op.
func (b *Bridge) Publish(ev Event) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.queue = append(b.queue, ev)
	b.mu.Unlock()

	select {
	case b.wake <- struct{}{}:
	default:
	}
}

// Close marks the producer side finished. Queued events remain consumable;
// Next returns end-of-stream once the queue drains.
func (b *Bridge) Close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()

	select {
	case b.wake <- struct{}{}:
	default:
	}
}

// Next returns the next event in publication order. It blocks until an event
// is available, the bridge is closed and drained, or ctx is cancelled. The
// second return is false at end-of-stream: after the terminal event has been
// delivered, after Close with an empty queue, or on context cancellation.
func (b *Bridge) Next(ctx context.Context) (Event, bool) {
	for {
		b.mu.Lock()
		if b.sawTerminal {
			b.mu.Unlock()
			return Event{}, false
		}
		if len(b.queue) > 0 {
			ev := b.queue[0]
			b.queue = b.queue[1:]
			if ev.Terminal() {
				b.sawTerminal = true
			}
			b.mu.Unlock()
			return ev, true
		}
		closed := b.closed
		b.mu.Unlock()

		if closed {
			return Event{}, false
		}

		select {
		case <-b.wake:
		case <-ctx.Done():
			return Event{}, false
		}
	}
}

// Drain consumes and discards any remaining events so an early-exiting
// consumer does not leave the producer's queue growing unobserved. It returns
// once the terminal event has passed or the bridge is closed and empty.
func (b *Bridge) Drain(ctx context.Context) {
	for {
		if _, ok := b.Next(ctx); !ok {
			return
		}
	}
}
