// Package handoff provides the single-slot mailbox that carries update events
// from the background poller to the foreground consumer.
//
// The mailbox has capacity one and overwrite-latest semantics: if the consumer
// has not drained the pending value when a new one arrives, the new value
// replaces it. Put never blocks, so a slow consumer can never stall the
// poller, and stale intermediate updates are never buffered.
package handoff

import (
	"sync"
	"sync/atomic"
)

// Mailbox is a capacity-one, overwrite-latest channel.
//
// Any number of goroutines may call [Mailbox.Put]; a single consumer should
// read via [Mailbox.C] or [Mailbox.TryTake].
type Mailbox[T any] struct {
	slot chan T

	// putMu serializes producers so the drain-then-send sequence in Put
	// cannot interleave with another producer's send.
	putMu sync.Mutex

	puts  atomic.Uint64
	drops atomic.Uint64
}

// New creates an empty [Mailbox].
func New[T any]() *Mailbox[T] {
	return &Mailbox[T]{slot: make(chan T, 1)}
}

// Put stores v, replacing any value the consumer has not taken yet.
//
// Put is non-blocking: it holds the producer lock for a bounded number of
// channel operations and returns. It reports whether a pending value was
// overwritten.
func (m *Mailbox[T]) Put(v T) (replaced bool) {
	m.putMu.Lock()
	defer m.putMu.Unlock()

	m.puts.Add(1)

	for {
		select {
		case m.slot <- v:
			return replaced
		default:
		}

		// slot is full: discard the stale value. If the consumer took it
		// between the two selects, the drain finds nothing and the next
		// send succeeds.
		select {
		case <-m.slot:
			replaced = true
			m.drops.Add(1)
		default:
		}
	}
}

// C returns the receive side of the mailbox for use in select statements.
func (m *Mailbox[T]) C() <-chan T {
	return m.slot
}

// TryTake returns the pending value, if any, without blocking.
func (m *Mailbox[T]) TryTake() (T, bool) {
	select {
	case v := <-m.slot:
		return v, true
	default:
		var zero T
		return zero, false
	}
}

// Pending reports whether a value is waiting to be taken.
func (m *Mailbox[T]) Pending() bool {
	return len(m.slot) > 0
}

// Stats is a point-in-time copy of mailbox counters.
type Stats struct {
	// Puts is the total number of values offered.
	Puts uint64

	// Drops is the number of values overwritten before the consumer saw them.
	Drops uint64
}

// Stats returns the current counters.
func (m *Mailbox[T]) Stats() Stats {
	return Stats{
		Puts:  m.puts.Load(),
		Drops: m.drops.Load(),
	}
}
