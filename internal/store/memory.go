package store

import (
	"sync"

	"github.com/jpalmerr/flightboard/flight"
)

// subscriberBuffer is the channel capacity handed to each subscriber.
const subscriberBuffer = 16

// MemoryStore is an in-memory implementation of [Store].
//
// MemoryStore keeps only the latest [Snapshot]. Each snapshot is a complete
// picture of the board, so a subscriber that misses one loses nothing once
// the next arrives.
//
// Subscribers receive updates via buffered channels. Sends are non-blocking;
// if a subscriber's buffer is full, the snapshot is dropped for that
// subscriber rather than stalling the consumer loop.
type MemoryStore struct {
	mu      sync.RWMutex
	latest  Snapshot
	hasData bool

	subMu       sync.RWMutex
	subscribers map[chan Snapshot]struct{}
}

// NewMemoryStore creates a new in-memory [Store] implementation.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		subscribers: make(map[chan Snapshot]struct{}),
	}
}

// Update stores snap as the current snapshot and notifies all subscribers.
//
// The flight slice is copied so later changes by the caller do not leak
// into readers.
func (m *MemoryStore) Update(snap Snapshot) {
	snap = clone(snap)

	m.mu.Lock()
	m.latest = snap
	m.hasData = true
	m.mu.Unlock()

	m.notifySubscribers(snap)
}

// Latest returns a copy of the current snapshot.
func (m *MemoryStore) Latest() (Snapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.hasData {
		return Snapshot{}, false
	}
	return clone(m.latest), true
}

// Subscribe creates a new subscription and returns a channel for receiving
// snapshots.
//
// Caller must call [MemoryStore.Unsubscribe] when done to prevent resource leaks.
func (m *MemoryStore) Subscribe() <-chan Snapshot {
	ch := make(chan Snapshot, subscriberBuffer)

	m.subMu.Lock()
	m.subscribers[ch] = struct{}{}
	m.subMu.Unlock()

	return ch
}

// Unsubscribe removes a subscription and closes its channel.
// Safe to call multiple times or with an unknown channel.
func (m *MemoryStore) Unsubscribe(ch <-chan Snapshot) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	for subCh := range m.subscribers {
		if subCh == ch {
			delete(m.subscribers, subCh)
			close(subCh)
			break
		}
	}
}

// Subscribers returns the number of open subscriptions.
func (m *MemoryStore) Subscribers() int {
	m.subMu.RLock()
	defer m.subMu.RUnlock()
	return len(m.subscribers)
}

func (m *MemoryStore) notifySubscribers(snap Snapshot) {
	m.subMu.RLock()
	defer m.subMu.RUnlock()

	for ch := range m.subscribers {
		select {
		case ch <- snap:
		default:
			// slow subscriber, drop
		}
	}
}

func clone(s Snapshot) Snapshot {
	if s.Flights != nil {
		flights := make([]flight.Flight, len(s.Flights))
		copy(flights, s.Flights)
		s.Flights = flights
	}
	return s
}
