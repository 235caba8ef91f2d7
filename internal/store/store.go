package store

import (
	"time"

	"github.com/jpalmerr/flightboard/flight"
)

// Snapshot is the storage representation of what the board currently shows.
//
// Snapshot is optimized for JSON serialization (used by the REST API and
// SSE). It is decoupled from the SDK's View type so that the web layer can
// evolve independently of the consumer loop.
type Snapshot struct {
	// Title is the board heading.
	Title string `json:"title"`

	// Flights is the transformed, capped flight list in display order.
	Flights []flight.Flight `json:"flights"`

	// State is the connection state name ("connected", "reconnecting", "disconnected").
	State string `json:"state"`

	// Failures is the consecutive failure count reported by the poller.
	Failures int `json:"failures"`

	// Message is the short status line, truncated for display.
	Message string `json:"message"`

	// HasData is false until the first successful poll.
	HasData bool `json:"has_data"`

	// FlightCount is the number of flights in the batch before capping.
	FlightCount int `json:"flight_count"`

	// LastUpdate is the capture time of the displayed batch.
	LastUpdate time.Time `json:"last_update"`

	// NextPoll is the delay before the poller's next attempt.
	NextPollMs int64 `json:"next_poll_ms"`

	// Demo is set when the board is fed by the synthetic source.
	Demo bool `json:"demo"`
}

// Store defines the interface for holding the latest snapshot and fanning
// out changes.
//
// Store implementations must be safe for concurrent access. The pub/sub
// mechanism allows real-time updates to be pushed to connected clients
// (e.g., via Server-Sent Events).
type Store interface {
	// Update replaces the current snapshot and notifies all subscribers.
	Update(snap Snapshot)

	// Latest returns the current snapshot and whether one has been stored.
	Latest() (Snapshot, bool)

	// Subscribe returns a channel that receives snapshots.
	// The returned channel has a buffer; slow consumers may miss updates.
	// Caller must call Unsubscribe when done to prevent resource leaks.
	Subscribe() <-chan Snapshot

	// Unsubscribe removes a subscription and closes the channel.
	// Safe to call with a channel that was already unsubscribed.
	Unsubscribe(ch <-chan Snapshot)

	// Subscribers returns the number of active subscriptions.
	Subscribers() int
}
