package flightboard

import (
	"slices"
	"time"

	"github.com/jpalmerr/flightboard/flight"
	"github.com/jpalmerr/flightboard/internal/store"
)

const (
	// maxMessageLen is how much of a failure reason fits in the status line.
	maxMessageLen = 30

	messageInitializing = "Initializing..."
	messageConnected    = "Connected"
)

// View is what a [Renderer] draws: the presentation-ready flight list plus
// the connection status line.
//
// A View is produced by the [Consumer] after every update event. On failure
// the flight list is the previously displayed one, unchanged.
type View struct {
	// Flights is the filtered, sorted and capped list in display order.
	Flights []flight.Flight

	// State is the connection state reported with the latest event.
	State flight.ConnectionState

	// Failures is the consecutive failure count.
	Failures int

	// LastUpdate is the capture time of the batch being displayed.
	LastUpdate time.Time

	// FlightCount is the number of flights in the cached batch before the
	// presentation transform.
	FlightCount int

	// Message is the status line text. Failure reasons are truncated.
	Message string

	// HasData is false until the first successful poll; renderers show an
	// explicit "no data yet" state instead of an empty board.
	HasData bool

	// NextPoll is the delay before the next poll attempt.
	NextPoll time.Duration

	// Demo marks boards fed by the synthetic source.
	Demo bool
}

// StatusMessage formats a failure reason for the status line.
// Long reasons are cut at maxMessageLen characters, never inside one.
func StatusMessage(reason string) string {
	if r := []rune(reason); len(r) > maxMessageLen {
		return "Error: " + string(r[:maxMessageLen]) + "..."
	}
	return reason
}

// clone returns v with its own copy of the flight list.
func (v View) clone() View {
	v.Flights = slices.Clone(v.Flights)
	return v
}

// snapshot converts v to the JSON shape served by the web dashboard.
func (v View) snapshot(title string) store.Snapshot {
	return store.Snapshot{
		Title:       title,
		Flights:     v.Flights,
		State:       v.State.String(),
		Failures:    v.Failures,
		Message:     v.Message,
		HasData:     v.HasData,
		FlightCount: v.FlightCount,
		LastUpdate:  v.LastUpdate,
		NextPollMs:  v.NextPoll.Milliseconds(),
		Demo:        v.Demo,
	}
}
