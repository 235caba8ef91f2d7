// Package flight defines the value types that travel through the FlightBoard
// update pipeline.
//
// The types here are shared by the poller, the handoff mailbox, the consumer
// loop and the renderers. They live in their own package so that the internal
// pipeline packages and the public SDK can both depend on them without import
// cycles.
//
// The main types are:
//
//   - [Flight]: an immutable snapshot of one aircraft
//   - [Batch]: one complete poll result
//   - [ConnectionStatus]: the poller's view of source health
//   - [UpdateEvent]: the unit carried from poller to consumer
//   - [Source]: the capability every data source implements
//   - [Region] and [BoundingBox]: the geographic fetch scope
package flight

import (
	"context"
	"time"
)

// Flight is a snapshot of a single aircraft at the time a batch was captured.
//
// Flight is a value object: each poll yields a complete replacement set and no
// identity is tracked across batches.
type Flight struct {
	// ID is the provider's flight identifier (e.g. fr24_id).
	ID string `json:"id"`

	// Callsign is the ATC callsign, "N/A" when unknown.
	Callsign string `json:"callsign"`

	Airline      string `json:"airline"`
	AircraftType string `json:"aircraft_type"`
	Origin       string `json:"origin"`
	Destination  string `json:"destination"`
	Registration string `json:"registration,omitempty"`

	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`

	// Altitude is barometric altitude in feet.
	Altitude int `json:"altitude"`

	// GroundSpeed is in knots.
	GroundSpeed int `json:"ground_speed"`

	// Heading is the true track in degrees.
	Heading int `json:"heading"`

	// VerticalSpeed is in feet per minute; nil when the source does not report it.
	VerticalSpeed *int `json:"vertical_speed,omitempty"`

	// DistanceKm is the distance from the region center. It is derived by the
	// poller once per batch.
	DistanceKm float64 `json:"distance_km"`

	// SeenAt is the capture timestamp of the batch this flight arrived with.
	SeenAt time.Time `json:"seen_at"`
}

// Normalize returns a copy of f with display defaults applied to empty fields.
func (f Flight) Normalize() Flight {
	if f.Callsign == "" {
		f.Callsign = "N/A"
	}
	if f.Airline == "" {
		if len(f.Callsign) >= 3 && f.Callsign != "N/A" {
			f.Airline = f.Callsign[:3]
		} else {
			f.Airline = "N/A"
		}
	}
	if f.AircraftType == "" {
		f.AircraftType = "N/A"
	}
	if f.Origin == "" {
		f.Origin = "---"
	}
	if f.Destination == "" {
		f.Destination = "---"
	}
	return f
}

// Batch is one complete snapshot of flights from a single successful poll.
//
// A Batch is owned by exactly one component at a time: the poller builds it,
// the mailbox carries it, and the consumer owns it until the next batch.
type Batch struct {
	Flights    []Flight  `json:"flights"`
	CapturedAt time.Time `json:"captured_at"`
}

// Len returns the number of flights in the batch.
func (b Batch) Len() int {
	return len(b.Flights)
}

// Clone returns a deep copy of the batch's flight slice.
func (b Batch) Clone() Batch {
	if b.Flights == nil {
		return Batch{CapturedAt: b.CapturedAt}
	}
	flights := make([]Flight, len(b.Flights))
	copy(flights, b.Flights)
	return Batch{Flights: flights, CapturedAt: b.CapturedAt}
}

// Source fetches the current flights inside a bounding box.
//
// Implementations may block (network I/O) and should honour ctx cancellation.
// Errors should be [*FetchError] values so that the kind can be displayed;
// other errors are classified with [KindOf].
type Source interface {
	Fetch(ctx context.Context, bounds BoundingBox) ([]Flight, error)
}

// SourceFunc adapts an ordinary function to the [Source] interface.
type SourceFunc func(ctx context.Context, bounds BoundingBox) ([]Flight, error)

// Fetch calls f(ctx, bounds).
func (f SourceFunc) Fetch(ctx context.Context, bounds BoundingBox) ([]Flight, error) {
	return f(ctx, bounds)
}
