// Package details caches the slow-changing descriptive fields of a flight
// (aircraft type, airline, route, registration).
//
// Positions come from a cheap endpoint on every poll; details come from an
// expensive one and only need fetching once per flight. A [Store] remembers
// what has been fetched so the enrichment step only asks for new flights.
//
// Two stores are provided: [Cache] keeps entries in process memory, and
// [RedisCache] shares them through Redis so several instances watching the
// same area do not each pay for the same lookups.
package details

import (
	"context"
	"fmt"
	"time"

	"github.com/jpalmerr/flightboard/flight"
)

// DefaultTTL is how long an entry stays valid.
const DefaultTTL = time.Hour

// Details holds the cached descriptive fields for one flight.
type Details struct {
	FlightID     string    `json:"flight_id"`
	AircraftType string    `json:"aircraft_type,omitempty"`
	Airline      string    `json:"airline,omitempty"`
	Origin       string    `json:"origin,omitempty"`
	Destination  string    `json:"destination,omitempty"`
	Registration string    `json:"registration,omitempty"`
	CachedAt     time.Time `json:"cached_at"`
}

// FromFlight extracts the cacheable fields of f.
func FromFlight(f flight.Flight) Details {
	return Details{
		FlightID:     f.ID,
		AircraftType: f.AircraftType,
		Airline:      f.Airline,
		Origin:       f.Origin,
		Destination:  f.Destination,
		Registration: f.Registration,
	}
}

// Apply fills the empty descriptive fields of f from d. Fields the live data
// already carries are left alone.
func (d Details) Apply(f flight.Flight) flight.Flight {
	if f.AircraftType == "" {
		f.AircraftType = d.AircraftType
	}
	if f.Airline == "" {
		f.Airline = d.Airline
	}
	if f.Origin == "" {
		f.Origin = d.Origin
	}
	if f.Destination == "" {
		f.Destination = d.Destination
	}
	if f.Registration == "" {
		f.Registration = d.Registration
	}
	return f
}

// Stats is a snapshot of lookup counters.
type Stats struct {
	Size   int
	Hits   uint64
	Misses uint64
}

// HitRate returns hits as a percentage of all lookups.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}

func (s Stats) String() string {
	return fmt.Sprintf("size=%d hits=%d misses=%d hit_rate=%.1f%%", s.Size, s.Hits, s.Misses, s.HitRate())
}

// Store is a details cache keyed by flight ID.
type Store interface {
	// Get returns the entry for id if present and not expired.
	Get(ctx context.Context, id string) (Details, bool, error)

	// Put stores d, stamping CachedAt.
	Put(ctx context.Context, d Details) error

	// Missing returns the ids with no valid entry, in input order.
	Missing(ctx context.Context, ids []string) ([]string, error)

	// CleanupExpired removes expired entries and reports how many went.
	CleanupExpired(ctx context.Context) (int, error)

	// CleanupDeparted removes entries whose flight is no longer in current.
	CleanupDeparted(ctx context.Context, current map[string]struct{}) (int, error)

	// Stats returns the lookup counters.
	Stats() Stats
}
