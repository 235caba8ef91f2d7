package flightboard

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/jpalmerr/flightboard/flight"
)

// DefaultMaxFlights is the display cap when none is configured.
const DefaultMaxFlights = 50

// SortKey names the field the board is ordered by.
type SortKey string

const (
	SortByDistance SortKey = "distance"
	SortByAltitude SortKey = "altitude"
	SortByCallsign SortKey = "callsign"
	SortBySpeed    SortKey = "speed"
)

// SortKeys lists the accepted sort keys in display order.
var SortKeys = []SortKey{SortByDistance, SortByAltitude, SortByCallsign, SortBySpeed}

// ParseSortKey validates s as a [SortKey]. Matching is case-insensitive.
func ParseSortKey(s string) (SortKey, error) {
	k := SortKey(strings.ToLower(strings.TrimSpace(s)))
	if slices.Contains(SortKeys, k) {
		return k, nil
	}
	return "", fmt.Errorf("unknown sort key %q (want one of distance, altitude, callsign, speed)", s)
}

// Transform is the presentation step the consumer applies to each batch:
// filter, then stable sort, then cap.
//
// Transform never mutates its input.
type Transform struct {
	// Filter, when set, keeps only flights for which it returns true.
	Filter func(flight.Flight) bool

	// SortBy is the ordering key. An empty key keeps batch order.
	SortBy SortKey

	// Descending reverses the order. Ties keep batch order either way.
	Descending bool

	// MaxFlights caps the result; zero or less means no cap.
	MaxFlights int
}

// Apply returns the transformed copy of flights.
func (t Transform) Apply(flights []flight.Flight) []flight.Flight {
	out := make([]flight.Flight, 0, len(flights))
	for _, f := range flights {
		if t.Filter != nil && !t.Filter(f) {
			continue
		}
		out = append(out, f)
	}

	if compare := comparator(t.SortBy); compare != nil {
		if t.Descending {
			asc := compare
			compare = func(a, b flight.Flight) int { return asc(b, a) }
		}
		slices.SortStableFunc(out, compare)
	}

	if t.MaxFlights > 0 && len(out) > t.MaxFlights {
		out = out[:t.MaxFlights]
	}
	return out
}

func comparator(key SortKey) func(a, b flight.Flight) int {
	switch key {
	case SortByDistance:
		return func(a, b flight.Flight) int { return cmp.Compare(a.DistanceKm, b.DistanceKm) }
	case SortByAltitude:
		return func(a, b flight.Flight) int { return cmp.Compare(a.Altitude, b.Altitude) }
	case SortByCallsign:
		return func(a, b flight.Flight) int { return strings.Compare(a.Callsign, b.Callsign) }
	case SortBySpeed:
		return func(a, b flight.Flight) int { return cmp.Compare(a.GroundSpeed, b.GroundSpeed) }
	default:
		return nil
	}
}

// WithinRegion returns a filter keeping flights inside r's radius.
//
// The source is queried with r's bounding box, so this trims the box
// corners down to a circle.
func WithinRegion(r flight.Region) func(flight.Flight) bool {
	return func(f flight.Flight) bool {
		return r.DistanceKm(f.Latitude, f.Longitude) <= r.RadiusKm
	}
}
