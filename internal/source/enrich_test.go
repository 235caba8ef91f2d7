package source

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpalmerr/flightboard/flight"
	"github.com/jpalmerr/flightboard/internal/details"
	"github.com/jpalmerr/flightboard/internal/observability"
)

// fakeFetcher records details requests and answers from a fixed table.
type fakeFetcher struct {
	calls   [][]string
	answers map[string]flight.Flight
	err     error
}

func (f *fakeFetcher) Details(_ context.Context, callsigns []string) ([]flight.Flight, error) {
	f.calls = append(f.calls, append([]string(nil), callsigns...))
	if f.err != nil {
		return nil, f.err
	}
	var out []flight.Flight
	for _, cs := range callsigns {
		if a, ok := f.answers[cs]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

func staticSource(flights ...flight.Flight) flight.Source {
	return flight.SourceFunc(func(context.Context, flight.BoundingBox) ([]flight.Flight, error) {
		out := make([]flight.Flight, len(flights))
		copy(out, flights)
		return out, nil
	})
}

func TestEnricher_FetchesDetailsForNewFlightsOnce(t *testing.T) {
	src := staticSource(
		flight.Flight{ID: "a", Callsign: "BAW1"},
		flight.Flight{ID: "b", Callsign: "EZY2"},
	)
	fetcher := &fakeFetcher{answers: map[string]flight.Flight{
		"BAW1": {ID: "a", AircraftType: "A320", Origin: "LHR", Destination: "CDG"},
		"EZY2": {ID: "b", AircraftType: "A319", Origin: "LGW", Destination: "AMS"},
	}}

	e := NewEnricher(src, details.NewCache(time.Hour), testLogger(), WithDetailsFetcher(fetcher))

	flights, err := e.Fetch(context.Background(), flight.BoundingBox{})
	require.NoError(t, err)
	require.Len(t, flights, 2)
	assert.Equal(t, "A320", flights[0].AircraftType)
	assert.Equal(t, "CDG", flights[0].Destination)
	assert.Equal(t, "AMS", flights[1].Destination)
	require.Len(t, fetcher.calls, 1)
	assert.ElementsMatch(t, []string{"BAW1", "EZY2"}, fetcher.calls[0])

	// second poll: everything cached, no details request
	flights, err = e.Fetch(context.Background(), flight.BoundingBox{})
	require.NoError(t, err)
	assert.Equal(t, "A319", flights[1].AircraftType)
	assert.Len(t, fetcher.calls, 1)
}

func TestEnricher_CapsCallsignsPerRequest(t *testing.T) {
	var flights []flight.Flight
	for i := 0; i < 40; i++ {
		id := string(rune('A'+i%26)) + string(rune('a'+i/26))
		flights = append(flights, flight.Flight{ID: id, Callsign: "CS" + id})
	}
	fetcher := &fakeFetcher{}
	e := NewEnricher(staticSource(flights...), nil, testLogger(), WithDetailsFetcher(fetcher))

	_, err := e.Fetch(context.Background(), flight.BoundingBox{})
	require.NoError(t, err)
	require.Len(t, fetcher.calls, 1)
	assert.Len(t, fetcher.calls[0], MaxDetailsCallsigns)
}

func TestEnricher_DetailsFailureDoesNotFailFetch(t *testing.T) {
	fetcher := &fakeFetcher{err: flight.NewFetchError(flight.ErrRateLimit, "Rate limit exceeded", nil)}
	e := NewEnricher(staticSource(flight.Flight{ID: "a", Callsign: "BAW1"}), nil, testLogger(),
		WithDetailsFetcher(fetcher))

	flights, err := e.Fetch(context.Background(), flight.BoundingBox{})
	require.NoError(t, err)
	require.Len(t, flights, 1)
	assert.Empty(t, flights[0].AircraftType)
}

func TestEnricher_SourceErrorPassesThrough(t *testing.T) {
	boom := flight.NewFetchError(flight.ErrAuth, "Invalid API key", nil)
	src := flight.SourceFunc(func(context.Context, flight.BoundingBox) ([]flight.Flight, error) {
		return nil, boom
	})
	e := NewEnricher(src, nil, testLogger())

	_, err := e.Fetch(context.Background(), flight.BoundingBox{})
	assert.True(t, errors.Is(err, boom))
}

func TestEnricher_NoFetcherStillAppliesCache(t *testing.T) {
	ctx := context.Background()
	store := details.NewCache(time.Hour)
	require.NoError(t, store.Put(ctx, details.Details{FlightID: "a", AircraftType: "B789", Airline: "VIR"}))

	e := NewEnricher(staticSource(flight.Flight{ID: "a", Callsign: "VIR3"}, flight.Flight{Callsign: "NOID"}), store, testLogger())
	flights, err := e.Fetch(ctx, flight.BoundingBox{})
	require.NoError(t, err)
	assert.Equal(t, "B789", flights[0].AircraftType)
	assert.Equal(t, "VIR", flights[0].Airline)
	assert.Empty(t, flights[1].AircraftType)
}

func TestEnricher_PeriodicCleanup(t *testing.T) {
	ctx := context.Background()
	store := details.NewCache(time.Hour)
	require.NoError(t, store.Put(ctx, details.Details{FlightID: "gone"}))

	e := NewEnricher(staticSource(flight.Flight{ID: "a"}), store, testLogger(), WithCleanupEvery(3))

	for i := 0; i < 2; i++ {
		_, err := e.Fetch(ctx, flight.BoundingBox{})
		require.NoError(t, err)
	}
	_, ok, _ := store.Get(ctx, "gone")
	require.True(t, ok, "departed entry removed before the sweep poll")

	_, err := e.Fetch(ctx, flight.BoundingBox{})
	require.NoError(t, err)
	_, ok, _ = store.Get(ctx, "gone")
	assert.False(t, ok, "departed entry still cached after the sweep poll")
}

func TestEnricher_RecordsLookupMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := observability.NewCollector(reg)
	require.NoError(t, err)

	ctx := context.Background()
	store := details.NewCache(time.Hour)
	require.NoError(t, store.Put(ctx, details.Details{FlightID: "a"}))

	e := NewEnricher(staticSource(flight.Flight{ID: "a"}, flight.Flight{ID: "b"}), store, testLogger(),
		WithEnricherMetrics(collector))
	_, err = e.Fetch(ctx, flight.BoundingBox{})
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(collector.DetailsLookups.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.DetailsLookups.WithLabelValues("miss")))
}
