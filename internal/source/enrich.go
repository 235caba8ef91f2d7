package source

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/jpalmerr/flightboard/flight"
	"github.com/jpalmerr/flightboard/internal/details"
	"github.com/jpalmerr/flightboard/internal/observability"
)

// DefaultCleanupEvery is how many polls pass between details cache sweeps.
const DefaultCleanupEvery = 10

// DetailsFetcher looks up full records by callsign.
type DetailsFetcher interface {
	Details(ctx context.Context, callsigns []string) ([]flight.Flight, error)
}

// Enricher decorates a position source with cached flight details.
//
// On every fetch it asks the store which flights are new, fetches details
// for up to [MaxDetailsCallsigns] of them when a fetcher is configured, and
// fills empty descriptive fields from the cache. Enrichment problems are
// logged and never fail the fetch: positions are what matter.
type Enricher struct {
	src     flight.Source
	store   details.Store
	fetcher DetailsFetcher
	logger  *slog.Logger
	metrics *observability.Collector

	cleanupEvery int64
	polls        atomic.Int64
}

// EnricherOption configures an [Enricher].
type EnricherOption func(*Enricher)

// WithDetailsFetcher enables details lookups for new flights.
func WithDetailsFetcher(f DetailsFetcher) EnricherOption {
	return func(e *Enricher) {
		e.fetcher = f
	}
}

// WithEnricherMetrics records cache hits and misses.
func WithEnricherMetrics(c *observability.Collector) EnricherOption {
	return func(e *Enricher) {
		e.metrics = c
	}
}

// WithCleanupEvery sets how many polls pass between cache sweeps.
func WithCleanupEvery(n int) EnricherOption {
	return func(e *Enricher) {
		if n > 0 {
			e.cleanupEvery = int64(n)
		}
	}
}

// NewEnricher wraps src. A nil store gets an in-memory cache with the
// default TTL.
func NewEnricher(src flight.Source, store details.Store, logger *slog.Logger, opts ...EnricherOption) *Enricher {
	if store == nil {
		store = details.NewCache(details.DefaultTTL)
	}
	if logger == nil {
		logger = slog.Default()
	}
	e := &Enricher{
		src:          src,
		store:        store,
		logger:       logger,
		cleanupEvery: DefaultCleanupEvery,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Fetch fetches positions from the wrapped source and enriches them.
func (e *Enricher) Fetch(ctx context.Context, bounds flight.BoundingBox) ([]flight.Flight, error) {
	flights, err := e.src.Fetch(ctx, bounds)
	if err != nil {
		return nil, err
	}
	poll := e.polls.Add(1)

	ids := make([]string, 0, len(flights))
	current := make(map[string]struct{}, len(flights))
	for _, f := range flights {
		if f.ID == "" {
			continue
		}
		if _, dup := current[f.ID]; dup {
			continue
		}
		current[f.ID] = struct{}{}
		ids = append(ids, f.ID)
	}

	missing, err := e.store.Missing(ctx, ids)
	if err != nil {
		e.logger.Warn("details cache lookup failed", "error", err)
		missing = nil
	}
	for i := 0; i < len(ids)-len(missing); i++ {
		e.metrics.ObserveDetailsLookup(true)
	}
	for range missing {
		e.metrics.ObserveDetailsLookup(false)
	}

	if e.fetcher != nil && len(missing) > 0 {
		e.fetchDetails(ctx, flights, missing)
	}

	out := make([]flight.Flight, len(flights))
	for i, f := range flights {
		out[i] = f
		if f.ID == "" {
			continue
		}
		d, ok, err := e.store.Get(ctx, f.ID)
		if err != nil || !ok {
			continue
		}
		out[i] = d.Apply(f)
	}

	if poll%e.cleanupEvery == 0 {
		e.cleanup(ctx, current)
	}

	e.logger.Debug("enriched flights", "flights", len(out), "new", len(missing))
	return out, nil
}

func (e *Enricher) fetchDetails(ctx context.Context, flights []flight.Flight, missing []string) {
	want := make(map[string]struct{}, len(missing))
	for _, id := range missing {
		want[id] = struct{}{}
	}

	var callsigns []string
	for _, f := range flights {
		if _, ok := want[f.ID]; !ok || f.Callsign == "" {
			continue
		}
		callsigns = append(callsigns, f.Callsign)
		if len(callsigns) == MaxDetailsCallsigns {
			break
		}
	}
	if len(callsigns) == 0 {
		return
	}

	e.logger.Debug("fetching flight details", "count", len(callsigns))
	detailed, err := e.fetcher.Details(ctx, callsigns)
	if err != nil {
		e.logger.Warn("failed to fetch flight details", "error", err)
		return
	}
	for _, df := range detailed {
		if df.ID == "" {
			continue
		}
		if err := e.store.Put(ctx, details.FromFlight(df)); err != nil {
			e.logger.Warn("failed to cache flight details", "flight_id", df.ID, "error", err)
		}
	}
}

func (e *Enricher) cleanup(ctx context.Context, current map[string]struct{}) {
	departed, err := e.store.CleanupDeparted(ctx, current)
	if err != nil {
		e.logger.Warn("details cache cleanup failed", "error", err)
	}
	expired, err := e.store.CleanupExpired(ctx)
	if err != nil {
		e.logger.Warn("details cache cleanup failed", "error", err)
	}
	e.logger.Debug("details cache swept",
		"departed", departed,
		"expired", expired,
		"stats", e.store.Stats().String(),
	)
}
