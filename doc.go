// Package flightboard provides a live departures-style board of the aircraft
// flying around a point of interest.
//
// FlightBoard is designed as an SDK-first library: a background poller
// fetches flights from a [flight.Source] on a fixed interval and a
// foreground consumer renders them, tolerating network failure without
// freezing the display or showing corrupted data.
//
// # Quick Start
//
// Run the synthetic demo feed with the web dashboard and graceful shutdown:
//
//	fb, _ := flightboard.New(flightboard.WithDemo())
//
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//
//	fb.Start(ctx) // blocks until context is cancelled
//
// # Configuration
//
// FlightBoard uses the functional options pattern:
//
//	fb, err := flightboard.New(
//	    flightboard.WithSource(src),
//	    flightboard.WithRegion(flight.Region{CenterLat: 53.35, CenterLon: -2.27, RadiusKm: 60}),
//	    flightboard.WithRefreshInterval(15 * time.Second),
//	    flightboard.WithSort(flightboard.SortByAltitude, false),
//	    flightboard.WithMaxFlights(20),
//	    flightboard.WithPort(9090),
//	)
//
// # Update Pipeline
//
// Each poll produces exactly one [flight.UpdateEvent]. Successes carry a
// complete [flight.Batch]; failures carry an error kind and message. The
// poller backs off exponentially on consecutive failures (doubling up to a
// ceiling) and resets on the first success.
//
// Events travel through a single-slot mailbox that keeps only the newest
// event, so a slow consumer never stalls the poller and never works
// through a backlog of stale data. The [Consumer] keeps the last good
// batch: a failure updates the status line while the previous flights stay
// on screen.
//
// # Rendering
//
// A [View] is rendered after every event. Built-in renderers are the web
// dashboard (REST and Server-Sent Events), [NewLogRenderer], and the
// terminal UI used by the flightboard command. Implement [Renderer] or use
// [RendererFunc] for anything else, or drive the consumer yourself with
// [FlightBoard.Open].
//
// # Architecture
//
//   - internal/poller: the poll loop and backoff policy
//   - internal/handoff: the overwrite-latest mailbox
//   - internal/cache: the last-known-good batch
//   - internal/source: FlightRadar24 client, demo generator, details enricher
//   - internal/details: in-memory and Redis details caches
//   - internal/store, internal/server: web dashboard state and HTTP/SSE
//   - internal/observability: Prometheus metrics, tracing and logging setup
//   - internal/tui: terminal renderer
//   - dashboard: embedded web UI assets
package flightboard
