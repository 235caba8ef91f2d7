// Package source provides the [flight.Source] implementations used by
// FlightBoard: the live FlightRadar24 client ([FR24]), a synthetic generator
// for running without an API key ([Demo]), and a decorator that fills in
// cached aircraft and route details ([Enricher]).
//
// The variant is chosen once at startup; the poller only sees the
// [flight.Source] interface.
package source
