// Package server provides the HTTP server for the FlightBoard web dashboard.
//
// It serves the embedded dashboard at "/", the current board as JSON at
// "/api/flights", a Server-Sent Events stream of board snapshots at
// "/api/sse", a liveness probe at "/healthz" and, when configured,
// Prometheus metrics at "/metrics".
//
// The server shuts down gracefully when its context is cancelled, with a
// 5-second timeout for in-flight requests.
package server
