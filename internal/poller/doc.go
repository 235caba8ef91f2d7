// Package poller runs the background fetch loop for FlightBoard.
//
// A [Poller] calls a [flight.Source] on a fixed interval from its own
// goroutine, tracks connection health, and emits exactly one
// [flight.UpdateEvent] per attempt. Failures stretch the interval with
// capped exponential backoff (see [EffectiveInterval]); the first success
// resets it to the base interval. The backoff is the only retry policy.
//
// Connection state is owned by the poller goroutine and leaves it only as a
// copy inside each event.
//
// Users of the flightboard library should not need to interact with this
// package directly.
package poller
