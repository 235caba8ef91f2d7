package flight

import "time"

// ConnectionState is the health of the data source as seen by the poller.
type ConnectionState int

const (
	// Disconnected means no fetch has succeeded yet, or failures have passed
	// the configured threshold.
	Disconnected ConnectionState = iota

	// Reconnecting means recent fetches failed but the failure count is still
	// at or below the threshold.
	Reconnecting

	// Connected means the most recent fetch succeeded.
	Connected
)

// String returns a lowercase name, used in logs and JSON.
func (s ConnectionState) String() string {
	switch s {
	case Connected:
		return "connected"
	case Reconnecting:
		return "reconnecting"
	default:
		return "disconnected"
	}
}

// MarshalText implements encoding.TextMarshaler so JSON carries the name.
func (s ConnectionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ConnectionStatus is a snapshot of the poller's connection bookkeeping.
//
// The poller owns the live counters; the foreground side only ever sees
// copies of this struct carried inside an [UpdateEvent].
type ConnectionStatus struct {
	State               ConnectionState `json:"state"`
	ConsecutiveFailures int             `json:"consecutive_failures"`
	LastSuccess         time.Time       `json:"last_success"`
}

// HasSucceeded reports whether any fetch has ever succeeded.
func (c ConnectionStatus) HasSucceeded() bool {
	return !c.LastSuccess.IsZero()
}

// RecordSuccess returns the status after a successful fetch at now.
func (c ConnectionStatus) RecordSuccess(now time.Time) ConnectionStatus {
	return ConnectionStatus{
		State:               Connected,
		ConsecutiveFailures: 0,
		LastSuccess:         now,
	}
}

// RecordFailure returns the status after a failed fetch. The state becomes
// [Reconnecting] while the failure count is at or below threshold and
// [Disconnected] after that.
func (c ConnectionStatus) RecordFailure(threshold int) ConnectionStatus {
	c.ConsecutiveFailures++
	if c.ConsecutiveFailures <= threshold {
		c.State = Reconnecting
	} else {
		c.State = Disconnected
	}
	return c
}
