// Package cache holds the last-known-good flight batch.
//
// The [ResultCache] is owned by the consumer loop. It is replaced wholesale on
// every successful update and is never touched by failures, so the display
// can keep showing the most recent good data through an outage.
package cache

import (
	"sync/atomic"
	"time"

	"github.com/jpalmerr/flightboard/flight"
)

// ResultCache stores the most recent successfully fetched batch.
//
// Updates swap a pointer atomically: readers see either the complete old
// batch or the complete new one, never a mix. The zero value is an empty,
// never-populated cache ready for use.
type ResultCache struct {
	current atomic.Pointer[entry]
}

type entry struct {
	batch     flight.Batch
	updatedAt time.Time
}

// New returns an empty [ResultCache].
func New() *ResultCache {
	return &ResultCache{}
}

// Update replaces the stored batch. The flight slice is copied so later
// changes by the caller cannot leak into the cache.
func (c *ResultCache) Update(batch flight.Batch) {
	c.current.Store(&entry{
		batch:     batch.Clone(),
		updatedAt: time.Now(),
	})
}

// Current returns the stored batch and whether the cache has ever been
// populated. A populated cache may hold a batch with zero flights; that is
// distinct from populated == false.
func (c *ResultCache) Current() (flight.Batch, bool) {
	e := c.current.Load()
	if e == nil {
		return flight.Batch{}, false
	}
	return e.batch.Clone(), true
}

// Len returns the number of flights in the stored batch, or 0 when empty.
func (c *ResultCache) Len() int {
	e := c.current.Load()
	if e == nil {
		return 0
	}
	return e.batch.Len()
}

// UpdatedAt returns when the cache was last replaced, or the zero time.
func (c *ResultCache) UpdatedAt() time.Time {
	e := c.current.Load()
	if e == nil {
		return time.Time{}
	}
	return e.updatedAt
}
