package details

import (
	"context"
	"sync"
	"time"
)

// Cache is an in-memory [Store] with per-entry TTL.
//
// Cache is safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	entries map[string]Details
	ttl     time.Duration
	now     func() time.Time

	hits   uint64
	misses uint64
}

// NewCache creates an empty [Cache]. A non-positive ttl means [DefaultTTL].
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		entries: make(map[string]Details),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (c *Cache) expired(d Details, now time.Time) bool {
	return now.Sub(d.CachedAt) > c.ttl
}

// lookup must be called with mu held.
func (c *Cache) lookup(id string, now time.Time) (Details, bool) {
	d, ok := c.entries[id]
	if !ok {
		c.misses++
		return Details{}, false
	}
	if c.expired(d, now) {
		delete(c.entries, id)
		c.misses++
		return Details{}, false
	}
	c.hits++
	return d, true
}

func (c *Cache) Get(_ context.Context, id string) (Details, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.lookup(id, c.now())
	return d, ok, nil
}

func (c *Cache) Put(_ context.Context, d Details) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	d.CachedAt = c.now()
	c.entries[d.FlightID] = d
	return nil
}

// Missing counts a lookup for every id, so it moves the hit/miss stats.
func (c *Cache) Missing(_ context.Context, ids []string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	var missing []string
	for _, id := range ids {
		if _, ok := c.lookup(id, now); !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

func (c *Cache) CleanupExpired(_ context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for id, d := range c.entries {
		if c.expired(d, now) {
			delete(c.entries, id)
			removed++
		}
	}
	return removed, nil
}

func (c *Cache) CleanupDeparted(_ context.Context, current map[string]struct{}) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for id := range c.entries {
		if _, ok := current[id]; !ok {
			delete(c.entries, id)
			removed++
		}
	}
	return removed, nil
}

func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Size: len(c.entries), Hits: c.hits, Misses: c.misses}
}

// Clear drops all entries and resets the counters.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]Details)
	c.hits, c.misses = 0, 0
}
