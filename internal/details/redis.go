package details

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "flightboard:details:"

// RedisCache is a [Store] backed by Redis. Expiry is delegated to Redis key
// TTLs, so CleanupExpired has nothing to do.
type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration

	hits   atomic.Uint64
	misses atomic.Uint64
}

// RedisConfig selects the Redis server.
type RedisConfig struct {
	Addr string
	DB   int
	TTL  time.Duration
}

// NewRedisCache connects to Redis and verifies the connection with PING.
func NewRedisCache(ctx context.Context, cfg RedisConfig) (*RedisCache, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address cannot be empty")
	}
	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.Addr,
		DB:   cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return newRedisCache(rdb, cfg.TTL), nil
}

func newRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisCache{rdb: rdb, ttl: ttl}
}

func redisKey(id string) string {
	return keyPrefix + id
}

func (r *RedisCache) Get(ctx context.Context, id string) (Details, bool, error) {
	raw, err := r.rdb.Get(ctx, redisKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		r.misses.Add(1)
		return Details{}, false, nil
	}
	if err != nil {
		return Details{}, false, fmt.Errorf("redis GET %s: %w", id, err)
	}

	var d Details
	if err := json.Unmarshal(raw, &d); err != nil {
		r.misses.Add(1)
		return Details{}, false, nil
	}
	r.hits.Add(1)
	return d, true, nil
}

func (r *RedisCache) Put(ctx context.Context, d Details) error {
	d.CachedAt = time.Now()
	raw, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode details: %w", err)
	}
	if err := r.rdb.Set(ctx, redisKey(d.FlightID), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis SET %s: %w", d.FlightID, err)
	}
	return nil
}

func (r *RedisCache) Missing(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = redisKey(id)
	}

	vals, err := r.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis MGET: %w", err)
	}

	var missing []string
	for i, v := range vals {
		if v == nil {
			r.misses.Add(1)
			missing = append(missing, ids[i])
			continue
		}
		r.hits.Add(1)
	}
	return missing, nil
}

// CleanupExpired is a no-op: Redis expires keys on its own.
func (r *RedisCache) CleanupExpired(context.Context) (int, error) {
	return 0, nil
}

func (r *RedisCache) CleanupDeparted(ctx context.Context, current map[string]struct{}) (int, error) {
	var stale []string
	iter := r.rdb.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		if _, ok := current[key[len(keyPrefix):]]; !ok {
			stale = append(stale, key)
		}
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("redis SCAN: %w", err)
	}
	if len(stale) == 0 {
		return 0, nil
	}
	n, err := r.rdb.Del(ctx, stale...).Result()
	if err != nil {
		return 0, fmt.Errorf("redis DEL: %w", err)
	}
	return int(n), nil
}

// Stats reports counters from this process; Size is not tracked.
func (r *RedisCache) Stats() Stats {
	return Stats{Hits: r.hits.Load(), Misses: r.misses.Load()}
}

// Close releases the Redis connection pool.
func (r *RedisCache) Close() error {
	return r.rdb.Close()
}
