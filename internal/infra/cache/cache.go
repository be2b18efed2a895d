// Package cache stores short-lived serialized results (briefings) in Redis
// when configured, otherwise in process memory.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/matiasleandrokruk/newsroom/internal/metrics"
)

// Cache is a byte-oriented key/value store with per-entry TTL.
type Cache interface {
	// Get returns (nil, false, nil) on a miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Close() error
}

// New returns a Redis cache for a non-empty URL, otherwise a memory cache.
// A Redis URL that cannot be parsed or pinged is an error.
func New(ctx context.Context, redisURL string) (Cache, error) {
	if redisURL == "" {
		return NewMemory(defaultMaxEntries), nil
	}
	return NewRedis(ctx, redisURL)
}

// GetJSON decodes a cached value into out. A decode failure counts as a miss.
func GetJSON(ctx context.Context, c Cache, key string, out any) (bool, error) {
	raw, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, nil
	}
	return true, nil
}

// SetJSON encodes value and stores it under key.
func SetJSON(ctx context.Context, c Cache, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache: encode %s: %w", key, err)
	}
	return c.Set(ctx, key, raw, ttl)
}

func observe(backend string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	metrics.CacheRequests.WithLabelValues(backend, result).Inc()
}
