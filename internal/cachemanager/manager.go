// Package cachemanager provides typed in-memory caches used to memoize
// geometry lookups across events.
package cachemanager

import (
	"context"
	"time"
)

// CacheManager is a typed key/value cache with per-entry expiry.
type CacheManager[K ~string, V any] interface {
	Get(ctx context.Context, key K) (V, bool)
	Set(ctx context.Context, key K, value V, ttl time.Duration)
	Delete(ctx context.Context, keys ...K) error
	Flush(ctx context.Context) error
	Stats() Stats
}

// Stats counts lookups since the cache was created or last flushed.
type Stats struct {
	UseCase string
	Items   int
	Hits    uint64
	Misses  uint64
}

// HitRatio returns hits over lookups, or zero before the first lookup.
func (s Stats) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}
