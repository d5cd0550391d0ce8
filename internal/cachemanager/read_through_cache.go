package cachemanager

import (
	"context"
	"time"
)

// Loader computes the value for input on a cache miss.
type Loader[V any, I any] func(ctx context.Context, input I) (V, error)

// ReadThroughCache fronts a Loader with a CacheManager. Failed loads are not
// cached.
type ReadThroughCache[K ~string, V any, I any] struct {
	cache  CacheManager[K, V]
	load   Loader[V, I]
	bypass bool
}

// NewReadThroughCache wraps load with cache. With bypass set every call goes
// straight to load.
func NewReadThroughCache[K ~string, V any, I any](cache CacheManager[K, V], load Loader[V, I], bypass bool) *ReadThroughCache[K, V, I] {
	return &ReadThroughCache[K, V, I]{cache: cache, load: load, bypass: bypass}
}

// Get returns the cached value for key, loading it from input on a miss.
func (r *ReadThroughCache[K, V, I]) Get(ctx context.Context, key K, input I, ttl time.Duration) (V, error) {
	if r.bypass {
		return r.load(ctx, input)
	}

	if value, ok := r.cache.Get(ctx, key); ok {
		return value, nil
	}

	value, err := r.load(ctx, input)
	if err != nil {
		return value, err
	}

	r.cache.Set(ctx, key, value, ttl)
	return value, nil
}

// Stats forwards to the underlying cache.
func (r *ReadThroughCache[K, V, I]) Stats() Stats {
	return r.cache.Stats()
}
