package cachemanager

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type layerKey string

func TestNewInMemoryCacheManager(t *testing.T) {
	require.NotPanics(t, func() {
		NewInMemoryCacheManager[layerKey, uint32]("test", DefaultExpiration, DefaultCleanupInterval)
	})
}

func TestInMemoryCacheManager_GetExistingValue(t *testing.T) {
	cache := NewInMemoryCacheManager[layerKey, uint32]("pseudo-layers", DefaultExpiration, DefaultCleanupInterval)
	cache.Set(context.Background(), "ecal:3", 7, DefaultExpiration)

	got, ok := cache.Get(context.Background(), "ecal:3")
	require.True(t, ok)
	require.Equal(t, uint32(7), got)
	require.Equal(t, uint64(1), cache.Stats().Hits)
}

func TestInMemoryCacheManager_GetMissingValue(t *testing.T) {
	cache := NewInMemoryCacheManager[layerKey, uint32]("pseudo-layers", DefaultExpiration, DefaultCleanupInterval)

	got, ok := cache.Get(context.Background(), "ecal:3")
	require.False(t, ok)
	require.Zero(t, got)
	require.Equal(t, uint64(1), cache.Stats().Misses)
}

func TestInMemoryCacheManager_GetWrongType(t *testing.T) {
	cache := NewInMemoryCacheManager[layerKey, uint32]("pseudo-layers", DefaultExpiration, DefaultCleanupInterval)
	cache.cache.Set("ecal:3", "seven", DefaultExpiration)

	got, ok := cache.Get(context.Background(), "ecal:3")
	require.False(t, ok)
	require.Zero(t, got)
}

func TestInMemoryCacheManager_Delete(t *testing.T) {
	cache := NewInMemoryCacheManager[layerKey, uint32]("pseudo-layers", DefaultExpiration, DefaultCleanupInterval)
	require.NoError(t, cache.Delete(context.Background()))

	cache.Set(context.Background(), "a", 1, DefaultExpiration)
	cache.Set(context.Background(), "b", 2, DefaultExpiration)
	require.NoError(t, cache.Delete(context.Background(), "a", "b"))

	require.Equal(t, 0, cache.Stats().Items)
}

func TestInMemoryCacheManager_FlushResetsStats(t *testing.T) {
	cache := NewInMemoryCacheManager[layerKey, uint32]("pseudo-layers", DefaultExpiration, DefaultCleanupInterval)
	cache.Set(context.Background(), "a", 1, NoExpiration)
	_, _ = cache.Get(context.Background(), "a")
	_, _ = cache.Get(context.Background(), "b")

	stats := cache.Stats()
	require.Equal(t, "pseudo-layers", stats.UseCase)
	require.Equal(t, 1, stats.Items)
	require.InDelta(t, 0.5, stats.HitRatio(), 1e-9)

	require.NoError(t, cache.Flush(context.Background()))
	require.Equal(t, Stats{UseCase: "pseudo-layers"}, cache.Stats())
	require.Zero(t, cache.Stats().HitRatio())
}
