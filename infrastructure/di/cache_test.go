package di

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryCache_SetGet_ExpiresAfterTTL(t *testing.T) {
	// Arrange
	ctx := context.Background()
	cache := NewInMemoryCache(0)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }
	require.NoError(t, cache.Set(ctx, "k", 42, time.Minute))

	// Act
	fresh, freshOK := cache.Get(ctx, "k")
	now = now.Add(2 * time.Minute)
	_, staleOK := cache.Get(ctx, "k")

	// Assert
	assert.True(t, freshOK)
	assert.Equal(t, 42, fresh)
	assert.False(t, staleOK)
	assert.Zero(t, cache.Len(), "expired entries are dropped on read")
}

func TestInMemoryCache_Set_NonPositiveTTLIsNoop(t *testing.T) {
	ctx := context.Background()
	cache := NewInMemoryCache(0)

	require.NoError(t, cache.Set(ctx, "k", "v", 0))

	_, ok := cache.Get(ctx, "k")
	assert.False(t, ok)
}

func TestInMemoryCache_Clear_RemovesEverything(t *testing.T) {
	ctx := context.Background()
	cache := NewInMemoryCache(0)
	require.NoError(t, cache.Set(ctx, "a", 1, time.Minute))
	require.NoError(t, cache.Set(ctx, "b", 2, time.Minute))

	require.NoError(t, cache.Delete(ctx, "a"))
	assert.Equal(t, 1, cache.Len())

	require.NoError(t, cache.Clear(ctx))
	assert.Zero(t, cache.Len())
}

func TestInMemoryCache_Sweep_DropsExpired(t *testing.T) {
	// Arrange
	ctx := context.Background()
	cache := NewInMemoryCache(0)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }
	require.NoError(t, cache.Set(ctx, "short", 1, time.Second))
	require.NoError(t, cache.Set(ctx, "long", 2, time.Hour))

	// Act
	now = now.Add(time.Minute)
	cache.sweep()

	// Assert
	assert.Equal(t, 1, cache.Len())
	_, ok := cache.Get(ctx, "long")
	assert.True(t, ok)
}

func TestInMemoryCache_Stop_IsIdempotent(t *testing.T) {
	cache := NewInMemoryCache(time.Millisecond)

	assert.NotPanics(t, func() {
		cache.Stop()
		cache.Stop()
	})
}
