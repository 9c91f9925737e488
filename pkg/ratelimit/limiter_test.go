package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiter_Allow_BurstThenDeny(t *testing.T) {
	// Arrange
	l := NewLimiter(1, 2)
	ctx := context.Background()

	// Act
	first, _ := l.Allow(ctx, "10.0.0.1")
	second, _ := l.Allow(ctx, "10.0.0.1")
	third, _ := l.Allow(ctx, "10.0.0.1")
	other, _ := l.Allow(ctx, "10.0.0.2")

	// Assert
	assert.True(t, first)
	assert.True(t, second)
	assert.False(t, third)
	assert.True(t, other)
}

func TestLimiter_Reset(t *testing.T) {
	l := NewLimiter(0.001, 1)
	ctx := context.Background()
	_, _ = l.Allow(ctx, "k")

	require.NoError(t, l.Reset(ctx, "k"))
	allowed, err := l.Allow(ctx, "k")

	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestLimiter_SweepsIdleKeys(t *testing.T) {
	// Arrange
	l := NewLimiter(10, 10)
	clock := time.Now()
	l.now = func() time.Time { return clock }
	ctx := context.Background()
	_, _ = l.Allow(ctx, "old")

	// Act
	clock = clock.Add(2 * idleAfter)
	_, _ = l.Allow(ctx, "new")

	// Assert
	assert.Equal(t, 1, l.Len())
}

func TestLimiter_CancelledContext(t *testing.T) {
	l := NewLimiter(10, 10)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	allowed, err := l.Allow(ctx, "k")

	assert.False(t, allowed)
	assert.ErrorIs(t, err, context.Canceled)
}
