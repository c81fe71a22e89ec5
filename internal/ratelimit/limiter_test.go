package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiterAllowsUpToLimit(t *testing.T) {
	l := NewMemoryLimiter(3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := l.Allow(ctx, "user:1")
		require.NoError(t, err)
		assert.True(t, ok, "event %d should be allowed", i+1)
	}

	ok, err := l.Allow(ctx, "user:1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryLimiterKeysAreIndependent(t *testing.T) {
	l := NewMemoryLimiter(1, time.Minute)
	ctx := context.Background()

	ok, err := l.Allow(ctx, "user:1")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = l.Allow(ctx, "user:1")
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = l.Allow(ctx, "user:2")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryLimiterWindowSlides(t *testing.T) {
	l := NewMemoryLimiter(2, 40*time.Millisecond)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := l.Allow(ctx, "user:1")
		require.NoError(t, err)
		require.True(t, ok)
	}
	ok, err := l.Allow(ctx, "user:1")
	require.NoError(t, err)
	require.False(t, ok)

	time.Sleep(60 * time.Millisecond)

	ok, err = l.Allow(ctx, "user:1")
	require.NoError(t, err)
	assert.True(t, ok, "old events should have aged out of the window")
}

func TestMemoryLimiterRejectedEventsDoNotExtendWindow(t *testing.T) {
	l := NewMemoryLimiter(1, 40*time.Millisecond)
	ctx := context.Background()

	ok, err := l.Allow(ctx, "user:1")
	require.NoError(t, err)
	require.True(t, ok)

	// Denied attempts are not recorded, so they cannot keep the key
	// throttled forever.
	for i := 0; i < 3; i++ {
		time.Sleep(15 * time.Millisecond)
		ok, err = l.Allow(ctx, "user:1")
		require.NoError(t, err)
		if ok {
			return
		}
	}
	t.Fatal("key never recovered after the window elapsed")
}
