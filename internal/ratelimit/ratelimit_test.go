package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediastream/streaming-app/internal/logging"
)

func newTestLimiter(limit int, window time.Duration) *Limiter {
	return New(nil, limit, window, logging.NewLogger())
}

func TestAllowUpToLimitThenReject(t *testing.T) {
	l := newTestLimiter(20, time.Minute)
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		require.NoError(t, l.Allow(ctx, "1.2.3.4", "media-a"), "request %d should be admitted", i+1)
	}

	err := l.Allow(ctx, "1.2.3.4", "media-a")
	require.Error(t, err)

	var rlErr *Error
	require.ErrorAs(t, err, &rlErr)
	assert.Equal(t, 20, rlErr.Limit)
	assert.Equal(t, time.Minute, rlErr.Window)
}

func TestKeysAreIsolatedByMedia(t *testing.T) {
	l := newTestLimiter(2, time.Minute)
	ctx := context.Background()

	require.NoError(t, l.Allow(ctx, "1.2.3.4", "media-a"))
	require.NoError(t, l.Allow(ctx, "1.2.3.4", "media-b"))
	require.NoError(t, l.Allow(ctx, "1.2.3.4", "media-a"))
	require.NoError(t, l.Allow(ctx, "1.2.3.4", "media-b"))

	// Both pairs are now at their limit independently.
	assert.Error(t, l.Allow(ctx, "1.2.3.4", "media-a"))
	assert.Error(t, l.Allow(ctx, "1.2.3.4", "media-b"))
}

func TestKeysAreIsolatedByClient(t *testing.T) {
	l := newTestLimiter(1, time.Minute)
	ctx := context.Background()

	require.NoError(t, l.Allow(ctx, "1.2.3.4", "media-a"))
	require.NoError(t, l.Allow(ctx, "1.2.3.5", "media-a"))
	assert.Error(t, l.Allow(ctx, "1.2.3.4", "media-a"))
}

func TestWindowResetsAfterExpiry(t *testing.T) {
	l := newTestLimiter(1, time.Minute)
	ctx := context.Background()

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return base }

	require.NoError(t, l.Allow(ctx, "1.2.3.4", "media-a"))
	require.Error(t, l.Allow(ctx, "1.2.3.4", "media-a"))

	// Advance past the window; the counter must start fresh.
	l.now = func() time.Time { return base.Add(61 * time.Second) }
	assert.NoError(t, l.Allow(ctx, "1.2.3.4", "media-a"))
}

func TestConcurrentIncrementsDoNotRace(t *testing.T) {
	l := newTestLimiter(50, time.Minute)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.Allow(ctx, "1.2.3.4", "media-a"); err == nil {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, admitted)
}
