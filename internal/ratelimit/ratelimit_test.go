package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(max int, window time.Duration) (*Limiter, *MemoryStore, *time.Time) {
	store := NewMemoryStore(time.Hour, time.Hour)
	clock := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
	l := NewLimiter(store, Config{Max: max, Window: window})
	l.now = func() time.Time { return clock }
	return l, store, &clock
}

func TestLimiter(t *testing.T) {
	ctx := context.Background()

	t.Run("allows_up_to_max", func(t *testing.T) {
		l, store, _ := newTestLimiter(10, time.Minute)
		defer store.Stop()

		for i := 0; i < 10; i++ {
			ok, err := l.Allow(ctx, "1.2.3.4")
			require.NoError(t, err)
			assert.True(t, ok, "request %d should pass", i+1)
		}
		ok, err := l.Allow(ctx, "1.2.3.4")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("keys_are_independent", func(t *testing.T) {
		l, store, _ := newTestLimiter(1, time.Minute)
		defer store.Stop()

		ok, _ := l.Allow(ctx, "a")
		assert.True(t, ok)
		ok, _ = l.Allow(ctx, "b")
		assert.True(t, ok)
		ok, _ = l.Allow(ctx, "a")
		assert.False(t, ok)
	})

	t.Run("window_slides", func(t *testing.T) {
		l, store, clock := newTestLimiter(2, time.Minute)
		defer store.Stop()

		l.Allow(ctx, "k")
		*clock = clock.Add(30 * time.Second)
		l.Allow(ctx, "k")
		ok, _ := l.Allow(ctx, "k")
		assert.False(t, ok)

		// The first hit leaves the window; the two later ones remain.
		*clock = clock.Add(31 * time.Second)
		ok, _ = l.Allow(ctx, "k")
		assert.False(t, ok)

		*clock = clock.Add(time.Minute)
		ok, _ = l.Allow(ctx, "k")
		assert.True(t, ok)
	})

	t.Run("invalid_config_uses_default", func(t *testing.T) {
		l := NewLimiter(NewMemoryStore(0, 0), Config{})
		assert.Equal(t, 10, l.max)
		assert.Equal(t, time.Minute, l.Window())
	})

	t.Run("store_error", func(t *testing.T) {
		l := NewLimiter(failingStore{}, DefaultConfig())
		_, err := l.Allow(ctx, "k")
		assert.Error(t, err)
	})
}

type failingStore struct{}

func (failingStore) Hit(context.Context, string, time.Time, time.Duration, int) (int, error) {
	return 0, errors.New("unavailable")
}

func TestMemoryStoreConcurrency(t *testing.T) {
	store := NewMemoryStore(time.Hour, time.Hour)
	defer store.Stop()
	now := time.Now()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = store.Hit(context.Background(), "k", now, time.Minute, 100)
		}()
	}
	wg.Wait()

	n, err := store.Hit(context.Background(), "k", now, time.Minute, 100)
	require.NoError(t, err)
	assert.Equal(t, 51, n)
}

func TestMemoryStoreCleanup(t *testing.T) {
	store := NewMemoryStore(time.Hour, time.Hour)
	defer store.Stop()
	now := time.Now()

	_, _ = store.Hit(context.Background(), "old", now.Add(-2*time.Hour), time.Minute, 10)
	_, _ = store.Hit(context.Background(), "fresh", now, time.Minute, 10)
	store.cleanup(now, time.Hour)

	assert.Equal(t, 1, store.Keys())
	store.Stop()
	store.Stop()
}

func TestMemoryStoreBoundsRejectedHits(t *testing.T) {
	l, store, clock := newTestLimiter(3, time.Minute)
	defer store.Stop()
	ctx := context.Background()

	for i := 0; i < 1000; i++ {
		ok, err := l.Allow(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, i < 3, ok, "request %d", i+1)
	}

	store.mu.Lock()
	stored := len(store.hits["k"])
	store.mu.Unlock()
	assert.Equal(t, 4, stored)

	*clock = clock.Add(time.Minute + time.Second)
	ok, err := l.Allow(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
}
