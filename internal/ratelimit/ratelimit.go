// Package ratelimit implements a sliding-window request limiter over a
// pluggable counter store.
//
// MemoryStore keeps state in process memory and is only correct for a single
// instance; scaled deployments need a Store shared between instances.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Store records hits per key and reports how many fall inside the window.
type Store interface {
	// Hit records a hit for key at now and returns the number of hits in
	// (now-window, now], including this one. A store may stop counting once
	// the result exceeds limit.
	Hit(ctx context.Context, key string, now time.Time, window time.Duration, limit int) (int, error)
}

// Config holds limiter settings.
type Config struct {
	Max    int
	Window time.Duration
}

// DefaultConfig allows 10 requests per rolling minute.
func DefaultConfig() Config {
	return Config{Max: 10, Window: time.Minute}
}

// Limiter decides whether a key may proceed.
type Limiter struct {
	store  Store
	max    int
	window time.Duration
	now    func() time.Time
}

// NewLimiter creates a limiter over store.
func NewLimiter(store Store, config Config) *Limiter {
	if config.Max <= 0 || config.Window <= 0 {
		config = DefaultConfig()
	}
	return &Limiter{store: store, max: config.Max, window: config.Window, now: time.Now}
}

// Window returns the configured window.
func (l *Limiter) Window() time.Duration { return l.window }

// Allow records a hit for key and reports whether it is within the limit.
// Rejected hits still count against the window.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	count, err := l.store.Hit(ctx, key, l.now(), l.window, l.max)
	if err != nil {
		return false, err
	}
	return count <= l.max, nil
}

// MemoryStore is an in-process Store with periodic cleanup of idle keys.
type MemoryStore struct {
	mu           sync.Mutex
	hits         map[string][]time.Time
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

// NewMemoryStore creates a MemoryStore that drops keys idle for longer than
// maxIdle every cleanupInterval.
func NewMemoryStore(cleanupInterval, maxIdle time.Duration) *MemoryStore {
	if cleanupInterval <= 0 {
		cleanupInterval = 5 * time.Minute
	}
	if maxIdle <= 0 {
		maxIdle = 10 * time.Minute
	}
	s := &MemoryStore{
		hits:        make(map[string][]time.Time),
		stopCleanup: make(chan struct{}),
	}
	go s.startCleanup(cleanupInterval, maxIdle)
	return s
}

// Hit implements Store. Only the newest limit+1 timestamps are kept for a
// key, which is enough to keep rejecting while hits keep arriving.
func (s *MemoryStore) Hit(_ context.Context, key string, now time.Time, window time.Duration, limit int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := now.Add(-window)
	kept := s.hits[key][:0]
	for _, t := range s.hits[key] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	kept = append(kept, now)
	if limit > 0 && len(kept) > limit+1 {
		kept = append(kept[:0], kept[len(kept)-limit-1:]...)
	}
	s.hits[key] = kept
	return len(kept), nil
}

// Keys returns the number of tracked keys.
func (s *MemoryStore) Keys() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.hits)
}

// Stop ends the cleanup goroutine.
func (s *MemoryStore) Stop() {
	s.shutdownOnce.Do(func() {
		close(s.stopCleanup)
	})
}

func (s *MemoryStore) startCleanup(interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup(time.Now(), maxIdle)
		case <-s.stopCleanup:
			return
		}
	}
}

func (s *MemoryStore) cleanup(now time.Time, maxIdle time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := now.Add(-maxIdle)
	for key, times := range s.hits {
		if len(times) == 0 || times[len(times)-1].Before(cutoff) {
			delete(s.hits, key)
		}
	}
}
