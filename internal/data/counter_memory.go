package data

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	lru "github.com/hashicorp/golang-lru/v2"
)

// defaultCounterCacheSize bounds how many live rate windows the in-process
// store tracks before the least recently used one is evicted.
const defaultCounterCacheSize = 4096

// counterWindow is one fixed rate window for a single key.
type counterWindow struct {
	count       int32
	windowStart time.Time
	period      time.Duration
}

// MemoryCounterStore implements biz.CounterStore in process memory.
// Following Kratos v2 DDD architecture, interface is defined in biz layer.
//
// It backs deployments without a shared Redis: windows are correct per
// instance but not shared across instances. Capacity is bounded by an LRU
// cache, so a key evicted under pressure simply starts a fresh window on
// its next hit.
type MemoryCounterStore struct {
	mu     sync.Mutex
	cache  *lru.Cache[string, *counterWindow]
	nowFn  func() time.Time
	logger *log.Helper
}

// NewMemoryCounterStore creates an in-process counter store holding at most
// size windows. A size below 1 selects the default capacity.
func NewMemoryCounterStore(size int, logger log.Logger) (*MemoryCounterStore, error) {
	if size < 1 {
		size = defaultCounterCacheSize
	}

	cache, err := lru.New[string, *counterWindow](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create counter cache: %w", err)
	}

	return &MemoryCounterStore{
		cache:  cache,
		nowFn:  time.Now,
		logger: log.NewHelper(logger),
	}, nil
}

// CheckAndIncrement advances the window counter for key and returns the
// post-increment count with the window's remaining time. A window past its
// period resets on the next hit; the increment is never rolled back.
func (s *MemoryCounterStore) CheckAndIncrement(ctx context.Context, key string, limit int32, period time.Duration, now time.Time) (int32, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.cache.Get(key)
	if !ok || now.Sub(w.windowStart) >= w.period {
		s.cache.Add(key, &counterWindow{
			count:       1,
			windowStart: now,
			period:      period,
		})
		return 1, period, nil
	}

	if w.count < 2147483647 {
		w.count++
	}

	return w.count, w.period - now.Sub(w.windowStart), nil
}

// Get retrieves the current window count and its remaining time without
// incrementing. Returns zero count and zero remaining if no window is live.
func (s *MemoryCounterStore) Get(ctx context.Context, key string) (int32, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.cache.Get(key)
	if !ok {
		return 0, 0, nil
	}

	now := s.nowFn()
	if now.Sub(w.windowStart) >= w.period {
		// Expired windows are evicted lazily on read
		s.cache.Remove(key)
		return 0, 0, nil
	}

	return w.count, w.period - now.Sub(w.windowStart), nil
}

// PurgeExpired removes every window whose period elapsed before now and
// reports how many were dropped. Called periodically by the sweep job.
func (s *MemoryCounterStore) PurgeExpired(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	purged := 0
	for _, key := range s.cache.Keys() {
		w, ok := s.cache.Peek(key)
		if !ok {
			continue
		}
		if now.Sub(w.windowStart) >= w.period {
			s.cache.Remove(key)
			purged++
		}
	}

	if purged > 0 {
		s.logger.Debugw("purged expired rate windows", "count", purged)
	}

	return purged
}

// Len reports how many windows are currently tracked, live or expired.
func (s *MemoryCounterStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cache.Len()
}
