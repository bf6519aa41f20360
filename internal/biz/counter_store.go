package biz

import (
	"context"
	"time"
)

// CounterStore defines the interface for fixed-window counter storage.
// Following Kratos v2 DDD architecture, interfaces are defined in biz layer.
// Implementations are in data layer (data.RedisCounterStore for shared
// counters, data.MemoryCounterStore for process-local ones).
type CounterStore interface {
	// CheckAndIncrement atomically increments the window counter for key and
	// returns the post-increment count together with the window's remaining
	// time. The increment happens unconditionally: an over-limit count is the
	// caller's denial signal, the overage itself is not rolled back.
	CheckAndIncrement(ctx context.Context, key string, limit int32, period time.Duration, now time.Time) (int32, time.Duration, error)

	// Get returns the current window count and its remaining time without
	// incrementing. A zero count with zero remaining means no live window.
	Get(ctx context.Context, key string) (int32, time.Duration, error)
}
