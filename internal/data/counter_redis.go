package data

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/redis/go-redis/v9"
)

// RedisCounterStore implements biz.CounterStore on a shared Redis instance.
// Following Kratos v2 DDD architecture, interface is defined in biz layer.
//
// Each rate window is one key: INCR opens or advances it, the expiration set
// on the first hit bounds it, and PTTL reports the remaining window. Every
// instance pointed at the same Redis shares the same windows.
type RedisCounterStore struct {
	rdb    *redis.Client
	logger *log.Helper
}

// NewRedisCounterStore creates a Redis-backed counter store.
func NewRedisCounterStore(rdb *redis.Client, logger log.Logger) (*RedisCounterStore, error) {
	if rdb == nil {
		return nil, fmt.Errorf("redis client is nil")
	}

	return &RedisCounterStore{
		rdb:    rdb,
		logger: log.NewHelper(logger),
	}, nil
}

// CheckAndIncrement advances the window counter for key and returns the
// post-increment count with the window's remaining time.
// Uses Redis INCR with automatic expiration on first increment; the
// increment is unconditional, an over-limit count is never rolled back.
func (s *RedisCounterStore) CheckAndIncrement(ctx context.Context, key string, limit int32, period time.Duration, now time.Time) (int32, time.Duration, error) {
	if s.rdb == nil {
		return 0, 0, fmt.Errorf("redis client is nil")
	}

	counterKey := getCounterKey(key)

	// Increment counter
	count, err := s.rdb.Incr(ctx, counterKey).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to increment counter: %w", err)
	}

	// Prevent overflow when converting int64 to int32
	if count > 2147483647 {
		count = 2147483647
	}

	// Open the window on first increment (atomic operation)
	if count == 1 {
		if err := s.rdb.Expire(ctx, counterKey, period).Err(); err != nil {
			s.logger.Warnf("Failed to set counter expiration for key %s: %v", key, err)
			// Don't return error, counter is still incremented
		}
		return int32(count), period, nil // #nosec G115 -- overflow is handled above
	}

	pttl, err := s.rdb.PTTL(ctx, counterKey).Result()
	if err != nil {
		return int32(count), 0, fmt.Errorf("failed to read window expiration: %w", err)
	}
	switch {
	case pttl == -2:
		// Window expired between the increment and this read
		return int32(count), 0, nil
	case pttl == -1:
		// The first-hit expiration never landed, re-arm it so the window
		// cannot live forever
		if err := s.rdb.Expire(ctx, counterKey, period).Err(); err != nil {
			s.logger.Warnf("Failed to re-arm counter expiration for key %s: %v", key, err)
		}
		return int32(count), period, nil
	}

	return int32(count), pttl, nil // #nosec G115 -- overflow is handled above
}

// Get retrieves the current window count and its remaining time without
// incrementing. Returns zero count and zero remaining if no window is live.
func (s *RedisCounterStore) Get(ctx context.Context, key string) (int32, time.Duration, error) {
	if s.rdb == nil {
		return 0, 0, fmt.Errorf("redis client is nil")
	}

	counterKey := getCounterKey(key)

	val, err := s.rdb.Get(ctx, counterKey).Result()
	if err == redis.Nil {
		// Key doesn't exist, no live window
		return 0, 0, nil
	}
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get counter: %w", err)
	}

	count, err := strconv.ParseInt(val, 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to parse counter value: %w", err)
	}

	pttl, err := s.rdb.PTTL(ctx, counterKey).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read window expiration: %w", err)
	}
	if pttl < 0 {
		pttl = 0
	}

	return int32(count), pttl, nil
}

// getCounterKey generates a Redis key for a rate window.
// Format: rate:{resource_key}
// Example: rate:reports:generate
func getCounterKey(key string) string {
	return fmt.Sprintf("rate:%s", key)
}
