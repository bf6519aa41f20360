// Package biz contains business logic layer implementations.
// This layer holds the call-path state machines and domain models.
package biz

import (
	"GuardLane/internal/conf"
	"GuardLane/internal/data"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
)

// ProviderSet is biz providers.
var ProviderSet = wire.NewSet(
	NewBreakerConfig,
	NewLimiterConfig,
	NewCallPolicy,
	NewSystemClock,
	NewSystemSleeper,
	NewCounterStore,
	NewCircuitBreakerUsecase,
	NewRateLimiterUseCase,
	NewResilientClientUsecase,
	// Import data layer providers
	data.NewHTTPTransport,
	data.NewLogMetricsSink,
	data.NewJournal,
	// Bind data layer implementations to biz layer interfaces
	wire.Bind(new(Transport), new(*data.HTTPTransport)),
	wire.Bind(new(MetricsSink), new(*data.LogMetricsSink)),
	wire.Bind(new(TransitionJournal), new(*data.Journal)),
)

// NewBreakerConfig maps bootstrap configuration onto the default per-target
// breaker configuration. A missing section selects the built-in defaults.
func NewBreakerConfig(c *conf.Bootstrap) *BreakerConfig {
	if c == nil || c.Breaker == nil {
		return DefaultBreakerConfig()
	}
	return &BreakerConfig{
		FailureThreshold: c.Breaker.FailureThreshold,
		SuccessThreshold: c.Breaker.SuccessThreshold,
		OpenTimeout:      c.Breaker.OpenTimeout,
		ResponseTimeout:  c.Breaker.ResponseTimeout,
	}
}

// NewLimiterConfig maps bootstrap configuration onto the limiter
// configuration. A missing section selects the built-in defaults.
func NewLimiterConfig(c *conf.Bootstrap) *LimiterConfig {
	if c == nil || c.RateLimit == nil {
		return DefaultLimiterConfig()
	}
	return &LimiterConfig{
		StoreFailurePolicy: c.RateLimit.StoreFailurePolicy,
		StoreTimeout:       c.RateLimit.StoreTimeout,
	}
}

// NewCallPolicy maps bootstrap configuration onto the client's default call
// policy. A missing section selects the built-in defaults.
func NewCallPolicy(c *conf.Bootstrap) *CallPolicy {
	if c == nil || c.Client == nil {
		return DefaultCallPolicy()
	}
	return &CallPolicy{
		ResponseTimeout: c.Client.ResponseTimeout,
		MaxRetries:      c.Client.MaxRetries,
		BackoffBase:     c.Client.BackoffBase,
		BackoffCap:      c.Client.BackoffCap,
		JitterFraction:  c.Client.JitterFraction,
		RateLimit:       c.Client.RateLimit,
		RatePeriod:      c.Client.RatePeriod,
	}
}

// NewCounterStore selects the counter store backing. A configured Redis
// client keeps rate windows shared across instances; without one, counters
// fall back to the in-process LRU store and stay correct per instance.
func NewCounterStore(c *conf.Bootstrap, rdb *redis.Client, logger log.Logger) (CounterStore, error) {
	if rdb != nil {
		return data.NewRedisCounterStore(rdb, logger)
	}

	size := 0
	if c != nil && c.RateLimit != nil {
		size = c.RateLimit.LocalCacheSize
	}
	return data.NewMemoryCounterStore(size, logger)
}
