package biz

import (
	"fmt"
	"strings"
	"time"
)

// Default configuration values shared by the breaker, limiter, and client.
const (
	DefaultFailureThreshold int32 = 5
	DefaultSuccessThreshold int32 = 3
	DefaultOpenTimeout            = 60 * time.Second
	DefaultResponseTimeout        = 30 * time.Second
	DefaultMaxRetries       int32 = 3
	DefaultBackoffBase            = 1 * time.Second
	DefaultBackoffCap             = 30 * time.Second
	DefaultJitterFraction         = 0.5
	DefaultRateLimit        int32 = 100
	DefaultRatePeriod             = 60 * time.Second
	DefaultStoreTimeout           = 200 * time.Millisecond
)

// Store failure policies for the rate limiter.
const (
	StorePolicyFailOpen   = "fail-open"
	StorePolicyFailClosed = "fail-closed"
)

// BreakerConfig is the immutable per-target circuit breaker configuration.
// Once a breaker entry exists its configuration never changes.
type BreakerConfig struct {
	FailureThreshold int32
	SuccessThreshold int32
	OpenTimeout      time.Duration
	ResponseTimeout  time.Duration
}

// DefaultBreakerConfig returns the built-in breaker configuration.
func DefaultBreakerConfig() *BreakerConfig {
	return &BreakerConfig{
		FailureThreshold: DefaultFailureThreshold,
		SuccessThreshold: DefaultSuccessThreshold,
		OpenTimeout:      DefaultOpenTimeout,
		ResponseTimeout:  DefaultResponseTimeout,
	}
}

// Validate checks that all breaker configuration values are usable.
// It returns an error listing every invalid field.
func (c *BreakerConfig) Validate() error {
	var invalidFields []string

	if c.FailureThreshold < 1 {
		invalidFields = append(invalidFields, "failure_threshold (must be >= 1)")
	}
	if c.SuccessThreshold < 1 {
		invalidFields = append(invalidFields, "success_threshold (must be >= 1)")
	}
	if c.OpenTimeout <= 0 {
		invalidFields = append(invalidFields, "open_timeout (must be > 0)")
	}
	if c.ResponseTimeout <= 0 {
		invalidFields = append(invalidFields, "response_timeout (must be > 0)")
	}

	if len(invalidFields) > 0 {
		return fmt.Errorf("invalid breaker config: %s", strings.Join(invalidFields, ", "))
	}

	return nil
}

// LimiterConfig controls how the rate limiter reacts to its counter store.
type LimiterConfig struct {
	// StoreFailurePolicy decides what an unreachable store means:
	// fail-open admits the request, fail-closed denies it.
	StoreFailurePolicy string
	// StoreTimeout bounds every store round-trip so a stuck store cannot
	// stall the call path.
	StoreTimeout time.Duration
}

// DefaultLimiterConfig returns the built-in limiter configuration.
// Fail-open is the default: an unreachable store must not turn into a
// full outage of every limited call path.
func DefaultLimiterConfig() *LimiterConfig {
	return &LimiterConfig{
		StoreFailurePolicy: StorePolicyFailOpen,
		StoreTimeout:       DefaultStoreTimeout,
	}
}

// Validate checks that all limiter configuration values are usable.
func (c *LimiterConfig) Validate() error {
	var invalidFields []string

	if c.StoreFailurePolicy != StorePolicyFailOpen && c.StoreFailurePolicy != StorePolicyFailClosed {
		invalidFields = append(invalidFields, "store_failure_policy (must be fail-open or fail-closed)")
	}
	if c.StoreTimeout <= 0 {
		invalidFields = append(invalidFields, "store_timeout (must be > 0)")
	}

	if len(invalidFields) > 0 {
		return fmt.Errorf("invalid limiter config: %s", strings.Join(invalidFields, ", "))
	}

	return nil
}

// CallPolicy controls one Execute invocation end to end: the per-attempt
// deadline, the retry budget, the backoff curve, and the rate window the
// resource key is charged against.
type CallPolicy struct {
	ResponseTimeout time.Duration
	MaxRetries      int32
	BackoffBase     time.Duration
	BackoffCap      time.Duration
	// JitterFraction spreads backoff waits uniformly across
	// [backoff * (1 - fraction), backoff] to avoid retry thundering herds.
	JitterFraction float64
	RateLimit      int32
	RatePeriod     time.Duration
}

// DefaultCallPolicy returns the built-in call policy.
func DefaultCallPolicy() *CallPolicy {
	return &CallPolicy{
		ResponseTimeout: DefaultResponseTimeout,
		MaxRetries:      DefaultMaxRetries,
		BackoffBase:     DefaultBackoffBase,
		BackoffCap:      DefaultBackoffCap,
		JitterFraction:  DefaultJitterFraction,
		RateLimit:       DefaultRateLimit,
		RatePeriod:      DefaultRatePeriod,
	}
}

// Validate checks that all call policy values are usable.
// It returns an error listing every invalid field.
func (p *CallPolicy) Validate() error {
	var invalidFields []string

	if p.ResponseTimeout <= 0 {
		invalidFields = append(invalidFields, "response_timeout (must be > 0)")
	}
	if p.MaxRetries < 0 {
		invalidFields = append(invalidFields, "max_retries (must be >= 0)")
	}
	if p.BackoffBase <= 0 {
		invalidFields = append(invalidFields, "backoff_base (must be > 0)")
	}
	if p.BackoffCap < p.BackoffBase {
		invalidFields = append(invalidFields, "backoff_cap (must be >= backoff_base)")
	}
	if p.JitterFraction < 0 || p.JitterFraction > 1 {
		invalidFields = append(invalidFields, "jitter_fraction (must be between 0 and 1)")
	}
	if p.RateLimit < 1 {
		invalidFields = append(invalidFields, "rate_limit (must be >= 1)")
	}
	if p.RatePeriod <= 0 {
		invalidFields = append(invalidFields, "rate_period (must be > 0)")
	}

	if len(invalidFields) > 0 {
		return fmt.Errorf("invalid call policy: %s", strings.Join(invalidFields, ", "))
	}

	return nil
}
