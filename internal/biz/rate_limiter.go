package biz

import (
	"context"
	"fmt"
	"time"

	"GuardLane/internal/model"

	"github.com/go-kratos/kratos/v2/log"
)

// RateLimitExceededError represents a rate limit exceeded error with retry information.
type RateLimitExceededError struct {
	ResourceKey  string        // Resource key the window is charged to
	CurrentCount int32         // Post-increment count in the current window
	Limit        int32         // Configured limit
	RetryAfter   time.Duration // Time remaining in the current window
}

// Error implements the error interface.
func (e *RateLimitExceededError) Error() string {
	return fmt.Sprintf("rate limit exceeded: %s current=%d limit=%d retry_after=%ds",
		e.ResourceKey, e.CurrentCount, e.Limit, int64(e.RetryAfter.Seconds()))
}

// StoreUnavailableError represents a counter store that could not be reached
// within its timeout. Under the fail-closed policy it surfaces to the caller;
// under fail-open it is only logged and reported as a degraded admission.
type StoreUnavailableError struct {
	Op  string // Store operation that failed
	Err error
}

// Error implements the error interface.
func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("counter store unavailable: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is and errors.As compatibility.
func (e *StoreUnavailableError) Unwrap() error {
	return e.Err
}

// RateLimiterUseCase bounds the call rate per resource key using fixed-window
// counting against a pluggable CounterStore. The window lives in the store
// (shared when the store is Redis), so multiple process instances charge the
// same quota.
type RateLimiterUseCase struct {
	cfg     *LimiterConfig
	store   CounterStore
	clock   Clock
	sink    MetricsSink
	journal TransitionJournal
	logger  *log.Helper
}

// NewRateLimiterUseCase creates a new rate limiter use case.
// A nil cfg selects the built-in fail-open configuration; any configuration
// is validated here, once.
func NewRateLimiterUseCase(cfg *LimiterConfig, store CounterStore, clock Clock, sink MetricsSink, journal TransitionJournal, logger log.Logger) (*RateLimiterUseCase, error) {
	if cfg == nil {
		cfg = DefaultLimiterConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &RateLimiterUseCase{
		cfg:     cfg,
		store:   store,
		clock:   clock,
		sink:    sink,
		journal: journal,
		logger:  log.NewHelper(logger),
	}, nil
}

// CheckAdmission checks whether one more call may be charged to resourceKey
// within the current window. It returns the remaining quota on success.
//
// The counter increment is atomic in the store and is not rolled back on
// denial: the overage itself is the denial signal, and avoiding a second
// round-trip is worth the slight overshoot under concurrent writers.
//
// Store degradation follows the configured failure policy: fail-open logs a
// warning, reports a degraded admission, and allows the request (returning a
// negative remaining, meaning unknown); fail-closed denies with a
// StoreUnavailableError.
func (uc *RateLimiterUseCase) CheckAdmission(ctx context.Context, resourceKey string, limit int32, period time.Duration) (int32, error) {
	if limit <= 0 {
		// No limit configured, allow request
		return -1, nil
	}

	now := uc.clock.Now()

	// Bound the store round-trip so a stuck store cannot stall the call path
	storeCtx, cancel := context.WithTimeout(ctx, uc.cfg.StoreTimeout)
	defer cancel()

	count, retryAfter, err := uc.store.CheckAndIncrement(storeCtx, resourceKey, limit, period, now)
	if err != nil {
		if uc.cfg.StoreFailurePolicy == StorePolicyFailClosed {
			uc.logger.Errorw("counter store check failed, denying per fail-closed policy",
				"resource_key", resourceKey,
				"error", err)
			uc.sink.OnAdmission(ctx, model.ComponentRateLimiter, model.DecisionDeny)
			return 0, &StoreUnavailableError{Op: "check_and_increment", Err: err}
		}

		// Store failure: log warning and allow request (graceful degradation)
		uc.logger.Warnf("counter store check failed for key %s: %v (request allowed)", resourceKey, err)
		uc.sink.OnAdmission(ctx, model.ComponentRateLimiter, model.DecisionDegraded)
		return -1, nil
	}

	if count > limit {
		uc.logger.Warnw("rate limit exceeded",
			"resource_key", resourceKey,
			"current", count,
			"limit", limit,
			"retry_after", retryAfter.String())
		uc.sink.OnAdmission(ctx, model.ComponentRateLimiter, model.DecisionDeny)
		uc.journal.LogLimiterDenied(ctx, resourceKey, count, limit, retryAfter)
		return 0, &RateLimitExceededError{
			ResourceKey:  resourceKey,
			CurrentCount: count,
			Limit:        limit,
			RetryAfter:   retryAfter,
		}
	}

	uc.sink.OnAdmission(ctx, model.ComponentRateLimiter, model.DecisionAllow)
	return limit - count, nil
}

// GetStatus returns a read-only snapshot of resourceKey's current window.
// Unlike CheckAdmission it does not charge the window, and store errors are
// surfaced directly: introspection has no fail-open semantics.
func (uc *RateLimiterUseCase) GetStatus(ctx context.Context, resourceKey string, limit int32) (*model.LimiterStatus, error) {
	storeCtx, cancel := context.WithTimeout(ctx, uc.cfg.StoreTimeout)
	defer cancel()

	count, remaining, err := uc.store.Get(storeCtx, resourceKey)
	if err != nil {
		return nil, &StoreUnavailableError{Op: "get", Err: err}
	}

	quota := limit - count
	if quota < 0 {
		quota = 0
	}

	// No live window means the next check starts a fresh one
	resetAt := uc.clock.Now().Add(remaining)
	if count == 0 && remaining == 0 {
		resetAt = uc.clock.Now()
	}

	return &model.LimiterStatus{
		ResourceKey:   resourceKey,
		Count:         count,
		Limit:         limit,
		Remaining:     quota,
		WindowResetAt: resetAt,
	}, nil
}
