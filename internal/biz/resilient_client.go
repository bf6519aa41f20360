package biz

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"GuardLane/internal/model"
	pkgerrors "GuardLane/pkg/errors"
	pkglog "GuardLane/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
)

// RequestTimeoutError represents a transport attempt that exceeded its
// per-attempt deadline. Recorded as a breaker failure and retried per policy.
type RequestTimeoutError struct {
	TargetName string
	Deadline   time.Duration
	Attempts   int32
	Err        error
}

// Error implements the error interface.
func (e *RequestTimeoutError) Error() string {
	return fmt.Sprintf("request timeout: target=%s deadline=%s attempts=%d",
		e.TargetName, e.Deadline, e.Attempts)
}

// Unwrap returns the underlying error for errors.Is and errors.As compatibility.
func (e *RequestTimeoutError) Unwrap() error {
	return e.Err
}

// UpstreamError represents a non-2xx upstream response surfaced to the caller.
// 5xx statuses are also recorded as breaker failures; 4xx statuses are not a
// dependency-health signal and leave the breaker untouched.
type UpstreamError struct {
	TargetName string
	StatusCode int
	Attempts   int32
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream error: target=%s status=%d attempts=%d",
		e.TargetName, e.StatusCode, e.Attempts)
}

// DeadlineExceededError represents the caller-supplied overall deadline
// elapsing mid-sequence. Terminal: no further retries.
type DeadlineExceededError struct {
	TargetName string
	Attempts   int32
}

// Error implements the error interface.
func (e *DeadlineExceededError) Error() string {
	return fmt.Sprintf("deadline exceeded: target=%s attempts=%d", e.TargetName, e.Attempts)
}

// ResilientClientUsecase is the single call path every outbound request
// funnels through: limiter admission, breaker admission, transport attempt,
// outcome recording, and bounded exponential-backoff retry.
type ResilientClientUsecase struct {
	defaults  *CallPolicy
	limiter   *RateLimiterUseCase
	breaker   *CircuitBreakerUsecase
	transport Transport
	clock     Clock
	sleeper   Sleeper
	logger    *log.Helper

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewResilientClientUsecase creates the resilient client.
// A nil defaults selects the built-in call policy; any policy is validated
// here, once, so invalid combinations are rejected at construction.
func NewResilientClientUsecase(defaults *CallPolicy, limiter *RateLimiterUseCase, breaker *CircuitBreakerUsecase, transport Transport, clock Clock, sleeper Sleeper, logger log.Logger) (*ResilientClientUsecase, error) {
	if defaults == nil {
		defaults = DefaultCallPolicy()
	}
	if err := defaults.Validate(); err != nil {
		return nil, err
	}

	return &ResilientClientUsecase{
		defaults:  defaults,
		limiter:   limiter,
		breaker:   breaker,
		transport: transport,
		clock:     clock,
		sleeper:   sleeper,
		logger:    log.NewHelper(logger),
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// Execute performs one logical call to targetName, charging the rate window
// of resourceKey once and retrying failed attempts per policy.
//
// The call sequence per attempt: breaker admission, transport with a hard
// per-attempt deadline, outcome classification, breaker feedback. The
// limiter is consulted once up front; retries re-enter at the breaker check,
// so a breaker opened mid-sequence stops further attempts. Admission denials
// are returned immediately and never retried.
//
// A nil policy selects the client's validated defaults; a caller-supplied
// policy is validated before any I/O. Retried requests must be idempotent;
// that guarantee belongs to the caller.
func (uc *ResilientClientUsecase) Execute(ctx context.Context, targetName, resourceKey string, req *model.Request, policy *CallPolicy) (*model.Response, error) {
	if req == nil {
		return nil, fmt.Errorf("request is nil")
	}
	if policy == nil {
		policy = uc.defaults
	} else if err := policy.Validate(); err != nil {
		return nil, err
	}

	ctx = pkglog.WithRequestContext(ctx, pkglog.GenerateRequestID(), targetName, resourceKey)

	// Limiter admission, once per logical call. A denial carries retry_after
	// and must not consume transport attempts.
	if _, err := uc.limiter.CheckAdmission(ctx, resourceKey, policy.RateLimit, policy.RatePeriod); err != nil {
		return nil, err
	}

	var (
		attempts int32
		lastErr  error
	)

	for attempt := int32(0); attempt <= policy.MaxRetries; attempt++ {
		// The caller's deadline bounds the entire sequence including waits
		if ctx.Err() != nil {
			return nil, uc.deadlineError(ctx, targetName, attempts)
		}

		// Breaker admission per attempt
		if err := uc.breaker.CheckAdmission(ctx, targetName); err != nil {
			return nil, err
		}

		attempts++
		attemptStart := uc.clock.Now()
		resp, err := uc.transport.Send(ctx, req, policy.ResponseTimeout)
		latency := uc.clock.Now().Sub(attemptStart)

		outcome := &model.CallOutcome{
			TargetName: targetName,
			Latency:    latency,
		}

		if err != nil {
			timedOut := pkgerrors.IsTimeoutError(err)
			if timedOut {
				outcome.Classification = model.ClassTimeout
			} else {
				outcome.Classification = model.ClassFailure
			}
			// Recorded unconditionally so an in-flight half-open trial is
			// always released, even when the caller abandoned the attempt.
			uc.breaker.RecordOutcome(ctx, outcome)

			if ctx.Err() != nil {
				return nil, uc.deadlineError(ctx, targetName, attempts)
			}

			if timedOut {
				lastErr = &RequestTimeoutError{
					TargetName: targetName,
					Deadline:   policy.ResponseTimeout,
					Attempts:   attempts,
					Err:        err,
				}
			} else {
				lastErr = err
			}
		} else {
			status := resp.StatusCode

			if pkgerrors.IsSuccessStatus(status) {
				outcome.Succeeded = true
				outcome.Classification = model.ClassSuccess
				uc.breaker.RecordOutcome(ctx, outcome)
				return resp, nil
			}

			if pkgerrors.IsServerStatus(status) {
				outcome.Classification = model.ClassFailure
			} else {
				// 4xx means the request was wrong, not that the target is
				// unhealthy: a breaker success, but an error for the caller
				outcome.Succeeded = true
				outcome.Classification = model.ClassSuccess
			}
			uc.breaker.RecordOutcome(ctx, outcome)

			lastErr = &UpstreamError{TargetName: targetName, StatusCode: status, Attempts: attempts}

			if !pkgerrors.IsRetryableStatus(status) {
				return nil, lastErr
			}
		}

		if attempt == policy.MaxRetries {
			break
		}

		wait := uc.backoff(policy, attempt)
		uc.logger.Infow("attempt failed, retrying after backoff",
			"target", targetName,
			"attempt", attempts,
			"backoff", wait.String(),
			"error", lastErr)
		if err := uc.sleeper.Sleep(ctx, wait); err != nil {
			return nil, uc.deadlineError(ctx, targetName, attempts)
		}
	}

	// Retry budget exhausted: surface the last error with the attempt count
	switch lastErr.(type) {
	case *RequestTimeoutError, *UpstreamError:
		return nil, lastErr
	default:
		return nil, fmt.Errorf("all retry attempts exhausted after %d attempts: %w", attempts, lastErr)
	}
}

// GetBreakerStatus reports the breaker snapshot for targetName.
func (uc *ResilientClientUsecase) GetBreakerStatus(targetName string) *model.BreakerStatus {
	return uc.breaker.GetStatus(targetName)
}

// GetLimiterStatus reports the current rate window for resourceKey against
// the client's default limit.
func (uc *ResilientClientUsecase) GetLimiterStatus(ctx context.Context, resourceKey string) (*model.LimiterStatus, error) {
	return uc.limiter.GetStatus(ctx, resourceKey, uc.defaults.RateLimit)
}

// backoff computes the wait before the retry following 0-based attempt,
// min(base * 2^attempt, cap) spread uniformly across [d*(1-jitter), d].
func (uc *ResilientClientUsecase) backoff(policy *CallPolicy, attempt int32) time.Duration {
	d := time.Duration(float64(policy.BackoffBase) * math.Pow(2, float64(attempt)))
	if d <= 0 || d > policy.BackoffCap {
		d = policy.BackoffCap
	}

	if policy.JitterFraction <= 0 {
		return d
	}

	uc.rngMu.Lock()
	f := uc.rng.Float64()
	uc.rngMu.Unlock()

	spread := 1 - policy.JitterFraction + f*policy.JitterFraction
	return time.Duration(float64(d) * spread)
}

// deadlineError maps the context's terminal state onto the taxonomy.
func (uc *ResilientClientUsecase) deadlineError(ctx context.Context, targetName string, attempts int32) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &DeadlineExceededError{TargetName: targetName, Attempts: attempts}
	}
	return fmt.Errorf("request canceled after %d attempts: %w", attempts, ctx.Err())
}
