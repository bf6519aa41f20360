package biz

import (
	"context"
	"errors"

	kerrors "github.com/go-kratos/kratos/v2/errors"
)

// Stable machine-readable reasons for the call-path error taxonomy.
const (
	ReasonRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
	ReasonCircuitOpen       = "CIRCUIT_OPEN"
	ReasonRequestTimeout    = "REQUEST_TIMEOUT"
	ReasonUpstreamError     = "UPSTREAM_ERROR"
	ReasonStoreUnavailable  = "STORE_UNAVAILABLE"
	ReasonDeadlineExceeded  = "DEADLINE_EXCEEDED"
)

// ToKratosError maps a call-path error onto a coded kratos error so callers
// embedding the client in an HTTP or gRPC surface get stable codes without
// inspecting concrete types. Unknown errors map to 500/UNKNOWN.
func ToKratosError(err error) *kerrors.Error {
	if err == nil {
		return nil
	}

	var (
		rateLimitErr *RateLimitExceededError
		circuitErr   *CircuitOpenError
		timeoutErr   *RequestTimeoutError
		upstreamErr  *UpstreamError
		storeErr     *StoreUnavailableError
		deadlineErr  *DeadlineExceededError
	)

	switch {
	case errors.As(err, &rateLimitErr):
		ke := kerrors.New(429, ReasonRateLimitExceeded, rateLimitErr.Error())
		return ke.WithMetadata(map[string]string{
			"resource_key": rateLimitErr.ResourceKey,
			"retry_after":  rateLimitErr.RetryAfter.String(),
		})
	case errors.As(err, &circuitErr):
		ke := kerrors.New(503, ReasonCircuitOpen, circuitErr.Error())
		return ke.WithMetadata(map[string]string{
			"target_name": circuitErr.TargetName,
			"retry_after": circuitErr.RetryAfter.String(),
		})
	case errors.As(err, &timeoutErr):
		return kerrors.New(408, ReasonRequestTimeout, timeoutErr.Error())
	case errors.As(err, &upstreamErr):
		return kerrors.New(502, ReasonUpstreamError, upstreamErr.Error())
	case errors.As(err, &storeErr):
		return kerrors.New(503, ReasonStoreUnavailable, storeErr.Error())
	case errors.As(err, &deadlineErr):
		return kerrors.New(504, ReasonDeadlineExceeded, deadlineErr.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return kerrors.New(504, ReasonDeadlineExceeded, err.Error())
	default:
		return kerrors.New(500, kerrors.UnknownReason, err.Error())
	}
}

// IsRateLimitExceeded reports whether err is a rate limiter denial.
func IsRateLimitExceeded(err error) bool {
	var target *RateLimitExceededError
	return errors.As(err, &target)
}

// IsCircuitOpen reports whether err is a breaker denial.
func IsCircuitOpen(err error) bool {
	var target *CircuitOpenError
	return errors.As(err, &target)
}

// IsRequestTimeout reports whether err is a per-attempt timeout.
func IsRequestTimeout(err error) bool {
	var target *RequestTimeoutError
	return errors.As(err, &target)
}

// IsUpstreamError reports whether err is a non-2xx upstream response.
func IsUpstreamError(err error) bool {
	var target *UpstreamError
	return errors.As(err, &target)
}

// IsStoreUnavailable reports whether err is a counter store failure surfaced
// under the fail-closed policy.
func IsStoreUnavailable(err error) bool {
	var target *StoreUnavailableError
	return errors.As(err, &target)
}

// IsDeadlineExceeded reports whether err is the caller's overall deadline
// elapsing mid-sequence.
func IsDeadlineExceeded(err error) bool {
	var target *DeadlineExceededError
	return errors.As(err, &target)
}
