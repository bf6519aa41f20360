package biz

import (
	"context"
	"time"

	"GuardLane/internal/model"
)

// TransitionJournal defines the interface for the durable trail of call
// path state changes. Following Kratos v2 DDD architecture, interfaces are
// defined in biz layer. Implementation is in data layer (data.Journal).
//
// All methods are fire-and-forget: journal writes must never block or fail
// the admission path.
type TransitionJournal interface {
	// LogBreakerTripped records a transition into the open state.
	LogBreakerTripped(ctx context.Context, targetName string, consecutiveFailures int32, openedAt time.Time)

	// LogBreakerRecovered records a half-open to closed transition.
	LogBreakerRecovered(ctx context.Context, targetName string, trialSuccesses int32, openFor time.Duration)

	// LogBreakerReset records a manual reset back to closed.
	LogBreakerReset(ctx context.Context, targetName string, fromState model.BreakerState)

	// LogLimiterDenied records a rate limit denial.
	LogLimiterDenied(ctx context.Context, resourceKey string, count, limit int32, retryAfter time.Duration)
}
