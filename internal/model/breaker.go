package model

import "time"

// BreakerState represents the lifecycle state of a single circuit breaker
type BreakerState string

const (
	StateClosed   BreakerState = "closed"
	StateOpen     BreakerState = "open"
	StateHalfOpen BreakerState = "half_open"
)

// BreakerStatus is a point-in-time snapshot of one breaker for introspection
type BreakerStatus struct {
	TargetName           string
	State                BreakerState
	ConsecutiveFailures  int32
	ConsecutiveSuccesses int32
	OpenedAt             *time.Time
	HalfOpenInFlight     bool
	TotalRequests        int64
	TotalFailures        int64
	LastTransitionAt     time.Time
}
