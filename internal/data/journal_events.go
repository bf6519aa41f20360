package data

// TransitionEventType defines transition journal event type constants.
// These constants are used for rows in the breaker_transition_logs table.
type TransitionEventType string

const (
	// EventBreakerTripped is logged when consecutive failures open a breaker
	EventBreakerTripped TransitionEventType = "BREAKER_TRIPPED"

	// EventBreakerRecovered is logged when trial successes close a breaker
	EventBreakerRecovered TransitionEventType = "BREAKER_RECOVERED"

	// EventBreakerReset is logged when an operator forces a breaker closed
	EventBreakerReset TransitionEventType = "BREAKER_RESET"

	// EventLimiterDenied is logged when a rate window denies admission
	EventLimiterDenied TransitionEventType = "LIMITER_DENIED"
)

// String returns the string representation of TransitionEventType
func (e TransitionEventType) String() string {
	return string(e)
}
