package model

// Component identifies which gate on the call path produced a decision
type Component string

const (
	ComponentRateLimiter    Component = "rate_limiter"
	ComponentCircuitBreaker Component = "circuit_breaker"
)

// AdmissionDecision is the verdict of one admission check
type AdmissionDecision string

const (
	DecisionAllow    AdmissionDecision = "allow"
	DecisionDeny     AdmissionDecision = "deny"
	DecisionDegraded AdmissionDecision = "degraded"
)
