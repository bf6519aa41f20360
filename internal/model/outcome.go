package model

import "time"

// Classification buckets one call attempt for breaker accounting
type Classification string

const (
	ClassSuccess Classification = "success"
	ClassFailure Classification = "failure"
	ClassTimeout Classification = "timeout"
)

// CallOutcome represents the result of a single transport attempt
type CallOutcome struct {
	TargetName     string
	Succeeded      bool
	Latency        time.Duration
	Classification Classification
}
