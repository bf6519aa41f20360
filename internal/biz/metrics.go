package biz

import (
	"context"
	"time"

	"GuardLane/internal/model"
)

// MetricsSink defines the interface for call path observability events.
// Following Kratos v2 DDD architecture, interfaces are defined in biz layer.
// All methods are fire-and-forget: implementations must never block or fail
// the caller.
type MetricsSink interface {
	// OnAdmission reports one admission decision made by a gate component.
	// A degraded decision means the limiter admitted a request it could not
	// verify because its store was unreachable.
	OnAdmission(ctx context.Context, component model.Component, decision model.AdmissionDecision)

	// OnStateTransition reports a breaker state change.
	OnStateTransition(ctx context.Context, targetName string, from, to model.BreakerState)

	// OnOutcome reports the classification and latency of one transport attempt.
	OnOutcome(ctx context.Context, targetName string, classification model.Classification, latency time.Duration)
}
