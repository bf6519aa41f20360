package data

import (
	"context"
	"time"

	"GuardLane/internal/model"
	pkglog "GuardLane/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
)

// LogMetricsSink implements biz.MetricsSink on the structured logger.
// Following Kratos v2 DDD architecture, interface is defined in biz layer.
// Every hook must be fire-and-forget so a slow metrics backend can never
// stall the call path; a logger satisfies that by construction.
type LogMetricsSink struct {
	logger *pkglog.LogHelper
}

// NewLogMetricsSink creates a metrics sink that emits structured log events.
func NewLogMetricsSink(logger log.Logger) *LogMetricsSink {
	return &LogMetricsSink{
		logger: pkglog.NewLogHelper(logger),
	}
}

// OnAdmission records one admission decision made by one gate.
func (s *LogMetricsSink) OnAdmission(ctx context.Context, component model.Component, decision model.AdmissionDecision) {
	kvs := []interface{}{
		"component", string(component),
		"decision", string(decision),
		"target_name", pkglog.GetTargetName(ctx),
		"resource_key", pkglog.GetResourceKey(ctx),
	}

	switch decision {
	case model.DecisionDegraded:
		s.logger.Degraded("admission degraded", kvs...)
	case model.DecisionDeny:
		if component == model.ComponentCircuitBreaker {
			s.logger.Circuit("admission denied", kvs...)
		} else {
			s.logger.RateLimit("admission denied", kvs...)
		}
	default:
		s.logger.Debugw(
			"msg", "admission allowed",
			"component", string(component),
			"target_name", pkglog.GetTargetName(ctx),
			"resource_key", pkglog.GetResourceKey(ctx))
	}
}

// OnStateTransition records one breaker state change.
func (s *LogMetricsSink) OnStateTransition(ctx context.Context, targetName string, from, to model.BreakerState) {
	s.logger.Circuit("breaker state changed",
		"target_name", targetName,
		"from", string(from),
		"to", string(to),
		"request_id", pkglog.GetRequestID(ctx))
}

// OnOutcome records one classified attempt outcome.
func (s *LogMetricsSink) OnOutcome(ctx context.Context, targetName string, classification model.Classification, latency time.Duration) {
	s.logger.Transport("attempt outcome",
		"target_name", targetName,
		"classification", string(classification),
		"latency_ms", latency.Milliseconds(),
		"request_id", pkglog.GetRequestID(ctx))
}

// NoopMetricsSink implements biz.MetricsSink with no-op hooks.
// Useful for tests and embedders that bring their own instrumentation.
type NoopMetricsSink struct{}

// NewNoopMetricsSink creates a metrics sink that discards every event.
func NewNoopMetricsSink() *NoopMetricsSink {
	return &NoopMetricsSink{}
}

// OnAdmission implements biz.MetricsSink.
func (s *NoopMetricsSink) OnAdmission(ctx context.Context, component model.Component, decision model.AdmissionDecision) {
}

// OnStateTransition implements biz.MetricsSink.
func (s *NoopMetricsSink) OnStateTransition(ctx context.Context, targetName string, from, to model.BreakerState) {
}

// OnOutcome implements biz.MetricsSink.
func (s *NoopMetricsSink) OnOutcome(ctx context.Context, targetName string, classification model.Classification, latency time.Duration) {
}
