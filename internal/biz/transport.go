package biz

import (
	"context"
	"time"

	"GuardLane/internal/model"
)

// Transport defines the interface for performing one upstream attempt.
// Following Kratos v2 DDD architecture, interfaces are defined in biz layer.
// Implementation is in data layer (data.HTTPTransport).
type Transport interface {
	// Send performs a single attempt bounded by deadline. Non-2xx statuses
	// are returned as responses, not errors; the error covers transport-level
	// failures only (timeouts, connection errors, cancellation).
	// Implementations are expected to pool and reuse connections per target.
	Send(ctx context.Context, req *model.Request, deadline time.Duration) (*model.Response, error)
}
