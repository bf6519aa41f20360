// Package errors provides classification helpers for upstream transport
// errors and database errors.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// UpstreamErrorType represents the type of upstream call error.
type UpstreamErrorType int

const (
	// UpstreamUnknown represents an unknown upstream error.
	UpstreamUnknown UpstreamErrorType = iota
	// UpstreamTimeout represents a transport deadline exceeded.
	UpstreamTimeout
	// UpstreamConnection represents a connection-level failure (refused, reset, DNS).
	UpstreamConnection
	// UpstreamCanceled represents an attempt abandoned by the caller.
	UpstreamCanceled
)

// UpstreamCallError wraps a transport error with classification information.
type UpstreamCallError struct {
	Type        UpstreamErrorType
	OriginalErr error
	Message     string
}

// Error implements the error interface.
func (e *UpstreamCallError) Error() string {
	return fmt.Sprintf("%s: %v", e.Message, e.OriginalErr)
}

// Unwrap returns the underlying error for errors.Is and errors.As compatibility.
func (e *UpstreamCallError) Unwrap() error {
	return e.OriginalErr
}

// ClassifyTransportError classifies a transport-level error into a specific error type.
//
// It handles context and net errors:
//   - context.Canceled → UpstreamCanceled
//   - context.DeadlineExceeded, net.Error with Timeout() → UpstreamTimeout
//   - Connection errors (refused, reset, DNS, dial) → UpstreamConnection
//
// Example:
//
//	resp, err := transport.Send(ctx, req, deadline)
//	if err != nil {
//	    ue := errors.ClassifyTransportError(err)
//	    switch ue.Type {
//	    case errors.UpstreamTimeout:
//	        // record as Timeout outcome, retry per policy
//	    case errors.UpstreamConnection:
//	        // record as Failure outcome, retry per policy
//	    }
//	}
func ClassifyTransportError(err error) *UpstreamCallError {
	if err == nil {
		return nil
	}

	// Caller cancellation is not an upstream health signal
	if errors.Is(err, context.Canceled) {
		return &UpstreamCallError{
			Type:        UpstreamCanceled,
			OriginalErr: err,
			Message:     "request canceled",
		}
	}

	// Deadline from the per-attempt budget or the caller's overall deadline
	if errors.Is(err, context.DeadlineExceeded) {
		return &UpstreamCallError{
			Type:        UpstreamTimeout,
			OriginalErr: err,
			Message:     "upstream request timed out",
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &UpstreamCallError{
			Type:        UpstreamTimeout,
			OriginalErr: err,
			Message:     "upstream request timed out",
		}
	}

	// Check for timeout and connection errors by message (common patterns)
	errMsg := err.Error()
	if isTimeoutMessage(errMsg) {
		return &UpstreamCallError{
			Type:        UpstreamTimeout,
			OriginalErr: err,
			Message:     "upstream request timed out",
		}
	}

	if isConnectionMessage(errMsg) {
		return &UpstreamCallError{
			Type:        UpstreamConnection,
			OriginalErr: err,
			Message:     "upstream connection error",
		}
	}

	// Unknown error type
	return &UpstreamCallError{
		Type:        UpstreamUnknown,
		OriginalErr: err,
		Message:     "unknown upstream error",
	}
}

// isTimeoutMessage checks if the error message indicates a timed-out attempt.
func isTimeoutMessage(errMsg string) bool {
	timeoutKeywords := []string{
		"timeout",
		"deadline exceeded",
		"timed out",
	}

	for _, keyword := range timeoutKeywords {
		if len(errMsg) > 0 && contains(errMsg, keyword) {
			return true
		}
	}
	return false
}

// isConnectionMessage checks if the error message indicates a connection problem
// at the transport level. Unlike the database variant it also treats a bare EOF
// as a dropped connection.
func isConnectionMessage(errMsg string) bool {
	connectionKeywords := []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"no such host",
		"connection lost",
		"can't connect",
		"dial tcp",
		"EOF",
	}

	for _, keyword := range connectionKeywords {
		if len(errMsg) > 0 && contains(errMsg, keyword) {
			return true
		}
	}
	return false
}

// IsRetryableStatus checks if an upstream HTTP status is worth retrying.
// 429 (throttled) and all 5xx are retryable; other 4xx are caller errors.
func IsRetryableStatus(status int) bool {
	return status == 429 || status >= 500
}

// IsServerStatus checks if the status signals upstream ill-health (5xx).
func IsServerStatus(status int) bool {
	return status >= 500
}

// IsSuccessStatus checks if the status counts as a successful upstream reply.
func IsSuccessStatus(status int) bool {
	return status >= 200 && status < 400
}

// IsTimeoutError checks if the error is a transport timeout.
func IsTimeoutError(err error) bool {
	ue := ClassifyTransportError(err)
	return ue != nil && ue.Type == UpstreamTimeout
}

// IsConnectionFailure checks if the error is a connection-level failure.
func IsConnectionFailure(err error) bool {
	ue := ClassifyTransportError(err)
	return ue != nil && ue.Type == UpstreamConnection
}

// IsCanceledError checks if the error is a caller cancellation.
func IsCanceledError(err error) bool {
	ue := ClassifyTransportError(err)
	return ue != nil && ue.Type == UpstreamCanceled
}
