package data

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"GuardLane/internal/model"
	pkglog "GuardLane/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// newQueueOnlyJournal builds a journal whose writer goroutine is not running,
// so enqueued events can be drained and inspected.
func newQueueOnlyJournal(capacity int) *Journal {
	return &Journal{
		db:      &gorm.DB{},
		logChan: make(chan *TransitionLog, capacity),
		logger:  log.NewHelper(log.NewStdLogger(os.Stdout)),
	}
}

func drainOne(t *testing.T, j *Journal) *TransitionLog {
	select {
	case event := <-j.logChan:
		return event
	default:
		t.Fatal("expected a queued transition log event")
		return nil
	}
}

// Test enqueue - trip events carry the failure streak and open time
func TestJournalBreakerTrippedDetails(t *testing.T) {
	j := newQueueOnlyJournal(10)
	openedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ctx := pkglog.WithRequestContext(context.Background(), "abc123def0", "billing", "")

	j.LogBreakerTripped(ctx, "billing", 5, openedAt)

	event := drainOne(t, j)
	assert.Equal(t, "BREAKER_TRIPPED", event.EventType)
	assert.Equal(t, "billing", event.Subject)

	var details map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(event.Details), &details))
	assert.Equal(t, float64(5), details["consecutive_failures"])
	assert.Equal(t, "2025-06-01T12:00:00Z", details["opened_at"])
	assert.Equal(t, "abc123def0", details["request_id"])
}

// Test enqueue - recovery events carry the trial count and open duration
func TestJournalBreakerRecoveredDetails(t *testing.T) {
	j := newQueueOnlyJournal(10)

	j.LogBreakerRecovered(context.Background(), "billing", 3, 90*time.Second)

	event := drainOne(t, j)
	assert.Equal(t, "BREAKER_RECOVERED", event.EventType)

	var details map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(event.Details), &details))
	assert.Equal(t, float64(3), details["trial_successes"])
	assert.Equal(t, float64(90), details["open_for_seconds"])
}

// Test enqueue - reset events record the state the operator cleared
func TestJournalBreakerResetDetails(t *testing.T) {
	j := newQueueOnlyJournal(10)

	j.LogBreakerReset(context.Background(), "billing", model.StateOpen)

	event := drainOne(t, j)
	assert.Equal(t, "BREAKER_RESET", event.EventType)

	var details map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(event.Details), &details))
	assert.Equal(t, "open", details["from_state"])
}

// Test enqueue - limiter denials carry count, limit and the retry hint
func TestJournalLimiterDeniedDetails(t *testing.T) {
	j := newQueueOnlyJournal(10)

	j.LogLimiterDenied(context.Background(), "reports:generate", 6, 5, 30*time.Second)

	event := drainOne(t, j)
	assert.Equal(t, "LIMITER_DENIED", event.EventType)
	assert.Equal(t, "reports:generate", event.Subject)

	var details map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(event.Details), &details))
	assert.Equal(t, float64(6), details["count"])
	assert.Equal(t, float64(5), details["limit"])
	assert.Equal(t, float64(30), details["retry_after_seconds"])
}

// Test enqueue - a full channel drops the event instead of blocking
func TestJournalDropsWhenChannelFull(t *testing.T) {
	j := newQueueOnlyJournal(1)
	ctx := context.Background()

	j.LogLimiterDenied(ctx, "reports:generate", 6, 5, 30*time.Second)
	j.LogLimiterDenied(ctx, "reports:generate", 7, 5, 29*time.Second)

	assert.Equal(t, 1, len(j.logChan))
}

// Test NewJournal - without a database the journal is log-only and safe
func TestJournalNilDatabaseLogOnly(t *testing.T) {
	logger := log.NewStdLogger(os.Stdout)
	j := NewJournal(nil, logger)
	ctx := context.Background()

	j.LogBreakerTripped(ctx, "billing", 5, time.Now())
	j.LogBreakerRecovered(ctx, "billing", 3, time.Minute)
	j.LogBreakerReset(ctx, "billing", model.StateHalfOpen)
	j.LogLimiterDenied(ctx, "reports:generate", 6, 5, 30*time.Second)

	// Nothing queued: log-only mode never touches the writer channel
	assert.Equal(t, 0, len(j.logChan))
}

// Test TransitionEventType - stable row values
func TestTransitionEventTypes(t *testing.T) {
	assert.Equal(t, "BREAKER_TRIPPED", EventBreakerTripped.String())
	assert.Equal(t, "BREAKER_RECOVERED", EventBreakerRecovered.String())
	assert.Equal(t, "BREAKER_RESET", EventBreakerReset.String())
	assert.Equal(t, "LIMITER_DENIED", EventLimiterDenied.String())
}

// Test TransitionLog - table binding
func TestTransitionLogTableName(t *testing.T) {
	assert.Equal(t, "breaker_transition_logs", TransitionLog{}.TableName())
}
