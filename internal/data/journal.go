package data

import (
	"context"
	"encoding/json"
	"time"

	"GuardLane/internal/model"
	pkgerrors "GuardLane/pkg/errors"
	pkglog "GuardLane/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"
)

// TransitionLog is the GORM model for breaker_transition_logs table
type TransitionLog struct {
	ID        int64     `gorm:"primaryKey;column:id"`
	EventType string    `gorm:"column:event_type;type:varchar(50);not null;index"`
	Subject   string    `gorm:"column:subject;type:varchar(191);not null;index"`
	Details   string    `gorm:"column:details;type:json"` // JSON string
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName specifies the table name for GORM
func (TransitionLog) TableName() string {
	return "breaker_transition_logs"
}

// Journal implements biz.TransitionJournal interface.
// State transitions and limiter denials are durable operator-facing history,
// written asynchronously so the call path never waits on the database.
// Without a configured database the journal degrades to log-only mode.
type Journal struct {
	db      *gorm.DB
	logChan chan *TransitionLog
	logger  *log.Helper
}

// NewJournal creates a new transition journal with async channel.
func NewJournal(db *gorm.DB, logger log.Logger) *Journal {
	j := &Journal{
		db:      db,
		logChan: make(chan *TransitionLog, 1000), // Buffer size 1000 to prevent blocking
		logger:  log.NewHelper(logger),
	}

	if db == nil {
		j.logger.Warn("journal database is nil, transitions will be logged only")
		return j
	}

	// Start background goroutine for async writes
	go j.start()

	return j
}

// start processes journal events from channel
func (j *Journal) start() {
	for event := range j.logChan {
		j.write(event)
	}
}

// write persists one event, retrying once when the insert hits a deadlock.
func (j *Journal) write(event *TransitionLog) {
	ctx := context.Background()

	err := j.db.WithContext(ctx).Create(event).Error
	if err != nil && pkgerrors.IsDeadlockError(err) {
		err = j.db.WithContext(ctx).Create(event).Error
	}

	if err != nil {
		dbErr := pkgerrors.ClassifyDBError(err)
		j.logger.Errorw("failed to write transition log",
			"event_type", event.EventType,
			"subject", event.Subject,
			"error_class", dbErr.Message,
			"error", err)
		return
	}

	j.logger.Debugw("transition log written",
		"event_type", event.EventType,
		"subject", event.Subject)
}

// LogBreakerTripped journals a breaker opening after consecutive failures.
func (j *Journal) LogBreakerTripped(ctx context.Context, target string, consecutiveFailures int32, openedAt time.Time) {
	j.enqueue(ctx, EventBreakerTripped, target, map[string]interface{}{
		"consecutive_failures": consecutiveFailures,
		"opened_at":            openedAt.Format(time.RFC3339),
	})
}

// LogBreakerRecovered journals a breaker closing after successful trials.
func (j *Journal) LogBreakerRecovered(ctx context.Context, target string, trialSuccesses int32, openFor time.Duration) {
	j.enqueue(ctx, EventBreakerRecovered, target, map[string]interface{}{
		"trial_successes":  trialSuccesses,
		"open_for_seconds": openFor.Seconds(),
	})
}

// LogBreakerReset journals an operator forcing a breaker closed.
func (j *Journal) LogBreakerReset(ctx context.Context, target string, fromState model.BreakerState) {
	j.enqueue(ctx, EventBreakerReset, target, map[string]interface{}{
		"from_state": string(fromState),
	})
}

// LogLimiterDenied journals a rate window denial.
func (j *Journal) LogLimiterDenied(ctx context.Context, resourceKey string, count, limit int32, retryAfter time.Duration) {
	j.enqueue(ctx, EventLimiterDenied, resourceKey, map[string]interface{}{
		"count":               count,
		"limit":               limit,
		"retry_after_seconds": retryAfter.Seconds(),
	})
}

// enqueue marshals one event and hands it to the async writer (non-blocking).
func (j *Journal) enqueue(ctx context.Context, eventType TransitionEventType, subject string, details map[string]interface{}) {
	details["request_id"] = pkglog.GetRequestID(ctx)

	if j.db == nil {
		j.logger.Debugw("transition recorded",
			"event_type", eventType.String(),
			"subject", subject)
		return
	}

	detailsJSON, err := json.Marshal(details)
	if err != nil {
		j.logger.Errorw("failed to marshal transition log details", "error", err)
		return
	}

	event := &TransitionLog{
		EventType: eventType.String(),
		Subject:   subject,
		Details:   string(detailsJSON),
	}

	// Send to channel (non-blocking)
	select {
	case j.logChan <- event:
		// Successfully queued
	default:
		j.logger.Warnw("transition log channel full, dropping event",
			"event_type", event.EventType,
			"subject", event.Subject)
	}
}
