package biz

import (
	"context"
	"fmt"
	"sync"
	"time"

	"GuardLane/internal/model"

	"github.com/go-kratos/kratos/v2/log"
)

// CircuitOpenError represents an admission denied by the circuit breaker.
// RetryAfter is the time until the next half-open probe may be admitted;
// it is zero while a trial is already in flight.
type CircuitOpenError struct {
	TargetName string
	State      model.BreakerState
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("circuit open: target=%s state=%s retry_after=%s",
		e.TargetName, e.State, e.RetryAfter)
}

// breakerEntry holds the mutable state of one target's breaker.
// Every field is guarded by mu; entries for different targets never
// share a lock, so cross-target operations never contend.
type breakerEntry struct {
	mu sync.Mutex

	cfg *BreakerConfig

	state                model.BreakerState
	consecutiveFailures  int32
	consecutiveSuccesses int32
	openedAt             time.Time
	halfOpenInFlight     bool

	totalRequests    int64
	totalFailures    int64
	lastTransitionAt time.Time
}

// CircuitBreakerUsecase owns every breaker in the process. Entries are
// created lazily on first reference, start closed, and are never destroyed.
// The ResilientClient holds this registry by reference; nothing outside it
// mutates breaker state.
type CircuitBreakerUsecase struct {
	mu      sync.RWMutex
	entries map[string]*breakerEntry

	defaults *BreakerConfig
	clock    Clock
	sink     MetricsSink
	journal  TransitionJournal
	logger   *log.Helper
}

// NewCircuitBreakerUsecase creates the breaker registry.
// A nil defaults selects the built-in configuration; any configuration is
// validated here, once, so invalid combinations are rejected at
// construction instead of first use.
func NewCircuitBreakerUsecase(defaults *BreakerConfig, clock Clock, sink MetricsSink, journal TransitionJournal, logger log.Logger) (*CircuitBreakerUsecase, error) {
	if defaults == nil {
		defaults = DefaultBreakerConfig()
	}
	if err := defaults.Validate(); err != nil {
		return nil, err
	}

	return &CircuitBreakerUsecase{
		entries:  make(map[string]*breakerEntry),
		defaults: defaults,
		clock:    clock,
		sink:     sink,
		journal:  journal,
		logger:   log.NewHelper(logger),
	}, nil
}

// Register applies a custom configuration for targetName before its first
// use. Re-registering an existing target keeps the original configuration:
// breaker config is immutable once the entry exists.
func (uc *CircuitBreakerUsecase) Register(targetName string, cfg *BreakerConfig) error {
	if cfg == nil {
		cfg = uc.defaults
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	uc.mu.Lock()
	defer uc.mu.Unlock()

	if _, ok := uc.entries[targetName]; ok {
		uc.logger.Warnf("breaker for target %s already exists, keeping original config", targetName)
		return nil
	}

	uc.entries[targetName] = uc.newEntry(cfg)
	return nil
}

// CheckAdmission decides whether a call to targetName may proceed.
// Open denies with a CircuitOpenError until open_timeout has elapsed; the
// first check after that claims the single half-open trial in the same
// atomic step, so exactly one of any number of concurrent checks is
// admitted as the probe.
func (uc *CircuitBreakerUsecase) CheckAdmission(ctx context.Context, targetName string) error {
	e := uc.entry(targetName)
	now := uc.clock.Now()

	e.mu.Lock()

	switch e.state {
	case model.StateOpen:
		elapsed := now.Sub(e.openedAt)
		if elapsed < e.cfg.OpenTimeout {
			retryAfter := e.cfg.OpenTimeout - elapsed
			e.mu.Unlock()

			uc.sink.OnAdmission(ctx, model.ComponentCircuitBreaker, model.DecisionDeny)
			return &CircuitOpenError{TargetName: targetName, State: model.StateOpen, RetryAfter: retryAfter}
		}

		// Open timeout elapsed: claim the trial and transition in one step
		e.state = model.StateHalfOpen
		e.halfOpenInFlight = true
		e.consecutiveSuccesses = 0
		e.lastTransitionAt = now
		e.totalRequests++
		e.mu.Unlock()

		uc.sink.OnStateTransition(ctx, targetName, model.StateOpen, model.StateHalfOpen)
		uc.sink.OnAdmission(ctx, model.ComponentCircuitBreaker, model.DecisionAllow)
		uc.logger.Infow("breaker half-open, trial admitted", "target", targetName)
		return nil

	case model.StateHalfOpen:
		if e.halfOpenInFlight {
			e.mu.Unlock()

			uc.sink.OnAdmission(ctx, model.ComponentCircuitBreaker, model.DecisionDeny)
			return &CircuitOpenError{TargetName: targetName, State: model.StateHalfOpen}
		}

		// Previous trial completed without closing the breaker; admit the next one
		e.halfOpenInFlight = true
		e.totalRequests++
		e.mu.Unlock()

		uc.sink.OnAdmission(ctx, model.ComponentCircuitBreaker, model.DecisionAllow)
		return nil

	default: // closed
		e.totalRequests++
		e.mu.Unlock()

		uc.sink.OnAdmission(ctx, model.ComponentCircuitBreaker, model.DecisionAllow)
		return nil
	}
}

// RecordOutcome feeds one attempt's classification back into the breaker.
// It never fails and never blocks on I/O; unknown targets lazily create a
// fresh closed breaker. Timeout outcomes count as failures.
func (uc *CircuitBreakerUsecase) RecordOutcome(ctx context.Context, outcome *model.CallOutcome) {
	if outcome == nil {
		return
	}

	e := uc.entry(outcome.TargetName)
	now := uc.clock.Now()
	success := outcome.Classification == model.ClassSuccess

	var (
		tripped   bool
		recovered bool
		from      model.BreakerState
		failures  int32
		trials    int32
		openFor   time.Duration
	)

	e.mu.Lock()

	if !success {
		e.totalFailures++
	}

	switch e.state {
	case model.StateClosed:
		if success {
			e.consecutiveFailures = 0
		} else {
			e.consecutiveFailures++
			if e.consecutiveFailures >= e.cfg.FailureThreshold {
				from = e.state
				e.state = model.StateOpen
				e.openedAt = now
				e.consecutiveSuccesses = 0
				e.lastTransitionAt = now
				tripped = true
				failures = e.consecutiveFailures
			}
		}

	case model.StateHalfOpen:
		e.halfOpenInFlight = false
		if success {
			e.consecutiveSuccesses++
			if e.consecutiveSuccesses >= e.cfg.SuccessThreshold {
				from = e.state
				e.state = model.StateClosed
				trials = e.consecutiveSuccesses
				openFor = now.Sub(e.openedAt)
				e.consecutiveFailures = 0
				e.consecutiveSuccesses = 0
				e.openedAt = time.Time{}
				e.lastTransitionAt = now
				recovered = true
			}
		} else {
			// A single failed trial reopens regardless of success_threshold
			from = e.state
			e.state = model.StateOpen
			e.openedAt = now
			e.consecutiveFailures++
			e.consecutiveSuccesses = 0
			e.lastTransitionAt = now
			tripped = true
			failures = e.consecutiveFailures
		}

	case model.StateOpen:
		// Outcome of an attempt admitted before the trip; counters stay put
	}

	e.mu.Unlock()

	if tripped {
		uc.sink.OnStateTransition(ctx, outcome.TargetName, from, model.StateOpen)
		uc.journal.LogBreakerTripped(ctx, outcome.TargetName, failures, now)
		uc.logger.Warnw("breaker tripped",
			"target", outcome.TargetName,
			"from_state", string(from),
			"consecutive_failures", failures)
	}
	if recovered {
		uc.sink.OnStateTransition(ctx, outcome.TargetName, from, model.StateClosed)
		uc.journal.LogBreakerRecovered(ctx, outcome.TargetName, trials, openFor)
		uc.logger.Infow("breaker recovered",
			"target", outcome.TargetName,
			"trial_successes", trials,
			"open_for", openFor.String())
	}

	uc.sink.OnOutcome(ctx, outcome.TargetName, outcome.Classification, outcome.Latency)
}

// GetStatus returns a snapshot of targetName's breaker, creating a fresh
// closed one if the target was never seen.
func (uc *CircuitBreakerUsecase) GetStatus(targetName string) *model.BreakerStatus {
	e := uc.entry(targetName)

	e.mu.Lock()
	defer e.mu.Unlock()
	return snapshotLocked(targetName, e)
}

// AllStatuses returns a snapshot of every breaker in the registry,
// keyed by target name.
func (uc *CircuitBreakerUsecase) AllStatuses() map[string]*model.BreakerStatus {
	uc.mu.RLock()
	names := make([]string, 0, len(uc.entries))
	entries := make([]*breakerEntry, 0, len(uc.entries))
	for name, e := range uc.entries {
		names = append(names, name)
		entries = append(entries, e)
	}
	uc.mu.RUnlock()

	statuses := make(map[string]*model.BreakerStatus, len(names))
	for i, e := range entries {
		e.mu.Lock()
		statuses[names[i]] = snapshotLocked(names[i], e)
		e.mu.Unlock()
	}
	return statuses
}

// Reset forces targetName's breaker back to closed with cleared counters.
// Intended for operators recovering from a known-fixed upstream.
func (uc *CircuitBreakerUsecase) Reset(ctx context.Context, targetName string) {
	e := uc.entry(targetName)
	now := uc.clock.Now()

	e.mu.Lock()
	from := e.state
	e.state = model.StateClosed
	e.consecutiveFailures = 0
	e.consecutiveSuccesses = 0
	e.halfOpenInFlight = false
	e.openedAt = time.Time{}
	e.lastTransitionAt = now
	e.mu.Unlock()

	if from != model.StateClosed {
		uc.sink.OnStateTransition(ctx, targetName, from, model.StateClosed)
	}
	uc.journal.LogBreakerReset(ctx, targetName, from)
	uc.logger.Infow("breaker reset", "target", targetName, "from_state", string(from))
}

// ResetAll resets every breaker in the registry.
func (uc *CircuitBreakerUsecase) ResetAll(ctx context.Context) {
	uc.mu.RLock()
	names := make([]string, 0, len(uc.entries))
	for name := range uc.entries {
		names = append(names, name)
	}
	uc.mu.RUnlock()

	for _, name := range names {
		uc.Reset(ctx, name)
	}
}

// entry returns the breaker for targetName, creating a fresh closed one
// under the registry lock if needed.
func (uc *CircuitBreakerUsecase) entry(targetName string) *breakerEntry {
	uc.mu.RLock()
	e, ok := uc.entries[targetName]
	uc.mu.RUnlock()
	if ok {
		return e
	}

	uc.mu.Lock()
	defer uc.mu.Unlock()

	if e, ok = uc.entries[targetName]; ok {
		return e
	}
	e = uc.newEntry(uc.defaults)
	uc.entries[targetName] = e
	return e
}

func (uc *CircuitBreakerUsecase) newEntry(cfg *BreakerConfig) *breakerEntry {
	return &breakerEntry{
		cfg:              cfg,
		state:            model.StateClosed,
		lastTransitionAt: uc.clock.Now(),
	}
}

// snapshotLocked copies the entry into a status value; e.mu must be held.
func snapshotLocked(targetName string, e *breakerEntry) *model.BreakerStatus {
	st := &model.BreakerStatus{
		TargetName:           targetName,
		State:                e.state,
		ConsecutiveFailures:  e.consecutiveFailures,
		ConsecutiveSuccesses: e.consecutiveSuccesses,
		HalfOpenInFlight:     e.halfOpenInFlight,
		TotalRequests:        e.totalRequests,
		TotalFailures:        e.totalFailures,
		LastTransitionAt:     e.lastTransitionAt,
	}
	if !e.openedAt.IsZero() {
		openedAt := e.openedAt
		st.OpenedAt = &openedAt
	}
	return st
}
