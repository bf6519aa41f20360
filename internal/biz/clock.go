package biz

import (
	"context"
	"time"
)

// Clock abstracts the time source so breaker and limiter behavior is
// deterministic under test.
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock with the real time source.
type SystemClock struct{}

// Now returns the current wall-clock time.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// NewSystemClock creates the default Clock.
func NewSystemClock() Clock {
	return SystemClock{}
}

// Sleeper abstracts the backoff wait so retry sequences can be tested
// without real delays.
type Sleeper interface {
	// Sleep waits for d or until ctx is done, returning ctx.Err() when
	// the context wins.
	Sleep(ctx context.Context, d time.Duration) error
}

type systemSleeper struct{}

// NewSystemSleeper creates the default Sleeper backed by a timer.
func NewSystemSleeper() Sleeper {
	return systemSleeper{}
}

func (systemSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
