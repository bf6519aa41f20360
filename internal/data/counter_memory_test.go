package data

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMemoryStore(t *testing.T, size int) *MemoryCounterStore {
	logger := log.NewStdLogger(os.Stdout)
	store, err := NewMemoryCounterStore(size, logger)
	require.NoError(t, err)
	return store
}

var testWindowBase = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// Test CheckAndIncrement - first hit opens the window
func TestMemoryCounterFirstHit(t *testing.T) {
	store := newTestMemoryStore(t, 0)

	count, retryAfter, err := store.CheckAndIncrement(context.Background(), "reports:generate", 5, time.Minute, testWindowBase)
	assert.NoError(t, err)
	assert.Equal(t, int32(1), count)
	assert.Equal(t, time.Minute, retryAfter)
}

// Test CheckAndIncrement - remaining time shrinks as the window ages
func TestMemoryCounterSubsequentHits(t *testing.T) {
	store := newTestMemoryStore(t, 0)
	ctx := context.Background()

	_, _, err := store.CheckAndIncrement(ctx, "reports:generate", 5, time.Minute, testWindowBase)
	require.NoError(t, err)

	count, retryAfter, err := store.CheckAndIncrement(ctx, "reports:generate", 5, time.Minute, testWindowBase.Add(10*time.Second))
	assert.NoError(t, err)
	assert.Equal(t, int32(2), count)
	assert.Equal(t, 50*time.Second, retryAfter)

	count, retryAfter, err = store.CheckAndIncrement(ctx, "reports:generate", 5, time.Minute, testWindowBase.Add(45*time.Second))
	assert.NoError(t, err)
	assert.Equal(t, int32(3), count)
	assert.Equal(t, 15*time.Second, retryAfter)
}

// Test CheckAndIncrement - counting continues past the limit, no rollback
func TestMemoryCounterCountsPastLimit(t *testing.T) {
	store := newTestMemoryStore(t, 0)
	ctx := context.Background()

	var last int32
	for i := 0; i < 7; i++ {
		count, _, err := store.CheckAndIncrement(ctx, "reports:generate", 5, time.Minute, testWindowBase)
		require.NoError(t, err)
		last = count
	}
	assert.Equal(t, int32(7), last)
}

// Test CheckAndIncrement - an elapsed period starts a fresh window
func TestMemoryCounterWindowReset(t *testing.T) {
	store := newTestMemoryStore(t, 0)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _, err := store.CheckAndIncrement(ctx, "reports:generate", 5, time.Minute, testWindowBase)
		require.NoError(t, err)
	}

	count, retryAfter, err := store.CheckAndIncrement(ctx, "reports:generate", 5, time.Minute, testWindowBase.Add(time.Minute))
	assert.NoError(t, err)
	assert.Equal(t, int32(1), count)
	assert.Equal(t, time.Minute, retryAfter)
}

// Test CheckAndIncrement - keys hold independent windows
func TestMemoryCounterIndependentKeys(t *testing.T) {
	store := newTestMemoryStore(t, 0)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _, err := store.CheckAndIncrement(ctx, "search", 5, time.Minute, testWindowBase)
		require.NoError(t, err)
	}

	count, _, err := store.CheckAndIncrement(ctx, "reports:generate", 5, time.Minute, testWindowBase)
	assert.NoError(t, err)
	assert.Equal(t, int32(1), count)
}

// Test Get - live window reports without charging it
func TestMemoryCounterGet(t *testing.T) {
	store := newTestMemoryStore(t, 0)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, _, err := store.CheckAndIncrement(ctx, "reports:generate", 5, time.Minute, testWindowBase)
		require.NoError(t, err)
	}

	store.nowFn = func() time.Time { return testWindowBase.Add(30 * time.Second) }

	count, remaining, err := store.Get(ctx, "reports:generate")
	assert.NoError(t, err)
	assert.Equal(t, int32(2), count)
	assert.Equal(t, 30*time.Second, remaining)

	// Reading must not advance the count
	count, _, err = store.Get(ctx, "reports:generate")
	assert.NoError(t, err)
	assert.Equal(t, int32(2), count)
}

// Test Get - expired windows are evicted lazily on read
func TestMemoryCounterGetExpired(t *testing.T) {
	store := newTestMemoryStore(t, 0)
	ctx := context.Background()

	_, _, err := store.CheckAndIncrement(ctx, "reports:generate", 5, time.Minute, testWindowBase)
	require.NoError(t, err)

	store.nowFn = func() time.Time { return testWindowBase.Add(2 * time.Minute) }

	count, remaining, err := store.Get(ctx, "reports:generate")
	assert.NoError(t, err)
	assert.Equal(t, int32(0), count)
	assert.Equal(t, time.Duration(0), remaining)
	assert.Equal(t, 0, store.Len())
}

// Test Get - unknown key means no live window
func TestMemoryCounterGetNotExists(t *testing.T) {
	store := newTestMemoryStore(t, 0)

	count, remaining, err := store.Get(context.Background(), "reports:generate")
	assert.NoError(t, err)
	assert.Equal(t, int32(0), count)
	assert.Equal(t, time.Duration(0), remaining)
}

// Test capacity - the LRU bound evicts the coldest window, which simply
// restarts on its next hit
func TestMemoryCounterEvictsBeyondCapacity(t *testing.T) {
	store := newTestMemoryStore(t, 2)
	ctx := context.Background()

	for _, key := range []string{"a", "b", "c"} {
		_, _, err := store.CheckAndIncrement(ctx, key, 5, time.Minute, testWindowBase)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, store.Len())

	// "a" was evicted, so it opens a fresh window instead of continuing
	count, _, err := store.CheckAndIncrement(ctx, "a", 5, time.Minute, testWindowBase.Add(time.Second))
	assert.NoError(t, err)
	assert.Equal(t, int32(1), count)
}

// Test PurgeExpired - sweeps only the windows whose period elapsed
func TestMemoryCounterPurgeExpired(t *testing.T) {
	store := newTestMemoryStore(t, 0)
	ctx := context.Background()

	for _, key := range []string{"a", "b"} {
		_, _, err := store.CheckAndIncrement(ctx, key, 5, time.Minute, testWindowBase)
		require.NoError(t, err)
	}
	// "c" starts later, so it survives the sweep
	_, _, err := store.CheckAndIncrement(ctx, "c", 5, time.Minute, testWindowBase.Add(50*time.Second))
	require.NoError(t, err)

	purged := store.PurgeExpired(testWindowBase.Add(time.Minute))
	assert.Equal(t, 2, purged)
	assert.Equal(t, 1, store.Len())

	count, _, err := store.Get(ctx, "a")
	assert.NoError(t, err)
	assert.Equal(t, int32(0), count)
}

// Test PurgeExpired - nothing to do on live windows
func TestMemoryCounterPurgeKeepsLiveWindows(t *testing.T) {
	store := newTestMemoryStore(t, 0)

	_, _, err := store.CheckAndIncrement(context.Background(), "a", 5, time.Minute, testWindowBase)
	require.NoError(t, err)

	assert.Equal(t, 0, store.PurgeExpired(testWindowBase.Add(30*time.Second)))
	assert.Equal(t, 1, store.Len())
}
