package idempotency

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock lets tests advance time without sleeping.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestMemoryStoreInboundWindow(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryStore(WithClock(clock.Now))
	ctx := context.Background()

	ok, err := store.CheckAndMarkInbound(ctx, "fp1")
	require.NoError(t, err)
	assert.True(t, ok, "first sighting must pass")

	ok, err = store.CheckAndMarkInbound(ctx, "fp1")
	require.NoError(t, err)
	assert.False(t, ok, "duplicate inside the window must be rejected")

	clock.Advance(600 * time.Millisecond)
	ok, err = store.CheckAndMarkInbound(ctx, "fp1")
	require.NoError(t, err)
	assert.True(t, ok, "same fingerprint after the window must pass")
}

func TestMemoryStoreOutboundWindow(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryStore(WithClock(clock.Now))
	ctx := context.Background()

	ok, _ := store.CheckAndMarkOutbound(ctx, "fp1")
	assert.True(t, ok)

	clock.Advance(9 * time.Second)
	ok, _ = store.CheckAndMarkOutbound(ctx, "fp1")
	assert.False(t, ok, "9s is inside the 10s window")

	clock.Advance(2 * time.Second)
	ok, _ = store.CheckAndMarkOutbound(ctx, "fp1")
	assert.True(t, ok, "11s after first send the record has expired")
}

func TestMemoryStoreIndependentFingerprints(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	ok, _ := store.CheckAndMarkOutbound(ctx, "fp1")
	assert.True(t, ok)
	ok, _ = store.CheckAndMarkOutbound(ctx, "fp2")
	assert.True(t, ok, "a different fingerprint must not be blocked")
}

func TestMemoryStoreRetentionEviction(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryStore(WithClock(clock.Now))
	ctx := context.Background()

	for _, fp := range []string{"a", "b", "c"} {
		_, err := store.CheckAndMarkOutbound(ctx, fp)
		require.NoError(t, err)
	}

	clock.Advance(61 * time.Second)
	// Any call evicts expired entries from both maps.
	_, err := store.CheckAndMarkInbound(ctx, "d")
	require.NoError(t, err)

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Empty(t, store.outbound, "entries older than retention must be evicted")
	assert.Len(t, store.inbound, 1)
}

func TestMemoryStoreConcurrentMark(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	const goroutines = 32
	var passed int64
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := store.CheckAndMarkInbound(ctx, "same")
			if err == nil && ok {
				mu.Lock()
				passed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(1), passed, "exactly one concurrent caller may win")
}
