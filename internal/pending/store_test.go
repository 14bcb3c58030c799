package pending

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1700000000, 0)}
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

func TestPutGetRemove(t *testing.T) {
	clk := newFakeClock()
	store := NewStore(clk, nil)
	userID := uuid.New()

	_, ok := store.Get(userID)
	assert.False(t, ok)

	store.Put(userID, "SECRET234", []string{"ABCD-2345", "EFGH-6789"})

	entry, ok := store.Get(userID)
	require.True(t, ok)
	assert.Equal(t, userID, entry.UserID)
	assert.Equal(t, "SECRET234", entry.Secret)
	assert.Len(t, entry.BackupCodes, 2)
	assert.Equal(t, clk.Now().Add(SetupTTL), entry.ExpiresAt)

	store.Remove(userID)
	_, ok = store.Get(userID)
	assert.False(t, ok)
}

func TestPut_ReplacesExistingEntry(t *testing.T) {
	clk := newFakeClock()
	store := NewStore(clk, nil)
	userID := uuid.New()

	store.Put(userID, "FIRST", nil)
	store.Put(userID, "SECOND", nil)

	entry, ok := store.Get(userID)
	require.True(t, ok)
	assert.Equal(t, "SECOND", entry.Secret)
	assert.Equal(t, 1, store.Len())
}

func TestGet_LazyExpiry(t *testing.T) {
	clk := newFakeClock()
	store := NewStore(clk, nil)
	userID := uuid.New()

	store.Put(userID, "SECRET234", nil)

	clk.Advance(SetupTTL - time.Second)
	_, ok := store.Get(userID)
	assert.True(t, ok, "entry should survive within the TTL")

	clk.Advance(2 * time.Second)
	_, ok = store.Get(userID)
	assert.False(t, ok, "entry should be gone past the TTL")

	// The stale entry was removed by the read, not just hidden.
	assert.Equal(t, 0, store.Len())
}

func TestSweep_PurgesOnlyExpired(t *testing.T) {
	clk := newFakeClock()
	store := NewStore(clk, nil)

	stale := uuid.New()
	fresh := uuid.New()

	store.Put(stale, "OLD", nil)
	clk.Advance(SetupTTL + time.Minute)
	store.Put(fresh, "NEW", nil)

	store.sweep()

	assert.Equal(t, 1, store.Len())
	_, ok := store.Get(fresh)
	assert.True(t, ok)
	_, ok = store.Get(stale)
	assert.False(t, ok)
}

func TestStartStop(t *testing.T) {
	clk := newFakeClock()
	store := NewStore(clk, nil)
	store.sweepEvery = 5 * time.Millisecond

	userID := uuid.New()
	store.Put(userID, "SECRET234", nil)
	clk.Advance(SetupTTL + time.Minute)

	store.Start()
	assert.Eventually(t, func() bool { return store.Len() == 0 }, time.Second, 5*time.Millisecond)
	store.Stop()
}

func TestConcurrentAccess(t *testing.T) {
	clk := newFakeClock()
	store := NewStore(clk, nil)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			userID := uuid.New()
			for j := 0; j < 100; j++ {
				store.Put(userID, "SECRET234", nil)
				store.Get(userID)
				store.Remove(userID)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, store.Len())
}
