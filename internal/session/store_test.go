package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netdash/internal/config"
	"netdash/internal/dataset"
	"netdash/internal/dataset/datasettest"
	"netdash/internal/filter"
	"netdash/internal/shared/testutil"
)

// clock is a settable time source for the store
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestStore(t *testing.T, ttl time.Duration, max int) (*Store, *clock) {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	c := &clock{now: time.Date(2025, 8, 1, 9, 0, 0, 0, time.UTC)}
	s := NewStore(config.SessionConfig{IdleTTL: ttl, MaxSessions: max, JanitorInterval: time.Minute}, logger)
	s.now = c.Now
	return s, c
}

// =============================================================================
// Session
// =============================================================================

func TestSessionSlots(t *testing.T) {
	sess := newSession("s1", time.Now())
	avail := datasettest.Table(t, dataset.Availability, testutil.AvailabilityCSV)

	t.Run("put returns the replaced table", func(t *testing.T) {
		assert.Nil(t, sess.Put(avail))
		replacement := datasettest.Table(t, dataset.Availability, testutil.AvailabilityCSV)
		assert.Same(t, avail, sess.Put(replacement))

		got, ok := sess.Table(dataset.Availability)
		require.True(t, ok)
		assert.Same(t, replacement, got)
	})

	t.Run("tables is a snapshot", func(t *testing.T) {
		snap := sess.Tables()
		delete(snap, dataset.Availability)
		_, ok := sess.Table(dataset.Availability)
		assert.True(t, ok)
	})

	t.Run("remove", func(t *testing.T) {
		assert.True(t, sess.Remove(dataset.Availability))
		assert.False(t, sess.Remove(dataset.Availability))
		_, ok := sess.Table(dataset.Availability)
		assert.False(t, ok)
	})

	t.Run("clear resets the selection", func(t *testing.T) {
		sess.Put(avail)
		sess.SetSelection(filter.Selection{Year: filter.Values{"2025"}, Site: filter.Values{"A", "B"}})
		assert.Equal(t, 1, sess.Clear())
		assert.Empty(t, sess.Tables())
		assert.Equal(t, filter.AllSelection(), sess.Selection())
	})
}

func TestSessionTouchIsMonotonic(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	sess := newSession("s1", start)
	sess.Touch(start.Add(time.Hour))
	sess.Touch(start.Add(time.Minute))
	assert.Equal(t, start.Add(time.Hour), sess.LastSeen())
}

func TestSessionConcurrentAccess(t *testing.T) {
	sess := newSession("s1", time.Now())
	tbl := datasettest.Table(t, dataset.Quality, testutil.QualityCSV)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				sess.Put(tbl)
			} else {
				sess.Tables()
				sess.Selection()
			}
		}(i)
	}
	wg.Wait()

	got, ok := sess.Table(dataset.Quality)
	require.True(t, ok)
	assert.Same(t, tbl, got)
}

// =============================================================================
// Store
// =============================================================================

func TestStoreLifecycle(t *testing.T) {
	s, c := newTestStore(t, time.Hour, 10)

	sess := s.Create()
	require.NotEmpty(t, sess.ID)
	assert.Equal(t, 1, s.Len())

	got, ok := s.Get(sess.ID)
	require.True(t, ok)
	assert.Same(t, sess, got)

	_, ok = s.Get("missing")
	assert.False(t, ok)

	c.Advance(30 * time.Minute)
	_, ok = s.Get(sess.ID)
	require.True(t, ok, "a get refreshes the idle timer")
	assert.Equal(t, c.Now(), sess.LastSeen())

	c.Advance(61 * time.Minute)
	_, ok = s.Get(sess.ID)
	assert.False(t, ok, "idle sessions expire")
	assert.Equal(t, 0, s.Len())

	stats := s.Stats()
	assert.Equal(t, int64(1), stats.Created)
	assert.Equal(t, int64(1), stats.Expired)
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(2), stats.Misses)
	assert.Equal(t, 3600.0, stats.TTLSeconds)
}

func TestStoreDelete(t *testing.T) {
	s, _ := newTestStore(t, time.Hour, 10)
	sess := s.Create()

	assert.True(t, s.Delete(sess.ID))
	assert.False(t, s.Delete(sess.ID))
	_, ok := s.Get(sess.ID)
	assert.False(t, ok)
}

func TestStoreEvictsLeastRecentlySeen(t *testing.T) {
	s, c := newTestStore(t, time.Hour, 2)

	first := s.Create()
	c.Advance(time.Minute)
	second := s.Create()
	c.Advance(time.Minute)
	_, _ = s.Get(first.ID)
	c.Advance(time.Minute)

	third := s.Create()
	assert.Equal(t, 2, s.Len())

	_, ok := s.Get(second.ID)
	assert.False(t, ok, "second was seen least recently")
	_, ok = s.Get(first.ID)
	assert.True(t, ok)
	_, ok = s.Get(third.ID)
	assert.True(t, ok)
	assert.Equal(t, int64(1), s.Stats().Evicted)
}

func TestStoreSweep(t *testing.T) {
	s, c := newTestStore(t, 10*time.Minute, 10)
	var delta int64
	s.OnChange(func(d int64) { delta += d })

	old := s.Create()
	c.Advance(8 * time.Minute)
	fresh := s.Create()
	assert.Equal(t, int64(2), delta)

	c.Advance(5 * time.Minute)
	assert.Equal(t, 1, s.Sweep(c.Now()))
	assert.Equal(t, int64(1), delta)

	_, ok := s.Get(old.ID)
	assert.False(t, ok)
	_, ok = s.Get(fresh.ID)
	assert.True(t, ok)
}

func TestStoreRunStopsWithContext(t *testing.T) {
	s, _ := newTestStore(t, time.Hour, 10)
	s.interval = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}

func TestStoreRunRemovesExpired(t *testing.T) {
	s, c := newTestStore(t, time.Minute, 10)
	s.interval = 5 * time.Millisecond
	s.Create()
	c.Advance(2 * time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Run(ctx) }()

	assert.Eventually(t, func() bool { return s.Len() == 0 }, time.Second, 5*time.Millisecond)
}
