package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
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

func newTestCache[T any](size int, ttl time.Duration) (*LRUCache[T], *fakeClock) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[T](size, ttl)
	c.now = clock.Now
	return c, clock
}

func TestLRUCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c, _ := newTestCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	_, _ = c.Get("a")
	c.Set("c", 3)

	_, ok := c.Get("b")
	assert.False(t, ok, "b should have been evicted")
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, 2, c.Size())
}

func TestLRUCacheExpiry(t *testing.T) {
	c, clock := newTestCache[string](10, time.Minute)
	c.Set("k", "v")
	c.Set("other", "v")

	clock.Advance(30 * time.Second)
	_, ok := c.Get("k")
	assert.True(t, ok)

	clock.Advance(31 * time.Second)
	_, ok = c.Get("k")
	assert.False(t, ok)

	assert.Equal(t, 1, c.CleanExpired())
	assert.Equal(t, 0, c.Size())
}

func TestLRUCacheDeletePrefix(t *testing.T) {
	c, _ := newTestCache[int](10, time.Minute)
	c.Set("user:1:dashboard:2025-03", 1)
	c.Set("user:1:dashboard:2025-04", 2)
	c.Set("user:2:dashboard:2025-03", 3)

	assert.Equal(t, 2, c.DeletePrefix("user:1:"))
	_, ok := c.Get("user:2:dashboard:2025-03")
	assert.True(t, ok)
}

func TestLRUCacheGetOrLoad(t *testing.T) {
	c, _ := newTestCache[int](10, time.Minute)
	var calls int32

	load := func(context.Context) (int, error) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(10 * time.Millisecond)
		return 42, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := c.GetOrLoad(context.Background(), "answer", load)
			assert.NoError(t, err)
			assert.Equal(t, 42, v)
		}()
	}
	wg.Wait()

	v, err := c.GetOrLoad(context.Background(), "answer", load)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.LessOrEqual(t, atomic.LoadInt32(&calls), int32(8))
	assert.GreaterOrEqual(t, atomic.LoadInt32(&calls), int32(1))

	before := atomic.LoadInt32(&calls)
	_, _ = c.GetOrLoad(context.Background(), "answer", load)
	assert.Equal(t, before, atomic.LoadInt32(&calls), "cached value should not reload")
}

func TestLRUCacheGetOrLoadDoesNotCacheErrors(t *testing.T) {
	c, _ := newTestCache[int](10, time.Minute)
	boom := errors.New("boom")

	_, err := c.GetOrLoad(context.Background(), "k", func(context.Context) (int, error) { return 0, boom })
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Size())
}

func TestManagerCleanNow(t *testing.T) {
	c, clock := newTestCache[int](10, time.Second)
	c.Set("a", 1)
	m := NewManager(nil)
	m.Register(c)

	clock.Advance(2 * time.Second)
	assert.Equal(t, 1, m.CleanNow())

	m.StartCleanup(time.Hour)
	m.Stop()
	m.Stop()
}
