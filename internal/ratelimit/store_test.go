package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func TestMemoryStore_CountsWithinWindow(t *testing.T) {
	clk := &clock{t: time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)}
	s := NewMemoryStore().WithClock(clk.Now)
	ctx := context.Background()

	for i := 1; i <= 6; i++ {
		h, err := s.Hit(ctx, "login:10.0.0.1", 15*time.Minute)
		require.NoError(t, err)
		assert.Equal(t, i, h.Count)
		assert.Equal(t, clk.t.Add(15*time.Minute), h.ResetAt)
	}

	other, err := s.Hit(ctx, "login:10.0.0.2", 15*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, other.Count)
}

func TestMemoryStore_WindowResets(t *testing.T) {
	clk := &clock{t: time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)}
	s := NewMemoryStore().WithClock(clk.Now)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, _ = s.Hit(ctx, "k", 15*time.Minute)
	}
	clk.Advance(15 * time.Minute)

	h, err := s.Hit(ctx, "k", 15*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, h.Count)
}

func TestMemoryStore_ConcurrentHitsAreCounted(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Hit(ctx, "k", time.Minute)
		}()
	}
	wg.Wait()

	h, err := s.Hit(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 51, h.Count)
}

func TestMemoryStore_SweepDropsEndedWindows(t *testing.T) {
	clk := &clock{t: time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)}
	s := NewMemoryStore().WithClock(clk.Now)
	ctx := context.Background()

	_, _ = s.Hit(ctx, "a", time.Minute)
	_, _ = s.Hit(ctx, "b", time.Hour)
	assert.Equal(t, 2, s.Len())

	clk.Advance(2 * time.Minute)
	assert.Equal(t, 1, s.Sweep())
	assert.Equal(t, 1, s.Len())
}

func TestRedisStore_CountsAndExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	s := NewRedisStore(rdb, "test")
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		h, err := s.Hit(ctx, "login:1.2.3.4", 15*time.Minute)
		require.NoError(t, err)
		assert.Equal(t, i, h.Count)
	}
	assert.True(t, mr.Exists("test:login:1.2.3.4"))
	assert.InDelta(t, (15 * time.Minute).Seconds(), mr.TTL("test:login:1.2.3.4").Seconds(), 1)

	mr.FastForward(15 * time.Minute)
	h, err := s.Hit(ctx, "login:1.2.3.4", 15*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, h.Count)
}
