package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newLocal(t *testing.T) (*Limiter, *fakeClock) {
	t.Helper()
	l := New(context.Background(), Options{}, nil)
	t.Cleanup(func() { l.Close() })
	clock := &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	l.now = clock.Now
	return l, clock
}

var writes = Rule{Name: "write", Limit: 3, Window: time.Minute}

func TestLocalWindowLimits(t *testing.T) {
	l, clock := newLocal(t)
	ctx := context.Background()

	assert.True(t, l.IsFallback())
	assert.False(t, l.Enabled())

	for i := 0; i < 3; i++ {
		d := l.Allow(ctx, writes, "10.0.0.1")
		require.True(t, d.Allowed, "request %d", i+1)
		assert.Equal(t, 2-i, d.Remaining)
		assert.Equal(t, BackendLocal, d.Backend)
	}

	clock.Advance(20 * time.Second)
	d := l.Allow(ctx, writes, "10.0.0.1")
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
	assert.Equal(t, 40*time.Second, d.RetryAfter)

	clock.Advance(40 * time.Second)
	d = l.Allow(ctx, writes, "10.0.0.1")
	assert.True(t, d.Allowed, "new window")
}

func TestKeysAndRulesAreIndependent(t *testing.T) {
	l, _ := newLocal(t)
	ctx := context.Background()
	reads := Rule{Name: "read", Limit: 1, Window: time.Minute}

	assert.True(t, l.Allow(ctx, reads, "a").Allowed)
	assert.False(t, l.Allow(ctx, reads, "a").Allowed)
	assert.True(t, l.Allow(ctx, reads, "b").Allowed)
	assert.True(t, l.Allow(ctx, writes, "a").Allowed)
}

func TestConcurrentAllowNeverExceedsLimit(t *testing.T) {
	l, _ := newLocal(t)
	rule := Rule{Name: "burst", Limit: 25, Window: time.Minute}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Allow(context.Background(), rule, "ip").Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 25, allowed)
}

func TestSweepDropsExpiredWindows(t *testing.T) {
	l, clock := newLocal(t)
	l.Allow(context.Background(), writes, "x")

	clock.Advance(30 * time.Second)
	l.sweep()
	assert.Len(t, l.windows, 1)

	clock.Advance(31 * time.Second)
	l.sweep()
	assert.Empty(t, l.windows)
}

func TestUnreachableRedisStartsInFallback(t *testing.T) {
	l := New(context.Background(), Options{Addr: "127.0.0.1:1", DialTimeout: 200 * time.Millisecond}, nil)
	defer l.Close()

	assert.True(t, l.Enabled())
	assert.True(t, l.IsFallback())
	assert.Error(t, l.Ping(context.Background()))

	d := l.Allow(context.Background(), writes, "ip")
	assert.True(t, d.Allowed)
	assert.Equal(t, BackendLocal, d.Backend)
}

func TestCloseIsIdempotent(t *testing.T) {
	l := New(context.Background(), Options{}, nil)
	require.NoError(t, l.Close())
	require.NoError(t, l.Close())
}

func TestConcurrentCloseIsSafe(t *testing.T) {
	l := New(context.Background(), Options{}, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, l.Close())
		}()
	}
	wg.Wait()
}

func newRedis(t *testing.T) (*Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	l := New(context.Background(), Options{
		Addr:          mr.Addr(),
		DialTimeout:   200 * time.Millisecond,
		ProbeInterval: 20 * time.Millisecond,
	}, nil)
	t.Cleanup(func() { l.Close() })
	return l, mr
}

func TestRedisWindowLimits(t *testing.T) {
	l, mr := newRedis(t)
	ctx := context.Background()

	require.True(t, l.Enabled())
	require.False(t, l.IsFallback())
	require.NoError(t, l.Ping(ctx))

	for i := 0; i < 3; i++ {
		d := l.Allow(ctx, writes, "10.0.0.1")
		require.True(t, d.Allowed, "request %d", i+1)
		assert.Equal(t, 2-i, d.Remaining)
		assert.Equal(t, BackendRedis, d.Backend)
	}

	key := "collectflow:ratelimit:write:10.0.0.1"
	got, err := mr.Get(key)
	require.NoError(t, err)
	assert.Equal(t, "3", got)
	assert.Equal(t, time.Minute, mr.TTL(key))

	mr.FastForward(20 * time.Second)
	d := l.Allow(ctx, writes, "10.0.0.1")
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
	assert.Equal(t, 40*time.Second, d.RetryAfter)
	assert.Equal(t, BackendRedis, d.Backend)

	assert.True(t, l.Allow(ctx, writes, "10.0.0.2").Allowed, "other clients keep their own window")

	mr.FastForward(41 * time.Second)
	d = l.Allow(ctx, writes, "10.0.0.1")
	assert.True(t, d.Allowed, "window expired")
	assert.Equal(t, 2, d.Remaining)
}

func TestRedisWindowIsSharedBetweenLimiters(t *testing.T) {
	a, mr := newRedis(t)
	b := New(context.Background(), Options{Addr: mr.Addr()}, nil)
	defer b.Close()
	ctx := context.Background()
	rule := Rule{Name: "shared", Limit: 2, Window: time.Minute}

	assert.True(t, a.Allow(ctx, rule, "ip").Allowed)
	assert.True(t, b.Allow(ctx, rule, "ip").Allowed)
	assert.False(t, a.Allow(ctx, rule, "ip").Allowed)
	assert.False(t, b.Allow(ctx, rule, "ip").Allowed)
}

func TestRedisOutageFallsBackAndRecovers(t *testing.T) {
	l, mr := newRedis(t)
	ctx := context.Background()
	rule := Rule{Name: "outage", Limit: 100, Window: time.Minute}

	require.Equal(t, BackendRedis, l.Allow(ctx, rule, "ip").Backend)

	mr.Close()
	d := l.Allow(ctx, rule, "ip")
	assert.True(t, d.Allowed)
	assert.Equal(t, BackendLocal, d.Backend)
	assert.True(t, l.IsFallback())
	assert.Equal(t, BackendLocal, l.Allow(ctx, rule, "ip").Backend)

	require.NoError(t, mr.Restart())
	require.Eventually(t, func() bool { return !l.IsFallback() }, 5*time.Second, 10*time.Millisecond)

	l.mu.Lock()
	assert.Empty(t, l.windows, "local counters are discarded on return to redis")
	l.mu.Unlock()
	assert.Equal(t, BackendRedis, l.Allow(ctx, rule, "ip").Backend)
}

func TestCancelledRequestDoesNotEnterFallback(t *testing.T) {
	l, _ := newRedis(t)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	d := l.Allow(cancelled, writes, "gone")
	assert.True(t, d.Allowed)
	assert.Equal(t, BackendLocal, d.Backend)
	assert.False(t, l.IsFallback())

	d = l.Allow(context.Background(), writes, "other")
	assert.Equal(t, BackendRedis, d.Backend)
}
