package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache() *Cache {
	return New(zerolog.Nop())
}

func TestGetOrFetchStoresValue(t *testing.T) {
	c := newTestCache()

	calls := 0
	fetch := func(ctx context.Context) (any, error) {
		calls++
		return 42, nil
	}

	v, err := c.GetOrFetch(context.Background(), "quote:AAPL", 10*time.Second, fetch)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, 1, calls)

	// Second call is served from cache.
	v, err = c.GetOrFetch(context.Background(), "quote:AAPL", 10*time.Second, fetch)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, 1, calls)
}

func TestGetOrFetchExpiry(t *testing.T) {
	c := newTestCache()

	calls := 0
	fetch := func(ctx context.Context) (any, error) {
		calls++
		return calls, nil
	}

	v, err := c.GetOrFetch(context.Background(), "k", 20*time.Millisecond, fetch)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	time.Sleep(30 * time.Millisecond)

	v, err = c.GetOrFetch(context.Background(), "k", 20*time.Millisecond, fetch)
	require.NoError(t, err)
	assert.Equal(t, 2, v, "expired entry must behave as a miss")
}

func TestGetOrFetchCoalescesConcurrentCallers(t *testing.T) {
	c := newTestCache()

	var calls int32
	slowFetch := func(ctx context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(50 * time.Millisecond)
		return 42, nil
	}

	const n = 10
	results := make([]any, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.GetOrFetch(context.Background(), "q:AAPL", 10*time.Second, slowFetch)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "exactly one fetch for coalesced callers")
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, 42, results[i])
	}
}

func TestGetOrFetchDifferentKeysNotCoalesced(t *testing.T) {
	c := newTestCache()

	var calls int32
	fetch := func(ctx context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(20 * time.Millisecond)
		return "v", nil
	}

	var wg sync.WaitGroup
	for _, key := range []string{"a", "b", "c"} {
		wg.Add(1)
		go func(key string) {
			defer wg.Done()
			_, err := c.GetOrFetch(context.Background(), key, time.Second, fetch)
			assert.NoError(t, err)
		}(key)
	}
	wg.Wait()

	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestGetOrFetchErrorDoesNotPopulate(t *testing.T) {
	c := newTestCache()

	wantErr := errors.New("provider blew up")
	_, err := c.GetOrFetch(context.Background(), "q:X", 10*time.Second, func(ctx context.Context) (any, error) {
		return nil, wantErr
	})
	require.ErrorIs(t, err, wantErr)

	_, ok := c.Get("q:X")
	assert.False(t, ok, "failed fetch must leave the key empty")
	assert.Equal(t, 0, c.Size())
}

func TestGetOrFetchErrorSeenByAllCallers(t *testing.T) {
	c := newTestCache()

	wantErr := errors.New("upstream down")
	var calls int32
	fetch := func(ctx context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(10 * time.Millisecond)
		return nil, wantErr
	}

	const n = 5
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.GetOrFetch(context.Background(), "k", time.Second, fetch)
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		assert.ErrorIs(t, errs[i], wantErr)
	}
	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestGetOrFetchCancelledWaiter(t *testing.T) {
	c := newTestCache()

	started := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_, _ = c.GetOrFetch(context.Background(), "k", time.Second, func(ctx context.Context) (any, error) {
			close(started)
			<-release
			return 1, nil
		})
	}()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := c.GetOrFetch(ctx, "k", time.Second, func(ctx context.Context) (any, error) {
			return 2, nil
		})
		done <- err
	}()

	cancel()
	err := <-done
	assert.ErrorIs(t, err, context.Canceled)

	close(release)
}

func TestGetExpiredReturnsMiss(t *testing.T) {
	c := newTestCache()

	c.Set("k", "v", 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestInvalidate(t *testing.T) {
	c := newTestCache()

	c.Set("k", 1, time.Minute)
	assert.True(t, c.Invalidate("k"))
	assert.False(t, c.Invalidate("k"), "second invalidate finds nothing")
}

func TestInvalidatePrefix(t *testing.T) {
	c := newTestCache()

	c.Set("quote:AAPL", 1, time.Minute)
	c.Set("quote:MSFT", 2, time.Minute)
	c.Set("iv:AAPL", 3, time.Minute)

	removed := c.InvalidatePrefix("quote:")
	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, c.Size())
}

func TestClear(t *testing.T) {
	c := newTestCache()

	c.Set("a", 1, time.Minute)
	c.Set("b", 2, time.Minute)
	c.Clear()
	assert.Equal(t, 0, c.Size())
}

func TestStats(t *testing.T) {
	c := newTestCache()

	c.Set("fresh", 1, time.Minute)
	c.Set("stale", 2, 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	stats := c.Stats()
	assert.Equal(t, 2, stats.TotalEntries)
	assert.Equal(t, 1, stats.ActiveEntries)
	assert.Equal(t, 1, stats.ExpiredEntries)
}

func TestSweepRemovesOnlyExpired(t *testing.T) {
	c := newTestCache()

	c.Set("fresh", 1, time.Minute)
	c.Set("stale1", 2, 5*time.Millisecond)
	c.Set("stale2", 3, 5*time.Millisecond)
	time.Sleep(15 * time.Millisecond)

	removed := c.Sweep()
	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, c.Size())

	_, ok := c.Get("fresh")
	assert.True(t, ok)
}
