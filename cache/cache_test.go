package cache

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/anidbgo/anidb/internal/metrics"
)

type intCodec struct{}

func (intCodec) Encode(v int) ([]byte, error) { return []byte(strconv.Itoa(v)), nil }
func (intCodec) Decode(b []byte) (int, error) { return strconv.Atoi(string(b)) }

func newTestCache(t *testing.T, cfg Config) *Cache[int] {
	t.Helper()
	c, err := New[int](context.Background(), NewMemoryBackend(), intCodec{}, cfg, metrics.Noop())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestCachePutGetRoundTrip(t *testing.T) {
	c := newTestCache(t, Config{Name: "t"})
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, "k", 42))
	v, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 42, v)
}

func TestCacheGetMissing(t *testing.T) {
	c := newTestCache(t, Config{Name: "t"})
	_, ok, err := c.Get(context.Background(), "nope")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCacheTTLExpiry(t *testing.T) {
	c := newTestCache(t, Config{Name: "t", DefaultTTL: time.Minute})
	ctx := context.Background()
	require.NoError(t, c.Put(ctx, "k", 1))

	frozen := timeNow().Add(2 * time.Minute)
	timeNow = func() time.Time { return frozen }
	defer func() { timeNow = time.Now }()

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok, "entry should have expired")
}

func TestCacheLRUEvictionByEntryCount(t *testing.T) {
	c := newTestCache(t, Config{Name: "t", MaxEntries: 2})
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, "a", 1))
	require.NoError(t, c.Put(ctx, "b", 2))
	require.NoError(t, c.Put(ctx, "c", 3)) // should evict "a", the least recently used

	_, ok, err := c.Get(ctx, "a")
	require.NoError(t, err)
	require.False(t, ok)

	_, ok, err = c.Get(ctx, "b")
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = c.Get(ctx, "c")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestCacheLRUTouchOnGetExtendsLifetime(t *testing.T) {
	c := newTestCache(t, Config{Name: "t", MaxEntries: 2})
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, "a", 1))
	require.NoError(t, c.Put(ctx, "b", 2))
	_, _, _ = c.Get(ctx, "a") // touch "a", making "b" the LRU victim
	require.NoError(t, c.Put(ctx, "c", 3))

	_, ok, _ := c.Get(ctx, "a")
	require.True(t, ok)
	_, ok, _ = c.Get(ctx, "b")
	require.False(t, ok)
}

func TestCacheGetOrComputeExactlyOnceUnderConcurrency(t *testing.T) {
	c := newTestCache(t, Config{Name: "t"})
	ctx := context.Background()

	var calls int64
	compute := func(context.Context) (int, error) {
		atomic.AddInt64(&calls, 1)
		time.Sleep(20 * time.Millisecond)
		return 7, nil
	}

	var wg sync.WaitGroup
	results := make([]int, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.GetOrCompute(ctx, "K", compute)
			require.NoError(t, err)
			results[i] = v
		}(i)
	}
	wg.Wait()

	require.EqualValues(t, 1, atomic.LoadInt64(&calls))
	for _, v := range results {
		require.Equal(t, 7, v)
	}
}

func TestCacheGetOrComputePropagatesError(t *testing.T) {
	c := newTestCache(t, Config{Name: "t"})
	boom := fmt.Errorf("boom")
	_, err := c.GetOrCompute(context.Background(), "k", func(context.Context) (int, error) {
		return 0, boom
	})
	require.ErrorIs(t, err, boom)
}

func TestCacheInvalidateAndClear(t *testing.T) {
	c := newTestCache(t, Config{Name: "t"})
	ctx := context.Background()
	require.NoError(t, c.Put(ctx, "a", 1))
	require.NoError(t, c.Put(ctx, "b", 2))

	require.NoError(t, c.Invalidate(ctx, "a"))
	_, ok, _ := c.Get(ctx, "a")
	require.False(t, ok)

	require.NoError(t, c.Clear(ctx))
	_, ok, _ = c.Get(ctx, "b")
	require.False(t, ok)
	require.Equal(t, 0, c.Stats().Entries)
}

func TestCacheStatsTracksHitsAndMisses(t *testing.T) {
	c := newTestCache(t, Config{Name: "t"})
	ctx := context.Background()
	require.NoError(t, c.Put(ctx, "a", 1))

	_, _, _ = c.Get(ctx, "a")
	_, _, _ = c.Get(ctx, "missing")

	stats := c.Stats()
	require.EqualValues(t, 1, stats.Hits)
	require.EqualValues(t, 1, stats.Misses)
}
