package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/anidbgo/anidb/anerr"
	"github.com/anidbgo/anidb/internal/metrics"
)

// Codec converts between a typed value and the bytes a Backend stores.
// Kept separate from Backend so the same storage layer can back caches
// of different value types (hash artifacts, AniDB lookup results, ...).
type Codec[V any] interface {
	Encode(v V) ([]byte, error)
	Decode(b []byte) (V, error)
}

// Config bounds a Cache instance's footprint, per spec §4.8's
// "TTL+LRU eviction": either limit may be zero to disable it.
type Config struct {
	MaxEntries int
	MaxBytes   int64
	DefaultTTL time.Duration
	SweepEvery time.Duration // 0 disables the eager background sweep
	Name       string        // metrics label, e.g. "hash", "anidb"
}

// Stats is a point-in-time snapshot of a Cache's size and hit ratio.
type Stats struct {
	Entries int
	Bytes   int64
	Hits    int64
	Misses  int64
}

// Cache is the generic fingerprint-to-artifact cache from spec §4.8:
// at-most-once concurrent compute via singleflight, TTL lazy+eager
// expiry, and LRU eviction bounded by entry count and/or total bytes.
// Grounded on the teacher's common/LFUCache.go for the overall shape
// (mutex-guarded index plus an underlying store), generalized here to
// a generic value type since this module caches several distinct
// artifact shapes (hash digests, AniDB FILE responses, MyList rows)
// through the same mechanism.
type Cache[V any] struct {
	backend Backend
	codec   Codec[V]
	index   *lruIndex
	sf      singleflight.Group
	cfg     Config
	metrics *metrics.Registry

	mu     sync.Mutex
	hits   int64
	misses int64

	closeOnce sync.Once
	stopSweep chan struct{}
}

// New constructs a Cache over backend, rebuilding its LRU index from
// whatever entries the backend already holds (e.g. reopening a leveldb
// directory from a previous run).
func New[V any](ctx context.Context, backend Backend, codec Codec[V], cfg Config, reg *metrics.Registry) (*Cache[V], error) {
	if reg == nil {
		reg = metrics.Noop()
	}
	c := &Cache[V]{
		backend:   backend,
		codec:     codec,
		index:     newLRUIndex(),
		cfg:       cfg,
		metrics:   reg,
		stopSweep: make(chan struct{}),
	}

	keys, err := backend.Keys(ctx)
	if err != nil {
		return nil, err
	}
	for _, k := range keys {
		rec, ok, err := backend.Get(ctx, k)
		if err != nil {
			return nil, err
		}
		if ok {
			c.index.touch(k, rec.Bytes)
		}
	}
	c.reportSize()

	if cfg.SweepEvery > 0 {
		go c.sweepLoop(cfg.SweepEvery)
	}
	return c, nil
}

// Get returns the cached value for key, or ok=false on miss or expiry.
// An expired entry is lazily deleted before reporting the miss.
func (c *Cache[V]) Get(ctx context.Context, key string) (V, bool, error) {
	var zero V
	rec, ok, err := c.backend.Get(ctx, key)
	if err != nil {
		return zero, false, err
	}
	if !ok {
		c.recordMiss()
		return zero, false, nil
	}
	if isExpired(rec) {
		c.evict(ctx, key)
		c.recordMiss()
		return zero, false, nil
	}
	v, err := c.codec.Decode(rec.Value)
	if err != nil {
		return zero, false, anerr.Wrap(err, anerr.Cache, "decode cached value for %s", key)
	}
	c.index.touch(key, rec.Bytes)
	c.recordHit()
	return v, true, nil
}

// Put stores value under key with the Config's DefaultTTL, then
// enforces the configured LRU bounds.
func (c *Cache[V]) Put(ctx context.Context, key string, value V) error {
	raw, err := c.codec.Encode(value)
	if err != nil {
		return anerr.Wrap(err, anerr.Cache, "encode value for %s", key)
	}
	rec := Record{Value: raw, Bytes: int64(len(raw)), StoredAt: timeNow()}
	if c.cfg.DefaultTTL > 0 {
		rec.ExpiresAt = rec.StoredAt.Add(c.cfg.DefaultTTL)
	}
	if err := c.backend.Put(ctx, key, rec); err != nil {
		return err
	}
	c.index.touch(key, rec.Bytes)
	c.reportSize()
	return c.enforceLimits(ctx)
}

// GetOrCompute returns the cached value for key if present and fresh;
// otherwise it calls compute exactly once even under concurrent
// callers racing on the same key (spec §8's testable property: "N
// concurrent GetOrCompute(K, slow_f) calls invoke slow_f exactly
// once"), and stores the result before returning it.
func (c *Cache[V]) GetOrCompute(ctx context.Context, key string, compute func(context.Context) (V, error)) (V, error) {
	if v, ok, err := c.Get(ctx, key); err != nil {
		var zero V
		return zero, err
	} else if ok {
		return v, nil
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		// Re-check under the singleflight key: another goroutine may have
		// populated the entry between our Get above and acquiring the
		// in-flight slot.
		if v, ok, err := c.Get(ctx, key); err != nil {
			return nil, err
		} else if ok {
			return v, nil
		}
		v, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		if err := c.Put(ctx, key, v); err != nil {
			return nil, err
		}
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return result.(V), nil
}

// Invalidate removes key regardless of its expiry state.
func (c *Cache[V]) Invalidate(ctx context.Context, key string) error {
	return c.evict(ctx, key)
}

// Clear empties the cache entirely.
func (c *Cache[V]) Clear(ctx context.Context) error {
	if err := c.backend.Clear(ctx); err != nil {
		return err
	}
	c.index.clear()
	c.reportSize()
	return nil
}

// Stats reports the current size and lifetime hit/miss counters.
func (c *Cache[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Entries: c.index.len(),
		Bytes:   c.index.size(),
		Hits:    c.hits,
		Misses:  c.misses,
	}
}

// Close stops the background sweep goroutine (if any) and closes the
// underlying backend.
func (c *Cache[V]) Close() error {
	c.closeOnce.Do(func() { close(c.stopSweep) })
	return c.backend.Close()
}

func (c *Cache[V]) evict(ctx context.Context, key string) error {
	if err := c.backend.Delete(ctx, key); err != nil {
		return err
	}
	c.index.remove(key)
	c.reportSize()
	return nil
}

// enforceLimits evicts least-recently-used entries until both
// MaxEntries and MaxBytes are satisfied.
func (c *Cache[V]) enforceLimits(ctx context.Context) error {
	if c.cfg.MaxEntries <= 0 && c.cfg.MaxBytes <= 0 {
		return nil
	}
	victims := c.index.victimsFor(c.cfg.MaxEntries, c.cfg.MaxBytes)
	for _, key := range victims {
		if err := c.evict(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

// sweepLoop periodically deletes expired entries without waiting for a
// Get to notice them, bounding how long a stale entry can occupy space.
func (c *Cache[V]) sweepLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-c.stopSweep:
			return
		case <-ticker.C:
			c.sweepOnce()
		}
	}
}

func (c *Cache[V]) sweepOnce() {
	ctx := context.Background()
	keys, err := c.backend.Keys(ctx)
	if err != nil {
		return
	}
	for _, k := range keys {
		rec, ok, err := c.backend.Get(ctx, k)
		if err != nil || !ok {
			continue
		}
		if isExpired(rec) {
			c.evict(ctx, k)
		}
	}
}

func (c *Cache[V]) recordHit() {
	c.mu.Lock()
	c.hits++
	c.mu.Unlock()
	c.metrics.CacheHitsTotal.WithLabelValues(c.cfg.Name).Inc()
}

func (c *Cache[V]) recordMiss() {
	c.mu.Lock()
	c.misses++
	c.mu.Unlock()
	c.metrics.CacheMissesTotal.WithLabelValues(c.cfg.Name).Inc()
}

func (c *Cache[V]) reportSize() {
	c.metrics.CacheEntries.Set(float64(c.index.len()))
	c.metrics.CacheBytes.Set(float64(c.index.size()))
}

func isExpired(rec Record) bool {
	return !rec.ExpiresAt.IsZero() && timeNow().After(rec.ExpiresAt)
}

// timeNow is a var, not a direct time.Now() call, so tests can freeze
// expiry behavior deterministically.
var timeNow = time.Now
