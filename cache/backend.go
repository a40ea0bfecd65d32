// Package cache implements the fingerprint-to-artifact cache from spec
// §4.8: at-most-once concurrent compute, TTL+LRU eviction, partial-hit
// merge for hash artifacts, and a choice of storage backends. Grounded
// on the teacher's common/LFUCache.go (thread-safe frequency/usage
// tracking over a sync.Map + ordered slice), adapted here from
// least-frequently-used to least-recently-used ordering because spec
// §4.8 names LRU explicitly.
package cache

import (
	"context"
	"time"
)

// Record is the raw envelope a Backend stores: the caller's serialized
// value plus the bookkeeping the cache core needs to enforce TTL and
// size-based eviction without re-opening the value.
type Record struct {
	Value     []byte
	Bytes     int64
	StoredAt  time.Time
	ExpiresAt time.Time // zero means no TTL
}

// Backend is the storage interface spec §4.8 calls out: "the cache is
// an interface; concrete backends include in-memory, single-file, and
// embedded relational store."
type Backend interface {
	Get(ctx context.Context, key string) (Record, bool, error)
	Put(ctx context.Context, key string, rec Record) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	// Keys returns every stored key, used by the LRU index rebuild on
	// startup, by the background TTL sweep, and by some backends' Clear.
	Keys(ctx context.Context) ([]string, error)
	Close() error
}
