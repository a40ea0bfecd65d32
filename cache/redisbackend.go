package cache

import (
	"context"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/redis/go-redis/v9"

	"github.com/anidbgo/anidb/anerr"
)

// redisBackend is a SPEC_FULL.md supplement beyond spec §4.8's three
// named backend types: a shared-cache option for a multi-process or
// multi-host deployment sharing one fingerprint cache. Values travel
// as the same CBOR envelope leveldbBackend uses, since both store
// Record as an opaque blob rather than structured columns.
type redisBackend struct {
	client *redis.Client
	prefix string
}

// NewRedisBackend connects to a Redis instance at addr, namespacing all
// keys under prefix so the cache can share a database with other uses.
func NewRedisBackend(addr, prefix string) (Backend, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, anerr.Wrap(err, anerr.Cache, "connect to redis backend at %s", addr)
	}
	return &redisBackend{client: client, prefix: prefix}, nil
}

func (b *redisBackend) fullKey(key string) string { return b.prefix + key }

func (b *redisBackend) Get(ctx context.Context, key string) (Record, bool, error) {
	raw, err := b.client.Get(ctx, b.fullKey(key)).Bytes()
	if err == redis.Nil {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, anerr.Wrap(err, anerr.Cache, "get %s", key)
	}
	var lr leveldbRecord
	if err := cbor.Unmarshal(raw, &lr); err != nil {
		return Record{}, false, anerr.Wrap(err, anerr.Cache, "decode record %s", key)
	}
	return fromLevelDBRecord(lr), true, nil
}

func (b *redisBackend) Put(ctx context.Context, key string, rec Record) error {
	raw, err := cbor.Marshal(toLevelDBRecord(rec))
	if err != nil {
		return anerr.Wrap(err, anerr.Cache, "encode record %s", key)
	}
	var ttl time.Duration
	if !rec.ExpiresAt.IsZero() {
		if d := time.Until(rec.ExpiresAt); d > 0 {
			ttl = d
		} else {
			ttl = time.Nanosecond // already expired: let redis evict it immediately
		}
	}
	if err := b.client.Set(ctx, b.fullKey(key), raw, ttl).Err(); err != nil {
		return anerr.Wrap(err, anerr.Cache, "put %s", key)
	}
	return nil
}

func (b *redisBackend) Delete(ctx context.Context, key string) error {
	if err := b.client.Del(ctx, b.fullKey(key)).Err(); err != nil {
		return anerr.Wrap(err, anerr.Cache, "delete %s", key)
	}
	return nil
}

func (b *redisBackend) Clear(ctx context.Context) error {
	keys, err := b.Keys(ctx)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := b.client.Del(ctx, b.fullKey(k)).Err(); err != nil {
			return anerr.Wrap(err, anerr.Cache, "clear redis backend")
		}
	}
	return nil
}

func (b *redisBackend) Keys(ctx context.Context) ([]string, error) {
	iter := b.client.Scan(ctx, 0, b.prefix+"*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val()[len(b.prefix):])
	}
	if err := iter.Err(); err != nil {
		return nil, anerr.Wrap(err, anerr.Cache, "scan redis backend")
	}
	return keys, nil
}

func (b *redisBackend) Close() error { return b.client.Close() }
