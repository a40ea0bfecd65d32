package cache

import (
	"context"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/syndtr/goleveldb/leveldb"

	"github.com/anidbgo/anidb/anerr"
)

func toLevelDBRecord(r Record) leveldbRecord {
	lr := leveldbRecord{Value: r.Value, Bytes: r.Bytes, StoredAt: r.StoredAt.UnixNano()}
	if !r.ExpiresAt.IsZero() {
		lr.ExpiresAt = r.ExpiresAt.UnixNano()
	}
	return lr
}

func fromLevelDBRecord(lr leveldbRecord) Record {
	r := Record{Value: lr.Value, Bytes: lr.Bytes, StoredAt: time.Unix(0, lr.StoredAt)}
	if lr.ExpiresAt != 0 {
		r.ExpiresAt = time.Unix(0, lr.ExpiresAt)
	}
	return r
}

// leveldbRecord is Record's wire form: goleveldb stores raw bytes, so
// StoredAt/ExpiresAt travel alongside Value as a single CBOR-encoded
// envelope rather than a second column family.
type leveldbRecord struct {
	Value     []byte `cbor:"value"`
	Bytes     int64  `cbor:"bytes"`
	StoredAt  int64  `cbor:"stored_at"`  // unix nanos
	ExpiresAt int64  `cbor:"expires_at"` // unix nanos, 0 = no TTL
}

type leveldbBackend struct {
	db *leveldb.DB
}

// NewLevelDBBackend opens (creating if absent) an embedded KV store at
// dir, the "single-file" backend spec §4.8 names.
func NewLevelDBBackend(dir string) (Backend, error) {
	db, err := leveldb.OpenFile(dir, nil)
	if err != nil {
		return nil, anerr.Wrap(err, anerr.Cache, "open leveldb backend at %s", dir)
	}
	return &leveldbBackend{db: db}, nil
}

func (b *leveldbBackend) Get(_ context.Context, key string) (Record, bool, error) {
	raw, err := b.db.Get([]byte(key), nil)
	if err == leveldb.ErrNotFound {
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

func (b *leveldbBackend) Put(_ context.Context, key string, rec Record) error {
	raw, err := cbor.Marshal(toLevelDBRecord(rec))
	if err != nil {
		return anerr.Wrap(err, anerr.Cache, "encode record %s", key)
	}
	if err := b.db.Put([]byte(key), raw, nil); err != nil {
		return anerr.Wrap(err, anerr.Cache, "put %s", key)
	}
	return nil
}

func (b *leveldbBackend) Delete(_ context.Context, key string) error {
	if err := b.db.Delete([]byte(key), nil); err != nil {
		return anerr.Wrap(err, anerr.Cache, "delete %s", key)
	}
	return nil
}

func (b *leveldbBackend) Clear(ctx context.Context) error {
	keys, err := b.Keys(ctx)
	if err != nil {
		return err
	}
	batch := new(leveldb.Batch)
	for _, k := range keys {
		batch.Delete([]byte(k))
	}
	if err := b.db.Write(batch, nil); err != nil {
		return anerr.Wrap(err, anerr.Cache, "clear leveldb backend")
	}
	return nil
}

func (b *leveldbBackend) Keys(_ context.Context) ([]string, error) {
	iter := b.db.NewIterator(nil, nil)
	defer iter.Release()
	var keys []string
	for iter.Next() {
		keys = append(keys, string(iter.Key()))
	}
	if err := iter.Error(); err != nil {
		return nil, anerr.Wrap(err, anerr.Cache, "iterate leveldb backend")
	}
	return keys, nil
}

func (b *leveldbBackend) Close() error { return b.db.Close() }
