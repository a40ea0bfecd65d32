package cache

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/anidbgo/anidb/anerr"
)

// sqlRow is the hashes-table row shape. The generic Backend surface
// only ever touches the hashes table; the other tables the migration
// creates (anidb_results, mylist_cache, sync_queue) are not written by
// any package in this module.
type sqlRow struct {
	CacheKey  string `db:"cache_key"`
	Path      string `db:"path"`
	Algos     string `db:"algos"`
	Value     []byte `db:"value"`
	Bytes     int64  `db:"bytes"`
	StoredAt  int64  `db:"stored_at"`
	ExpiresAt int64  `db:"expires_at"`
}

type sqlBackend struct {
	db *sqlx.DB
}

// NewSQLBackend opens (creating and migrating if absent) the embedded
// relational backend at path, per spec §6's "Cache database schema
// (relational backend)". modernc.org/sqlite is a pure-Go driver, so
// this backend carries no cgo requirement.
func NewSQLBackend(path string) (Backend, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, anerr.Wrap(err, anerr.Cache, "open sql backend at %s", path)
	}
	db.SetMaxOpenConns(1) // sqlite: single writer, avoid SQLITE_BUSY under our own load
	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, err
	}
	return &sqlBackend{db: db}, nil
}

func (b *sqlBackend) Get(ctx context.Context, key string) (Record, bool, error) {
	var row sqlRow
	err := b.db.GetContext(ctx, &row, `SELECT cache_key, path, algos, value, bytes, stored_at, expires_at FROM hashes WHERE cache_key = ?`, key)
	if err == sql.ErrNoRows {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, anerr.Wrap(err, anerr.Cache, "get %s", key)
	}
	rec := Record{Value: row.Value, Bytes: row.Bytes, StoredAt: time.Unix(0, row.StoredAt)}
	if row.ExpiresAt != 0 {
		rec.ExpiresAt = time.Unix(0, row.ExpiresAt)
	}
	return rec, true, nil
}

func (b *sqlBackend) Put(ctx context.Context, key string, rec Record) error {
	var expires int64
	if !rec.ExpiresAt.IsZero() {
		expires = rec.ExpiresAt.UnixNano()
	}
	_, err := b.db.ExecContext(ctx, `
		INSERT INTO hashes (cache_key, path, algos, value, bytes, stored_at, expires_at)
		VALUES (?, '', '', ?, ?, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET
			value = excluded.value,
			bytes = excluded.bytes,
			stored_at = excluded.stored_at,
			expires_at = excluded.expires_at
	`, key, rec.Value, rec.Bytes, rec.StoredAt.UnixNano(), expires)
	if err != nil {
		return anerr.Wrap(err, anerr.Cache, "put %s", key)
	}
	return nil
}

func (b *sqlBackend) Delete(ctx context.Context, key string) error {
	if _, err := b.db.ExecContext(ctx, `DELETE FROM hashes WHERE cache_key = ?`, key); err != nil {
		return anerr.Wrap(err, anerr.Cache, "delete %s", key)
	}
	return nil
}

func (b *sqlBackend) Clear(ctx context.Context) error {
	if _, err := b.db.ExecContext(ctx, `DELETE FROM hashes`); err != nil {
		return anerr.Wrap(err, anerr.Cache, "clear sql backend")
	}
	return nil
}

func (b *sqlBackend) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	if err := b.db.SelectContext(ctx, &keys, `SELECT cache_key FROM hashes`); err != nil {
		return nil, anerr.Wrap(err, anerr.Cache, "list sql backend keys")
	}
	return keys, nil
}

func (b *sqlBackend) Close() error { return b.db.Close() }
