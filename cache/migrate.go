package cache

import (
	"github.com/jmoiron/sqlx"

	"github.com/anidbgo/anidb/anerr"
)

// migration is one versioned, transactional, idempotent schema step,
// per spec §4.8: "schema changes are applied via a versioned migration
// table; each migration is transactional and idempotent."
type migration struct {
	version int
	stmts   []string
}

// migrations defines the relational backend's full schema: files,
// hashes, anidb_results, mylist_cache, sync_queue, schema_version
// (spec §6's "Cache database schema (relational backend)").
var migrations = []migration{
	{
		version: 1,
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`,
			`CREATE TABLE IF NOT EXISTS files (
				path TEXT PRIMARY KEY,
				mtime_unix INTEGER NOT NULL,
				size INTEGER NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS hashes (
				cache_key TEXT PRIMARY KEY,
				path TEXT NOT NULL,
				algos TEXT NOT NULL,
				value BLOB NOT NULL,
				bytes INTEGER NOT NULL,
				stored_at INTEGER NOT NULL,
				expires_at INTEGER NOT NULL DEFAULT 0
			)`,
			`CREATE TABLE IF NOT EXISTS anidb_results (
				cache_key TEXT PRIMARY KEY,
				ed2k TEXT NOT NULL,
				size INTEGER NOT NULL,
				value BLOB NOT NULL,
				stored_at INTEGER NOT NULL,
				expires_at INTEGER NOT NULL DEFAULT 0
			)`,
			`CREATE TABLE IF NOT EXISTS mylist_cache (
				fid INTEGER PRIMARY KEY,
				value BLOB NOT NULL,
				stored_at INTEGER NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS sync_queue (
				id TEXT PRIMARY KEY,
				payload BLOB NOT NULL,
				state TEXT NOT NULL,
				attempts INTEGER NOT NULL DEFAULT 0,
				next_due_at INTEGER NOT NULL,
				created_at INTEGER NOT NULL
			)`,
		},
	},
}

// applyMigrations runs every migration whose version exceeds the
// highest already-recorded one, each inside its own transaction.
func applyMigrations(db *sqlx.DB) error {
	current, err := currentSchemaVersion(db)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		tx, err := db.Beginx()
		if err != nil {
			return anerr.Wrap(err, anerr.Cache, "begin migration %d", m.version)
		}
		for _, stmt := range m.stmts {
			if _, err := tx.Exec(stmt); err != nil {
				tx.Rollback()
				return anerr.Wrap(err, anerr.Cache, "apply migration %d", m.version)
			}
		}
		if _, err := tx.Exec(`INSERT INTO schema_version (version) VALUES (?)`, m.version); err != nil {
			tx.Rollback()
			return anerr.Wrap(err, anerr.Cache, "record migration %d", m.version)
		}
		if err := tx.Commit(); err != nil {
			return anerr.Wrap(err, anerr.Cache, "commit migration %d", m.version)
		}
	}
	return nil
}

func currentSchemaVersion(db *sqlx.DB) (int, error) {
	var exists int
	err := db.Get(&exists, `SELECT count(*) FROM sqlite_master WHERE type='table' AND name='schema_version'`)
	if err != nil {
		return 0, anerr.Wrap(err, anerr.Cache, "probe schema_version table")
	}
	if exists == 0 {
		return 0, nil
	}
	var version int
	if err := db.Get(&version, `SELECT COALESCE(MAX(version), 0) FROM schema_version`); err != nil {
		return 0, anerr.Wrap(err, anerr.Cache, "read schema_version")
	}
	return version, nil
}
