package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSQLBackendRoundTrip(t *testing.T) {
	backend, err := NewSQLBackend(t.TempDir() + "/cache.db")
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	rec := Record{Value: []byte("hello"), Bytes: 5}
	require.NoError(t, backend.Put(ctx, "k", rec))

	got, ok, err := backend.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, rec.Value, got.Value)
}

func TestSQLBackendUpsertOverwrites(t *testing.T) {
	backend, err := NewSQLBackend(t.TempDir() + "/cache.db")
	require.NoError(t, err)
	defer backend.Close()
	ctx := context.Background()

	require.NoError(t, backend.Put(ctx, "k", Record{Value: []byte("v1")}))
	require.NoError(t, backend.Put(ctx, "k", Record{Value: []byte("v2")}))

	got, ok, err := backend.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v2"), got.Value)
}

func TestSQLBackendMigrationIsIdempotent(t *testing.T) {
	path := t.TempDir() + "/cache.db"
	b1, err := NewSQLBackend(path)
	require.NoError(t, err)
	require.NoError(t, b1.Close())

	// Reopening the same file re-runs applyMigrations; it must not fail
	// on already-existing tables or a populated schema_version table.
	b2, err := NewSQLBackend(path)
	require.NoError(t, err)
	defer b2.Close()

	require.NoError(t, b2.Put(context.Background(), "k", Record{Value: []byte("v")}))
}

func TestSQLBackendDeleteAndClear(t *testing.T) {
	backend, err := NewSQLBackend(t.TempDir() + "/cache.db")
	require.NoError(t, err)
	defer backend.Close()
	ctx := context.Background()

	require.NoError(t, backend.Put(ctx, "a", Record{Value: []byte("1")}))
	require.NoError(t, backend.Put(ctx, "b", Record{Value: []byte("2")}))

	require.NoError(t, backend.Delete(ctx, "a"))
	keys, err := backend.Keys(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"b"}, keys)

	require.NoError(t, backend.Clear(ctx))
	keys, err = backend.Keys(ctx)
	require.NoError(t, err)
	require.Empty(t, keys)
}
