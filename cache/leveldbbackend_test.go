package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLevelDBBackendRoundTrip(t *testing.T) {
	dir := t.TempDir() + "/leveldb"
	backend, err := NewLevelDBBackend(dir)
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	rec := Record{Value: []byte("hello"), Bytes: 5, StoredAt: time.Now().Truncate(time.Second)}
	require.NoError(t, backend.Put(ctx, "k", rec))

	got, ok, err := backend.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, rec.Value, got.Value)
	require.Equal(t, rec.Bytes, got.Bytes)
	require.True(t, rec.StoredAt.Equal(got.StoredAt))
}

func TestLevelDBBackendDeleteAndKeys(t *testing.T) {
	backend, err := NewLevelDBBackend(t.TempDir() + "/leveldb")
	require.NoError(t, err)
	defer backend.Close()
	ctx := context.Background()

	require.NoError(t, backend.Put(ctx, "a", Record{Value: []byte("1")}))
	require.NoError(t, backend.Put(ctx, "b", Record{Value: []byte("2")}))

	keys, err := backend.Keys(ctx)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"a", "b"}, keys)

	require.NoError(t, backend.Delete(ctx, "a"))
	keys, err = backend.Keys(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"b"}, keys)
}

func TestLevelDBBackendClear(t *testing.T) {
	backend, err := NewLevelDBBackend(t.TempDir() + "/leveldb")
	require.NoError(t, err)
	defer backend.Close()
	ctx := context.Background()

	require.NoError(t, backend.Put(ctx, "a", Record{Value: []byte("1")}))
	require.NoError(t, backend.Clear(ctx))

	keys, err := backend.Keys(ctx)
	require.NoError(t, err)
	require.Empty(t, keys)
}

func TestLevelDBBackendMissingKey(t *testing.T) {
	backend, err := NewLevelDBBackend(t.TempDir() + "/leveldb")
	require.NoError(t, err)
	defer backend.Close()

	_, ok, err := backend.Get(context.Background(), "nope")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestLevelDBRecordExpiryRoundTrip(t *testing.T) {
	dir := t.TempDir() + "/leveldb"
	backend, err := NewLevelDBBackend(dir)
	require.NoError(t, err)
	defer backend.Close()
	ctx := context.Background()

	expires := time.Now().Add(time.Hour).Truncate(time.Second)
	require.NoError(t, backend.Put(ctx, "k", Record{Value: []byte("x"), ExpiresAt: expires}))

	got, ok, err := backend.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, expires.Equal(got.ExpiresAt))
}
