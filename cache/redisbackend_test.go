package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func newTestRedisBackend(t *testing.T) Backend {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	backend, err := NewRedisBackend(mr.Addr(), "anidb-test:")
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })
	return backend
}

func TestRedisBackendRoundTrip(t *testing.T) {
	backend := newTestRedisBackend(t)
	ctx := context.Background()

	rec := Record{Value: []byte("hello"), Bytes: 5, StoredAt: time.Now().Truncate(time.Second)}
	require.NoError(t, backend.Put(ctx, "k", rec))

	got, ok, err := backend.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, rec.Value, got.Value)
}

func TestRedisBackendMissingKey(t *testing.T) {
	backend := newTestRedisBackend(t)
	_, ok, err := backend.Get(context.Background(), "nope")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedisBackendDeleteAndKeys(t *testing.T) {
	backend := newTestRedisBackend(t)
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

func TestRedisBackendClear(t *testing.T) {
	backend := newTestRedisBackend(t)
	ctx := context.Background()

	require.NoError(t, backend.Put(ctx, "a", Record{Value: []byte("1")}))
	require.NoError(t, backend.Clear(ctx))

	keys, err := backend.Keys(ctx)
	require.NoError(t, err)
	require.Empty(t, keys)
}
