package orchestrate

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/anidbgo/anidb/bufferpool"
	"github.com/anidbgo/anidb/cache"
	"github.com/anidbgo/anidb/hashing"
	"github.com/anidbgo/anidb/internal/metrics"
)

func newTestHashCacheService(t *testing.T) (*HashCacheService, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "file.bin")
	require.NoError(t, os.WriteFile(path, []byte("hello world"), 0o644))

	pool := bufferpool.New(bufferpool.Config{})
	pipeline := hashing.NewPipeline(pool)

	artifacts, err := cache.New[cache.HashArtifact](context.Background(), cache.NewMemoryBackend(), cache.HashArtifactCodec{}, cache.Config{Name: "hash"}, metrics.Noop())
	require.NoError(t, err)
	t.Cleanup(func() { artifacts.Close() })

	return NewHashCacheService(pipeline, artifacts), path
}

func TestHashCacheServiceComputesOnFirstCall(t *testing.T) {
	svc, path := newTestHashCacheService(t)
	fh, err := svc.Hash(context.Background(), path, []hashing.Algorithm{hashing.EAlgorithm.MD5()}, nil)
	require.NoError(t, err)
	require.Contains(t, fh.Digests, hashing.EAlgorithm.MD5())
	require.EqualValues(t, 1, svc.Stats().Misses)
}

func TestHashCacheServiceHitsOnSecondCall(t *testing.T) {
	svc, path := newTestHashCacheService(t)
	algos := []hashing.Algorithm{hashing.EAlgorithm.MD5()}

	_, err := svc.Hash(context.Background(), path, algos, nil)
	require.NoError(t, err)
	_, err = svc.Hash(context.Background(), path, algos, nil)
	require.NoError(t, err)

	stats := svc.Stats()
	require.EqualValues(t, 1, stats.Misses)
	require.EqualValues(t, 1, stats.Hits)
}

func TestHashCacheServicePartialHitOnlyComputesGap(t *testing.T) {
	svc, path := newTestHashCacheService(t)

	_, err := svc.Hash(context.Background(), path, []hashing.Algorithm{hashing.EAlgorithm.MD5()}, nil)
	require.NoError(t, err)

	fh, err := svc.Hash(context.Background(), path, []hashing.Algorithm{hashing.EAlgorithm.MD5(), hashing.EAlgorithm.SHA1()}, nil)
	require.NoError(t, err)

	require.Contains(t, fh.Digests, hashing.EAlgorithm.MD5())
	require.Contains(t, fh.Digests, hashing.EAlgorithm.SHA1())

	// Re-hashing the identical content with the widened algorithm set
	// must not have discarded the MD5 already computed on the first call.
	stats := svc.Stats()
	require.EqualValues(t, 2, stats.Misses, "each distinct requested-algo gap still counts as a miss")
}

func TestHashCacheServiceMissingFile(t *testing.T) {
	svc, _ := newTestHashCacheService(t)
	_, err := svc.Hash(context.Background(), "/no/such/file", []hashing.Algorithm{hashing.EAlgorithm.MD5()}, nil)
	require.Error(t, err)
}
