package orchestrate

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/anidbgo/anidb/bufferpool"
	"github.com/anidbgo/anidb/cache"
	"github.com/anidbgo/anidb/hashing"
	"github.com/anidbgo/anidb/identify"
	"github.com/anidbgo/anidb/internal/metrics"
	"github.com/anidbgo/anidb/protocol"
)

type fakeCommander struct {
	calls int32
	resp  *protocol.Response
}

func (f *fakeCommander) Command(_ context.Context, _ string, _ map[string]string) (*protocol.Response, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.resp, nil
}

func newTestOrchestrator(t *testing.T, fc *fakeCommander) (*IdentifyOrchestrator, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "file.bin")
	require.NoError(t, os.WriteFile(path, []byte("anime content"), 0o644))

	pool := bufferpool.New(bufferpool.Config{})
	pipeline := hashing.NewPipeline(pool)
	artifacts, err := cache.New[cache.HashArtifact](context.Background(), cache.NewMemoryBackend(), cache.HashArtifactCodec{}, cache.Config{Name: "hash"}, metrics.Noop())
	require.NoError(t, err)
	t.Cleanup(func() { artifacts.Close() })
	hashSvc := NewHashCacheService(pipeline, artifacts)

	results, err := NewIdentifyCache(context.Background(), cache.NewMemoryBackend(), cache.Config{Name: "identify"})
	require.NoError(t, err)
	t.Cleanup(func() { results.Close() })

	identifySvc := identify.NewService(fc)
	return NewIdentifyOrchestrator(hashSvc, results, identifySvc), path
}

func TestIdentifyOrchestratorResolvesAndCaches(t *testing.T) {
	fc := &fakeCommander{resp: &protocol.Response{
		Code:      220,
		DataLines: [][]string{{"1", "2", "3", "Some Anime", "01", "GroupName"}},
	}}
	orch, path := newTestOrchestrator(t, fc)

	info, err := orch.Identify(context.Background(), path)
	require.NoError(t, err)
	require.Equal(t, 3, info.AnimeID)
	require.Equal(t, "Some Anime", info.AnimeTitle)

	_, err = orch.Identify(context.Background(), path)
	require.NoError(t, err)
	require.EqualValues(t, 1, atomic.LoadInt32(&fc.calls), "second Identify on same content must hit the result cache")
}

func TestIdentifyOrchestratorNotFound(t *testing.T) {
	fc := &fakeCommander{resp: &protocol.Response{Code: protocol.CodeNoSuchFile, Text: "NO SUCH FILE"}}
	orch, path := newTestOrchestrator(t, fc)

	_, err := orch.Identify(context.Background(), path)
	require.Error(t, err)
	var nf *identify.NotFoundError
	require.ErrorAs(t, err, &nf)
}
