package hashing

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/anidbgo/anidb/anerr"
	"github.com/anidbgo/anidb/bufferpool"
	"github.com/anidbgo/anidb/progress"
)

func writeTempFile(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sample.bin")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestPipelineHashesAllRequestedAlgorithms(t *testing.T) {
	data := bytes.Repeat([]byte{0x7A}, 3*1024*1024)
	path := writeTempFile(t, data)

	pool := bufferpool.New(bufferpool.Config{})
	pipeline := NewPipeline(pool)

	algos := []Algorithm{EAlgorithm.CRC32(), EAlgorithm.MD5(), EAlgorithm.SHA1(), EAlgorithm.ED2KRed(), EAlgorithm.TTH()}
	result, err := pipeline.HashFile(context.Background(), path, algos, nil)
	require.NoError(t, err)

	require.Equal(t, int64(len(data)), result.Size)
	for _, a := range algos {
		require.Len(t, result.Digests[a], a.HexSize())
	}
}

func TestPipelineIsDeterministicAcrossRuns(t *testing.T) {
	data := bytes.Repeat([]byte{0x11, 0x22, 0x33}, 1024*1024)
	path := writeTempFile(t, data)

	pool := bufferpool.New(bufferpool.Config{})
	pipeline := NewPipeline(pool)
	algos := []Algorithm{EAlgorithm.MD5(), EAlgorithm.TTH()}

	first, err := pipeline.HashFile(context.Background(), path, algos, nil)
	require.NoError(t, err)
	second, err := pipeline.HashFile(context.Background(), path, algos, nil)
	require.NoError(t, err)

	require.Equal(t, first.Digests, second.Digests)
}

func TestPipelineReportsProgress(t *testing.T) {
	data := bytes.Repeat([]byte{0x5C}, 2*1024*1024)
	path := writeTempFile(t, data)

	pool := bufferpool.New(bufferpool.Config{})
	pipeline := NewPipeline(pool)

	rec := &recordingProvider{}
	sink := progress.NewSink(rec, path)
	_, err := pipeline.HashFile(context.Background(), path, []Algorithm{EAlgorithm.CRC32()}, sink)
	require.NoError(t, err)

	require.True(t, rec.started)
	require.True(t, rec.done)
	require.Equal(t, int64(len(data)), rec.lastBytes)
}

func TestPipelineMissingFileReturnsNotFound(t *testing.T) {
	pool := bufferpool.New(bufferpool.Config{})
	pipeline := NewPipeline(pool)

	_, err := pipeline.HashFile(context.Background(), filepath.Join(t.TempDir(), "missing.bin"), []Algorithm{EAlgorithm.CRC32()}, nil)
	require.Error(t, err)
	require.Equal(t, anerr.NotFound, anerr.KindOf(err))
}

type recordingProvider struct {
	started   bool
	done      bool
	lastBytes int64
}

func (r *recordingProvider) OnFileStart(string, int64)       { r.started = true }
func (r *recordingProvider) OnBytes(_ string, n int64)       { r.lastBytes = n }
func (r *recordingProvider) OnAlgorithmDone(string, string, string) {}
func (r *recordingProvider) OnFileDone(string, _ time.Duration) { r.done = true }
func (r *recordingProvider) OnError(string, error)           {}
