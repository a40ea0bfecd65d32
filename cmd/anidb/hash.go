package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/anidbgo/anidb/bufferpool"
	"github.com/anidbgo/anidb/cache"
	"github.com/anidbgo/anidb/hashing"
	"github.com/anidbgo/anidb/internal/metrics"
	"github.com/anidbgo/anidb/orchestrate"
	"github.com/anidbgo/anidb/progress"
)

var (
	hashAlgoNames []string
	hashProgress  bool
)

// stderrProgress prints one line when a file starts (with its humanized
// size), one when it finishes, and one on error; byte ticks are ignored.
type stderrProgress struct{}

func (stderrProgress) OnFileStart(path string, size int64) {
	fmt.Fprintf(os.Stderr, "hashing %s (%s)\n", filepath.Base(path), progress.Humanize(size))
}
func (stderrProgress) OnBytes(string, int64) {}
func (stderrProgress) OnAlgorithmDone(string, string, string) {}
func (stderrProgress) OnFileDone(path string, elapsed time.Duration) {
	fmt.Fprintf(os.Stderr, "done %s in %s\n", filepath.Base(path), elapsed.Round(time.Millisecond))
}
func (stderrProgress) OnError(path string, err error) {
	fmt.Fprintf(os.Stderr, "error %s: %v\n", filepath.Base(path), err)
}

var hashCmd = &cobra.Command{
	Use:   "hash <file>...",
	Short: "Hash one or more files, using the fingerprint cache when possible",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runHash,
}

func init() {
	hashCmd.Flags().StringSliceVar(&hashAlgoNames, "algo", []string{"ed2k-red"}, "algorithms to compute: ed2k-red, ed2k-blue, crc32, md5, sha1, tth")
	hashCmd.Flags().BoolVar(&hashProgress, "progress", false, "print per-file progress to stderr")
}

func runHash(cmd *cobra.Command, args []string) error {
	ctx := cmdContext(cmd)

	algos := make([]hashing.Algorithm, 0, len(hashAlgoNames))
	for _, name := range hashAlgoNames {
		a, ok := parseAlgorithm(name)
		if !ok {
			return fmt.Errorf("unknown algorithm %q", name)
		}
		algos = append(algos, a)
	}

	svc, closeSvc, err := openHashCacheService(ctx)
	if err != nil {
		return err
	}
	defer closeSvc()

	for _, path := range args {
		var sink *progress.Sink
		if hashProgress {
			sink = progress.NewSink(stderrProgress{}, path)
		}
		fh, err := svc.Hash(ctx, path, algos, sink)
		if err != nil {
			return err
		}
		for _, a := range algos {
			fmt.Printf("%s  %s  %s\n", fh.Digests[a], a.String(), filepath.Base(path))
		}
	}
	return nil
}

func parseAlgorithm(name string) (hashing.Algorithm, bool) {
	for _, a := range []hashing.Algorithm{
		hashing.EAlgorithm.ED2KRed(),
		hashing.EAlgorithm.ED2KBlue(),
		hashing.EAlgorithm.CRC32(),
		hashing.EAlgorithm.MD5(),
		hashing.EAlgorithm.SHA1(),
		hashing.EAlgorithm.TTH(),
	} {
		if a.String() == name {
			return a, true
		}
	}
	return 0, false
}

// openHashCacheService wires the hash pipeline to the on-disk
// fingerprint cache rooted at --cache-dir, falling back to an
// in-memory cache if no cache dir is configured (so `anidb hash` works
// standalone without first running any cache setup).
func openHashCacheService(ctx context.Context) (*orchestrate.HashCacheService, func(), error) {
	pool := bufferpool.New(bufferpool.Config{})
	pipeline := hashing.NewPipeline(pool)

	backend, err := openHashBackend()
	if err != nil {
		return nil, nil, err
	}

	artifacts, err := cache.New[cache.HashArtifact](ctx, backend, cache.HashArtifactCodec{}, cache.Config{Name: "hash"}, metrics.Noop())
	if err != nil {
		return nil, nil, err
	}

	svc := orchestrate.NewHashCacheService(pipeline, artifacts)
	return svc, func() { artifacts.Close() }, nil
}

func openHashBackend() (cache.Backend, error) {
	if flagCacheDir == "" {
		return cache.NewMemoryBackend(), nil
	}
	return cache.NewSQLBackend(filepath.Join(flagCacheDir, "anidb.db"))
}
