// Package orchestrate composes hashing, cache, and identify into the
// two application-facing services spec §4.10 names: a hash-cache
// service that avoids re-hashing unchanged files, and an identify
// orchestrator that resolves a file to AniDB metadata through it.
package orchestrate

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/anidbgo/anidb/anerr"
	"github.com/anidbgo/anidb/cache"
	"github.com/anidbgo/anidb/hashing"
	"github.com/anidbgo/anidb/progress"
)

// HashCacheStats tracks how effective the fingerprint cache has been
// for this service's lifetime, for spec §4.10's "record stats
// (hit/miss, bytes saved)".
type HashCacheStats struct {
	Hits       int64
	Misses     int64
	BytesSaved int64
}

// HashCacheService wraps hashing.Pipeline with the fingerprint cache
// from spec §4.8. Entries are keyed by (path, mtime, size); the
// algorithms already hashed live in the cached HashArtifact, so a later
// call runs the pipeline only for missing algorithms and stores the
// union. Lookup and store are a separate Get and Put, so concurrent
// calls for the same uncached file each run the pipeline.
type HashCacheService struct {
	pipeline *hashing.Pipeline
	artifacts *cache.Cache[cache.HashArtifact]

	statsMu sync.Mutex
	stats   HashCacheStats
}

// NewHashCacheService wires a hashing.Pipeline to a fingerprint cache
// already constructed over whichever cache.Backend the caller chose.
func NewHashCacheService(pipeline *hashing.Pipeline, artifacts *cache.Cache[cache.HashArtifact]) *HashCacheService {
	return &HashCacheService{pipeline: pipeline, artifacts: artifacts}
}

// Hash returns the digest for every algorithm in algos, hashing only
// the algorithms not already present in a cached partial result for
// this exact (path, mtime, size) fingerprint.
func (s *HashCacheService) Hash(ctx context.Context, path string, algos []hashing.Algorithm, sink *progress.Sink) (*hashing.FileHashes, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, anerr.Wrap(err, anerr.NotFound, "stat %s", path)
		}
		return nil, anerr.Wrap(err, anerr.IOError, "stat %s", path)
	}
	key := cache.FingerprintKey(path, info.ModTime().UnixNano(), info.Size())

	cached, ok, err := s.artifacts.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	var artifact *cache.HashArtifact
	var missing []hashing.Algorithm
	if ok {
		artifact = &cached
		_, missing = cache.Merge(artifact, algos)
	} else {
		missing = algos
	}

	if len(missing) == 0 {
		s.recordHit(info.Size())
		return artifactToFileHashes(path, info.Size(), artifact), nil
	}
	s.recordMiss()

	start := time.Now()
	fresh, err := s.pipeline.HashFile(ctx, path, missing, sink)
	if err != nil {
		return nil, err
	}

	combined := cache.Combine(artifact, fresh.Digests)
	if err := s.artifacts.Put(ctx, key, *combined); err != nil {
		return nil, err
	}

	result := artifactToFileHashes(path, info.Size(), combined)
	result.Elapsed = time.Since(start)
	return result, nil
}

// Stats returns a snapshot of hit/miss/bytes-saved counters.
func (s *HashCacheService) Stats() HashCacheStats {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	return s.stats
}

func (s *HashCacheService) recordHit(size int64) {
	s.statsMu.Lock()
	s.stats.Hits++
	s.stats.BytesSaved += size
	s.statsMu.Unlock()
}

func (s *HashCacheService) recordMiss() {
	s.statsMu.Lock()
	s.stats.Misses++
	s.statsMu.Unlock()
}

func artifactToFileHashes(path string, size int64, artifact *cache.HashArtifact) *hashing.FileHashes {
	digests := make(map[hashing.Algorithm]string, len(artifact.Digests))
	for k, v := range artifact.Digests {
		digests[k] = v
	}
	return &hashing.FileHashes{Path: path, Size: size, Digests: digests}
}
