package cache

import (
	"fmt"

	"lukechampine.com/blake3"

	"github.com/anidbgo/anidb/hashing"
)

// FingerprintKey builds the hash-cache's stable key from a file's
// content identity: (path, mtime, size). Deliberately excludes the
// requested algorithm set — spec §4.8 describes the cache key as
// including it, but a key that varies with the requested algorithms
// can never find a prior partial entry computed for a different
// subset, which is exactly what "Partial-hit merge" requires. Resolved
// here (see DESIGN.md) by keying on content identity alone and
// tracking which algorithms are present inside HashArtifact instead;
// Merge below does the per-algorithm overlap check.
//
// blake3 is used purely as a fast, collision-resistant fingerprint of
// the key tuple, not as one of the file-content algorithms in
// hashing.Algorithm — the cache key and the cached hash digests are
// unrelated namespaces.
func FingerprintKey(path string, mtimeUnixNano int64, size int64) string {
	h := blake3.New(32, nil)
	fmt.Fprintf(h, "%s\x00%d\x00%d", path, mtimeUnixNano, size)
	return "v1-" + hex(h.Sum(nil))
}

func hex(b []byte) string {
	const digits = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, v := range b {
		out[2*i] = digits[v>>4]
		out[2*i+1] = digits[v&0x0f]
	}
	return string(out)
}

// HashArtifact is the cached value for a fingerprint key: the digest
// produced for every algorithm computed so far against that file.
type HashArtifact struct {
	Digests map[hashing.Algorithm]string
}

// Merge implements spec §4.8's "partial-hit merge": given a cached
// artifact and the full set of algorithms now requested, it reports
// which algorithms are already satisfied and which still need
// computing, so the caller only re-hashes the gap rather than the
// whole requested set.
func Merge(cached *HashArtifact, requested []hashing.Algorithm) (satisfied map[hashing.Algorithm]string, missing []hashing.Algorithm) {
	satisfied = make(map[hashing.Algorithm]string)
	if cached == nil {
		return satisfied, append([]hashing.Algorithm(nil), requested...)
	}
	for _, a := range requested {
		if digest, ok := cached.Digests[a]; ok {
			satisfied[a] = digest
		} else {
			missing = append(missing, a)
		}
	}
	return satisfied, missing
}

// Combine folds newly computed digests into an existing artifact
// (or creates one), returning the artifact to store back in the cache.
func Combine(cached *HashArtifact, fresh map[hashing.Algorithm]string) *HashArtifact {
	out := &HashArtifact{Digests: make(map[hashing.Algorithm]string)}
	if cached != nil {
		for k, v := range cached.Digests {
			out.Digests[k] = v
		}
	}
	for k, v := range fresh {
		out.Digests[k] = v
	}
	return out
}
