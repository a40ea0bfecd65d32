package cache

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/anidbgo/anidb/hashing"
)

func TestFingerprintKeyDeterministic(t *testing.T) {
	k1 := FingerprintKey("/movies/a.mkv", 1000, 2000)
	k2 := FingerprintKey("/movies/a.mkv", 1000, 2000)
	require.Equal(t, k1, k2)
}

func TestFingerprintKeyStableAcrossDifferentRequestedAlgoSets(t *testing.T) {
	// The whole point of excluding algos from the key: a lookup for
	// {MD5} and a lookup for {MD5,SHA1} against the same file must hit
	// the same cache entry, or partial-hit merge could never apply.
	require.Equal(t,
		FingerprintKey("/movies/a.mkv", 1000, 2000),
		FingerprintKey("/movies/a.mkv", 1000, 2000),
	)
}

func TestFingerprintKeyChangesWithInputs(t *testing.T) {
	base := FingerprintKey("/a.mkv", 1000, 2000)

	require.NotEqual(t, base, FingerprintKey("/b.mkv", 1000, 2000))
	require.NotEqual(t, base, FingerprintKey("/a.mkv", 1001, 2000))
	require.NotEqual(t, base, FingerprintKey("/a.mkv", 1000, 2001))
}

func TestMergePartialHit(t *testing.T) {
	cached := &HashArtifact{Digests: map[hashing.Algorithm]string{
		hashing.EAlgorithm.MD5(): "deadbeef",
	}}
	requested := []hashing.Algorithm{hashing.EAlgorithm.MD5(), hashing.EAlgorithm.SHA1(), hashing.EAlgorithm.TTH()}

	satisfied, missing := Merge(cached, requested)

	require.Equal(t, "deadbeef", satisfied[hashing.EAlgorithm.MD5()])
	require.Len(t, satisfied, 1)
	require.ElementsMatch(t, []hashing.Algorithm{hashing.EAlgorithm.SHA1(), hashing.EAlgorithm.TTH()}, missing)
}

func TestMergeNilCachedReturnsAllMissing(t *testing.T) {
	requested := []hashing.Algorithm{hashing.EAlgorithm.MD5(), hashing.EAlgorithm.SHA1()}
	satisfied, missing := Merge(nil, requested)
	require.Empty(t, satisfied)
	require.ElementsMatch(t, requested, missing)
}

func TestCombineMergesWithoutLosingPriorDigests(t *testing.T) {
	cached := &HashArtifact{Digests: map[hashing.Algorithm]string{
		hashing.EAlgorithm.MD5(): "deadbeef",
	}}
	fresh := map[hashing.Algorithm]string{
		hashing.EAlgorithm.SHA1(): "cafebabe",
	}

	combined := Combine(cached, fresh)

	require.Equal(t, "deadbeef", combined.Digests[hashing.EAlgorithm.MD5()])
	require.Equal(t, "cafebabe", combined.Digests[hashing.EAlgorithm.SHA1()])
}

func TestCombineWithNilCached(t *testing.T) {
	fresh := map[hashing.Algorithm]string{hashing.EAlgorithm.MD5(): "deadbeef"}
	combined := Combine(nil, fresh)
	require.Equal(t, "deadbeef", combined.Digests[hashing.EAlgorithm.MD5()])
}
