package cache

import (
	"github.com/fxamacker/cbor/v2"

	"github.com/anidbgo/anidb/anerr"
	"github.com/anidbgo/anidb/hashing"
)

// HashArtifactCodec encodes/decodes HashArtifact using the same CBOR
// envelope style the leveldb and redis backends use for Record, kept
// as a distinct type from the Record envelope so it can evolve
// independently of the generic Backend wire format.
type HashArtifactCodec struct{}

type cborHashArtifact struct {
	Digests map[string]string `cbor:"digests"`
}

func (HashArtifactCodec) Encode(v HashArtifact) ([]byte, error) {
	wire := cborHashArtifact{Digests: make(map[string]string, len(v.Digests))}
	for algo, digest := range v.Digests {
		wire.Digests[algo.String()] = digest
	}
	raw, err := cbor.Marshal(wire)
	if err != nil {
		return nil, anerr.Wrap(err, anerr.Cache, "encode hash artifact")
	}
	return raw, nil
}

func (HashArtifactCodec) Decode(b []byte) (HashArtifact, error) {
	var wire cborHashArtifact
	if err := cbor.Unmarshal(b, &wire); err != nil {
		return HashArtifact{}, anerr.Wrap(err, anerr.Cache, "decode hash artifact")
	}
	out := HashArtifact{Digests: make(map[hashing.Algorithm]string, len(wire.Digests))}
	for name, digest := range wire.Digests {
		algo, ok := algorithmByName(name)
		if !ok {
			continue
		}
		out.Digests[algo] = digest
	}
	return out, nil
}

// algorithmByName reverses Algorithm.String for decoding; unrecognized
// names are skipped rather than erroring, so a cache populated by a
// newer binary with more algorithms stays readable by an older one.
func algorithmByName(name string) (hashing.Algorithm, bool) {
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
	return hashing.Algorithm(0), false
}
