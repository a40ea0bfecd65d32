package hashing

import (
	"encoding/hex"

	"golang.org/x/crypto/md4"
)

// ed2kState implements the chunk-of-MD4 construction from spec §4.3.
// It assumes exactly one Update call per emitted Chunk (the contract
// the pipeline in pipeline.go upholds) so it can tell, at Finalize
// time, whether the file was a single short chunk or ended exactly on
// a chunk boundary — the two cases that change ED2K's outer framing.
type ed2kState struct {
	blue       bool
	digests    [][]byte // one 16-byte MD4 digest per chunk, in order
	lastLen    int
	sawAnyData bool
}

func newED2KState(blue bool) State {
	return &ed2kState{blue: blue}
}

func (s *ed2kState) Update(p []byte) {
	s.sawAnyData = true
	h := md4.New()
	h.Write(p)
	s.digests = append(s.digests, h.Sum(nil))
	s.lastLen = len(p)
}

func (s *ed2kState) Finalize() string {
	if !s.sawAnyData {
		// Empty file: treat as a single zero-length chunk.
		h := md4.New()
		return hex.EncodeToString(h.Sum(nil))
	}

	if len(s.digests) == 1 && s.lastLen < ChunkBytes {
		// Single chunk, strictly shorter than the chunk size: the
		// file's ED2K hash IS that chunk's MD4, no outer hash.
		return hex.EncodeToString(s.digests[0])
	}

	// Either multiple chunks, or exactly one full ChunkBytes-sized
	// chunk (file size an exact multiple of ChunkBytes): hash the
	// concatenation of inner digests with an outer MD4. The red
	// (default) variant additionally appends MD4("") when the file
	// ends exactly on a chunk boundary; blue never does.
	outer := md4.New()
	for _, d := range s.digests {
		outer.Write(d)
	}
	if !s.blue && s.lastLen == ChunkBytes {
		empty := md4.New()
		outer.Write(empty.Sum(nil))
	}
	return hex.EncodeToString(outer.Sum(nil))
}
