// Package hashing implements the streaming hash engine from spec §4.2,
// §4.3 and §4.4: a chunk-aligned, constant-memory reader feeding a
// parallel multi-algorithm pipeline. It is grounded on the teacher's
// common/singleChunkReader.go (chunked, double-buffered file reads)
// and common/mmf_*.go (mmap-or-read dual strategy).
package hashing

import "github.com/anidbgo/anidb/bufferpool"

// ChunkBytes is the ED2K chunk size (spec glossary); every other
// algorithm consumes the same chunk boundaries so the pipeline only
// reads each byte of the file once.
const ChunkBytes = 9_728_000

// Chunk is one slice of a file, produced in strict offset order. handle
// is non-nil only when Data came from the bufferpool rather than an
// mmap view; release(Chunk) checks it before returning the buffer.
type Chunk struct {
	Offset int64
	Data   []byte
	IsLast bool

	handle *bufferpool.Handle
}
