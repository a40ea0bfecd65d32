package hashing

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/md4"
)

func TestED2KEmptyFileIsMD4OfEmptyInput(t *testing.T) {
	st := newED2KState(false)
	want := md4.New()

	require.Equal(t, hex.EncodeToString(want.Sum(nil)), st.Finalize())
}

func TestED2KSingleChunkShorterThanChunkBytesIsBareMD4(t *testing.T) {
	data := bytes.Repeat([]byte{0xAA}, 1000)

	st := newED2KState(false)
	st.Update(data)

	h := md4.New()
	h.Write(data)
	require.Equal(t, hex.EncodeToString(h.Sum(nil)), st.Finalize())
}

func TestED2KRedAndBlueAgreeOnNonBoundaryFile(t *testing.T) {
	first := bytes.Repeat([]byte{0xAA}, ChunkBytes)
	second := bytes.Repeat([]byte{0xBB}, 272000)

	red := newED2KState(false)
	red.Update(first)
	red.Update(second)

	blue := newED2KState(true)
	blue.Update(first)
	blue.Update(second)

	require.Equal(t, red.Finalize(), blue.Finalize(), "red and blue must agree when the file does not end exactly on a chunk boundary")
}

func TestED2KRedAndBlueDisagreeWhenFileEndsOnChunkBoundary(t *testing.T) {
	first := bytes.Repeat([]byte{0xAA}, ChunkBytes)
	second := bytes.Repeat([]byte{0xBB}, ChunkBytes)

	red := newED2KState(false)
	red.Update(first)
	red.Update(second)

	blue := newED2KState(true)
	blue.Update(first)
	blue.Update(second)

	require.NotEqual(t, red.Finalize(), blue.Finalize(), "red appends an extra empty-chunk digest when the file is an exact multiple of the chunk size")
}

func TestED2KRedMatchesKnownVectorForOneFullZeroChunk(t *testing.T) {
	st := newED2KState(false)
	st.Update(make([]byte, ChunkBytes))

	require.Equal(t, "fc21d9af828f92a8df64beac3357425d", st.Finalize())
}

func TestED2KBlueSingleFullChunkHashesOuterMD4OfOneDigest(t *testing.T) {
	data := bytes.Repeat([]byte{0x00}, ChunkBytes)

	st := newED2KState(true)
	st.Update(data)

	inner := md4.New()
	inner.Write(data)
	outer := md4.New()
	outer.Write(inner.Sum(nil))

	require.Equal(t, hex.EncodeToString(outer.Sum(nil)), st.Finalize())
}
