package hashing

import (
	"crypto/md5"
	"crypto/sha1"
	"encoding/hex"
	"hash/crc32"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMD5StateMatchesStdlib(t *testing.T) {
	data := []byte("the quick brown fox jumps over the lazy dog")
	st := newMD5State()
	st.Update(data[:10])
	st.Update(data[10:])

	want := md5.Sum(data)
	require.Equal(t, hex.EncodeToString(want[:]), st.Finalize())
}

func TestSHA1StateMatchesStdlib(t *testing.T) {
	data := []byte("the quick brown fox jumps over the lazy dog")
	st := newSHA1State()
	st.Update(data)

	want := sha1.Sum(data)
	require.Equal(t, hex.EncodeToString(want[:]), st.Finalize())
}

func TestCRC32StateMatchesStdlibAcrossMultipleUpdates(t *testing.T) {
	data := []byte("the quick brown fox jumps over the lazy dog")
	st := newCRC32State()
	for _, chunk := range [][]byte{data[:5], data[5:20], data[20:]} {
		st.Update(chunk)
	}

	want := crc32.ChecksumIEEE(data)
	wantHex := hex.EncodeToString([]byte{byte(want >> 24), byte(want >> 16), byte(want >> 8), byte(want)})
	require.Equal(t, wantHex, st.Finalize())
}
