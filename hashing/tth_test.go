package hashing

import (
	"bytes"
	"encoding/base32"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTTHEmptyInputIsLeafHashOfEmptyData(t *testing.T) {
	st := newTTHState()
	want := leafHashBase32(nil)

	require.Equal(t, want, st.Finalize())
}

func TestTTHSingleShortLeafEqualsLeafHashDirectly(t *testing.T) {
	data := []byte("anidb")
	st := newTTHState()
	st.Update(data)

	require.Equal(t, leafHashBase32(data), st.Finalize())
}

func TestTTHIsDeterministic(t *testing.T) {
	data := bytes.Repeat([]byte{0x42}, 5000)

	a := newTTHState()
	a.Update(data)

	b := newTTHState()
	b.Update(data[:2000])
	b.Update(data[2000:])

	require.Equal(t, a.Finalize(), b.Finalize(), "result must not depend on how Update calls are chunked")
}

func TestTTHDiffersOnDifferentInput(t *testing.T) {
	a := newTTHState()
	a.Update(bytes.Repeat([]byte{0x01}, 3000))

	b := newTTHState()
	b.Update(bytes.Repeat([]byte{0x02}, 3000))

	require.NotEqual(t, a.Finalize(), b.Finalize())
}

func TestTTHOutputLengthMatchesHexSize(t *testing.T) {
	st := newTTHState()
	st.Update(bytes.Repeat([]byte{0x09}, 10000))

	require.Len(t, st.Finalize(), EAlgorithm.TTH().HexSize())
}

func leafHashBase32(data []byte) string {
	sum := leafHash(data)
	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(sum)
}
