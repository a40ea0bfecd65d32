package hashing

import "fmt"

// Algorithm is the tagged variant from spec §4.3, using the teacher's
// enum-via-methods idiom (common/enum.go, common/fe-ste-models.go's
// EJobStatus) rather than a plain iota block, so new variants can be
// added without renumbering call sites.
type Algorithm uint8

var EAlgorithm = Algorithm(0)

func (Algorithm) ED2KRed() Algorithm { return Algorithm(0) }
func (Algorithm) ED2KBlue() Algorithm { return Algorithm(1) }
func (Algorithm) CRC32() Algorithm    { return Algorithm(2) }
func (Algorithm) MD5() Algorithm      { return Algorithm(3) }
func (Algorithm) SHA1() Algorithm     { return Algorithm(4) }
func (Algorithm) TTH() Algorithm      { return Algorithm(5) }

func (a Algorithm) String() string {
	switch a {
	case EAlgorithm.ED2KRed():
		return "ed2k-red"
	case EAlgorithm.ED2KBlue():
		return "ed2k-blue"
	case EAlgorithm.CRC32():
		return "crc32"
	case EAlgorithm.MD5():
		return "md5"
	case EAlgorithm.SHA1():
		return "sha1"
	case EAlgorithm.TTH():
		return "tth"
	default:
		return fmt.Sprintf("algorithm(%d)", uint8(a))
	}
}

// HexSize is the width, in hex/base32 characters, of this algorithm's
// rendered output (spec §4.3's hex_output_size, minus any terminator
// since Go strings are not NUL-terminated).
func (a Algorithm) HexSize() int {
	switch a {
	case EAlgorithm.ED2KRed(), EAlgorithm.ED2KBlue():
		return 32
	case EAlgorithm.CRC32():
		return 8
	case EAlgorithm.MD5():
		return 32
	case EAlgorithm.SHA1():
		return 40
	case EAlgorithm.TTH():
		return 39
	default:
		return 0
	}
}

// State is the per-algorithm running hash: init -> Update* -> Finalize.
// Update must never be called concurrently with another Update for the
// same State; the pipeline serializes chunk delivery per algorithm and
// only parallelizes across distinct algorithms.
type State interface {
	Update(p []byte)
	Finalize() string // lowercase hex, or uppercase base32 for TTH
}

// NewState constructs a fresh State for algo.
func NewState(algo Algorithm) State {
	switch algo {
	case EAlgorithm.ED2KRed():
		return newED2KState(false)
	case EAlgorithm.ED2KBlue():
		return newED2KState(true)
	case EAlgorithm.CRC32():
		return newCRC32State()
	case EAlgorithm.MD5():
		return newMD5State()
	case EAlgorithm.SHA1():
		return newSHA1State()
	case EAlgorithm.TTH():
		return newTTHState()
	default:
		panic(fmt.Sprintf("hashing: unknown algorithm %d", uint8(algo)))
	}
}
