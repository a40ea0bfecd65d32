package hashing

import (
	"crypto/md5"
	"crypto/sha1"
	"encoding/hex"
	"hash"
	"hash/crc32"
)

// These three algorithms are plain stdlib hash.Hash wrappers — the
// same direct crypto/md5 usage as the teacher's ste/md5Comparer.go,
// generalized to the common State interface. No pack library improves
// on the standard library here; see SPEC_FULL.md's domain-stack table.

type stdHashState struct {
	h hash.Hash
}

func (s *stdHashState) Update(p []byte) { s.h.Write(p) }
func (s *stdHashState) Finalize() string {
	return hex.EncodeToString(s.h.Sum(nil))
}

func newMD5State() State  { return &stdHashState{h: md5.New()} }
func newSHA1State() State { return &stdHashState{h: sha1.New()} }

type crc32State struct {
	table *crc32.Table
	crc   uint32
}

func newCRC32State() State {
	return &crc32State{table: crc32.IEEETable}
}

func (s *crc32State) Update(p []byte) {
	s.crc = crc32.Update(s.crc, s.table, p)
}

func (s *crc32State) Finalize() string {
	b := []byte{byte(s.crc >> 24), byte(s.crc >> 16), byte(s.crc >> 8), byte(s.crc)}
	return hex.EncodeToString(b)
}
