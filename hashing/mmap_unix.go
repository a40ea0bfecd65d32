//go:build unix

package hashing

import "syscall"

// mmapFile memory-maps the file's full extent read-only, grounded on
// common/mmf_unix.go's syscall.Mmap usage, generalized from a per-chunk
// mapping to a whole-file mapping since the reader here walks the file
// once start to finish rather than seeking to arbitrary retry points.
func mmapFile(fd uintptr, length int64) ([]byte, error) {
	if length == 0 {
		return nil, nil
	}
	return syscall.Mmap(int(fd), 0, int(length), syscall.PROT_READ, syscall.MAP_SHARED)
}

func munmapFile(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	return syscall.Munmap(data)
}
