//go:build windows

package hashing

import (
	"golang.org/x/sys/windows"
)

// mmapFile mirrors common/mmf_windows.go's CreateFileMapping/MapViewOfFile
// pair, ported to golang.org/x/sys/windows (already in the pack's go.sum
// via the teacher) instead of the teacher's raw syscall + unsafe
// reflect.SliceHeader construction.
func mmapFile(fd uintptr, length int64) ([]byte, error) {
	if length == 0 {
		return nil, nil
	}
	h, err := windows.CreateFileMapping(windows.Handle(fd), nil, windows.PAGE_READONLY, uint32(length>>32), uint32(length&0xffffffff), nil)
	if err != nil {
		return nil, err
	}
	defer windows.CloseHandle(h)

	addr, err := windows.MapViewOfFile(h, windows.FILE_MAP_READ, 0, 0, uintptr(length))
	if err != nil {
		return nil, err
	}
	return unsafeSlice(addr, int(length)), nil
}

func munmapFile(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	return windows.UnmapViewOfFile(uintptr(unsafePtr(data)))
}
