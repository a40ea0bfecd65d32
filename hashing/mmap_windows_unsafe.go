//go:build windows

package hashing

import "unsafe"

func unsafeSlice(addr uintptr, length int) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), length)
}

func unsafePtr(data []byte) unsafe.Pointer {
	return unsafe.Pointer(&data[0])
}
