package storage

import "unsafe"

// uint64SliceAsBytes reinterprets a []uint64 as the []byte ReadAt/WriteAt
// need, without copying. Valid because Go slices of a fixed-size numeric
// type are laid out contiguously and the host is little/big-endian
// consistent within one process's lifetime (the temp file is never read
// back by a different process or a different build).
func uint64SliceAsBytes(s []uint64) []byte {
	if len(s) == 0 {
		return nil
	}
	/* #nosec G103 -- reinterpreting a uint64 slice as bytes for in-process-only disk I/O */
	return unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*wordSize)
}
