// Package storage implements the DataStorage abstraction component B: a
// uniform view over a digit array that may live in RAM or on disk, with
// read/write iterators and sliceable array views that the NTT strategies
// (package ntt) and the convolver (package convolve) operate through
// without caring which backing is underneath.
//
// The in-memory variant borrows the teacher's buffer-owning slice idiom
// (Pro7ech/lattigo ring.Point/RNSPoly.FromBuffer: a view shares its
// parent's backing array rather than copying). The disk variant has no
// teacher precedent and is built directly on os/io, the closest the
// standard library gets to the teacher's own block-oriented style.
package storage

import "github.com/go-apfloat/apfloat/apferr"

// Mode selects the access pattern an Iterator or Array is opened with.
type Mode int

const (
	Read Mode = iota
	Write
	ReadWrite
)

// DataStorage is the opaque owner of a digit stream described in spec §3/4.B.
type DataStorage interface {
	// Size returns the current length of the digit stream.
	Size() int64
	// SetSize resizes the stream. New elements are zero. Shrinking
	// discards the tail. Memory storage resizes in place within its
	// capacity and reallocates and copies when growing past it; disk
	// storage may round-trip to the backing file.
	SetSize(n int64) error
	// Iterator returns a forward iterator over [start, end). Exactly one
	// write (or read-write) iterator may be alive over a storage at a
	// time; while one is open, a further write or read-write request
	// returns an error instead of waiting for it to be Closed.
	Iterator(mode Mode, start, end int64) (Iterator, error)
	// GetArray returns a contiguous view of [start, start+length). For
	// disk storage, length must fit the context's block budget.
	GetArray(mode Mode, start, length int64) (*Array, error)
	// Subsequence returns a non-owning view over [offset, offset+length).
	// The parent must outlive the view.
	Subsequence(offset, length int64) (DataStorage, error)
	// Close releases any resource (file descriptor, temp file) the
	// storage owns. Safe to call multiple times.
	Close() error
}

// Iterator is a forward cursor produced by DataStorage.Iterator.
type Iterator interface {
	// Get returns the digit at the cursor. Undefined before the first
	// Next or after Close.
	Get() uint64
	// Set overwrites the digit at the cursor. Only valid for Write/ReadWrite
	// iterators.
	Set(v uint64)
	// Next advances the cursor, returning false once it passes the
	// iterator's end.
	Next() bool
	// Close releases the iterator, and for Write/ReadWrite iterators
	// flushes any buffered state and releases the storage's write lock.
	Close() error
}

// Array is a contiguous, in-RAM view produced by DataStorage.GetArray. For
// memory storage it aliases the backing buffer directly; for disk storage
// it is a materialized copy that Close writes back if opened for writing.
type Array struct {
	Data      []uint64
	writeback func([]uint64) error
}

// Close flushes the array back to its storage if it was opened for
// writing. A no-op for memory-backed arrays, which already alias the
// backing buffer.
func (a *Array) Close() error {
	if a.writeback == nil {
		return nil
	}
	wb := a.writeback
	a.writeback = nil
	return wb(a.Data)
}

func sizeCheck(have, want int64) error {
	if have < want {
		return apferr.New(apferr.Invariant, "storage: requested range exceeds size: have=%d want=%d", have, want)
	}
	return nil
}
