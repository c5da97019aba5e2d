package storage

import "github.com/go-apfloat/apfloat/apferr"

// MemoryStorage is the in-RAM DataStorage variant: a contiguous owned
// buffer, following the teacher's buffer-owning slice idiom
// (ring.RNSPoly/Point.FromBuffer) where a subsequence view shares its
// parent's backing array rather than copying it.
type MemoryStorage struct {
	buf    []uint64
	writer bool
}

// NewMemoryStorage allocates a zero-filled MemoryStorage of the given size.
func NewMemoryStorage(size int64) *MemoryStorage {
	return &MemoryStorage{buf: make([]uint64, size)}
}

// FromSlice wraps an existing slice as a MemoryStorage without copying,
// mirroring Point.FromBuffer: the caller's slice becomes the storage's
// backing array.
func FromSlice(buf []uint64) *MemoryStorage {
	return &MemoryStorage{buf: buf}
}

func (m *MemoryStorage) Size() int64 { return int64(len(m.buf)) }

func (m *MemoryStorage) SetSize(n int64) error {
	if n < 0 {
		return apferr.New(apferr.Invariant, "storage: negative size %d", n)
	}
	switch {
	case n <= int64(len(m.buf)):
		m.buf = m.buf[:n]
	case n <= int64(cap(m.buf)):
		grown := m.buf[:n]
		for i := len(m.buf); i < int(n); i++ {
			grown[i] = 0
		}
		m.buf = grown
	default:
		grown := make([]uint64, n)
		copy(grown, m.buf)
		m.buf = grown
	}
	return nil
}

func (m *MemoryStorage) Iterator(mode Mode, start, end int64) (Iterator, error) {
	if err := sizeCheck(m.Size(), end); err != nil {
		return nil, err
	}
	if m.writer && mode != Read {
		return nil, apferr.New(apferr.Invariant, "storage: write iterator already open")
	}
	if mode != Read {
		m.writer = true
	}
	return &memoryIterator{m: m, mode: mode, pos: start - 1, start: start, end: end}, nil
}

func (m *MemoryStorage) GetArray(mode Mode, start, length int64) (*Array, error) {
	if err := sizeCheck(m.Size(), start+length); err != nil {
		return nil, err
	}
	return &Array{Data: m.buf[start : start+length]}, nil
}

func (m *MemoryStorage) Subsequence(offset, length int64) (DataStorage, error) {
	if err := sizeCheck(m.Size(), offset+length); err != nil {
		return nil, err
	}
	return &MemoryStorage{buf: m.buf[offset : offset+length]}, nil
}

func (m *MemoryStorage) Close() error { return nil }

type memoryIterator struct {
	m          *MemoryStorage
	mode       Mode
	pos        int64
	start, end int64
	closed     bool
}

func (it *memoryIterator) Get() uint64 { return it.m.buf[it.pos] }

func (it *memoryIterator) Set(v uint64) {
	if it.mode == Read {
		panic("storage: Set on a read-only iterator")
	}
	it.m.buf[it.pos] = v
}

func (it *memoryIterator) Next() bool {
	it.pos++
	return it.pos < it.end
}

func (it *memoryIterator) Close() error {
	if it.closed {
		return nil
	}
	it.closed = true
	if it.mode != Read {
		it.m.writer = false
	}
	return nil
}
