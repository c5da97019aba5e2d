package storage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func testStorages(t *testing.T, size int64) []DataStorage {
	mem := NewMemoryStorage(size)
	disk, err := NewDiskStorage(size, DefaultDiskConfig())
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, disk.Close()) })
	return []DataStorage{mem, disk}
}

func TestIteratorReadsBackWrites(t *testing.T) {
	for _, s := range testStorages(t, 16) {
		it, err := s.Iterator(Write, 0, 16)
		require.NoError(t, err)
		for i := int64(0); it.Next(); i++ {
			it.Set(uint64(i * i))
		}
		require.NoError(t, it.Close())

		rit, err := s.Iterator(Read, 0, 16)
		require.NoError(t, err)
		for i := int64(0); rit.Next(); i++ {
			require.Equal(t, uint64(i*i), rit.Get())
		}
		require.NoError(t, rit.Close())
	}
}

func TestGetArrayWritebackPersists(t *testing.T) {
	for _, s := range testStorages(t, 8) {
		arr, err := s.GetArray(Write, 0, 8)
		require.NoError(t, err)
		for i := range arr.Data {
			arr.Data[i] = uint64(i + 1)
		}
		require.NoError(t, arr.Close())

		rarr, err := s.GetArray(Read, 0, 8)
		require.NoError(t, err)
		for i := range rarr.Data {
			require.Equal(t, uint64(i+1), rarr.Data[i])
		}
	}
}

func TestSubsequenceSharesStorage(t *testing.T) {
	for _, s := range testStorages(t, 10) {
		it, err := s.Iterator(Write, 0, 10)
		require.NoError(t, err)
		for i := int64(0); it.Next(); i++ {
			it.Set(uint64(i))
		}
		require.NoError(t, it.Close())

		sub, err := s.Subsequence(3, 4)
		require.NoError(t, err)
		require.Equal(t, int64(4), sub.Size())

		sit, err := sub.Iterator(Read, 0, 4)
		require.NoError(t, err)
		for i := int64(0); sit.Next(); i++ {
			require.Equal(t, uint64(3+i), sit.Get())
		}
		require.NoError(t, sit.Close())
	}
}

func TestSetSizeZeroPadsGrowth(t *testing.T) {
	for _, s := range testStorages(t, 4) {
		it, err := s.Iterator(Write, 0, 4)
		require.NoError(t, err)
		for it.Next() {
			it.Set(7)
		}
		require.NoError(t, it.Close())

		require.NoError(t, s.SetSize(8))
		require.Equal(t, int64(8), s.Size())

		rit, err := s.Iterator(Read, 0, 8)
		require.NoError(t, err)
		var got []uint64
		for rit.Next() {
			got = append(got, rit.Get())
		}
		require.NoError(t, rit.Close())
		require.Equal(t, []uint64{7, 7, 7, 7, 0, 0, 0, 0}, got)
	}
}

func TestWriteIteratorExclusivity(t *testing.T) {
	for _, s := range testStorages(t, 4) {
		it, err := s.Iterator(Write, 0, 4)
		require.NoError(t, err)

		_, err = s.Iterator(Write, 0, 4)
		require.Error(t, err)

		require.NoError(t, it.Close())

		_, err = s.Iterator(Write, 0, 4)
		require.NoError(t, err)
	}
}

func TestDiskTransferBetweenStorages(t *testing.T) {
	cfg := DefaultDiskConfig()
	src, err := NewDiskStorage(32, cfg)
	require.NoError(t, err)
	defer src.Close()
	dst, err := NewDiskStorage(32, cfg)
	require.NoError(t, err)
	defer dst.Close()

	it, err := src.Iterator(Write, 0, 32)
	require.NoError(t, err)
	for i := int64(0); it.Next(); i++ {
		it.Set(uint64(i + 1))
	}
	require.NoError(t, it.Close())

	require.NoError(t, dst.TransferFrom(src.f, 0, 0, 32))

	rit, err := dst.Iterator(Read, 0, 32)
	require.NoError(t, err)
	for i := int64(0); rit.Next(); i++ {
		require.Equal(t, uint64(i+1), rit.Get())
	}
	require.NoError(t, rit.Close())
}
