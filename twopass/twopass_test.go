package twopass

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-apfloat/apfloat/modmath"
	"github.com/go-apfloat/apfloat/storage"
)

func TestTwoPassRoundtrip(t *testing.T) {
	q := modmath.Moduli[0]
	g := modmath.PrimitiveRoots[0]
	k := modmath.NewKernel(q)

	for _, n := range []int64{4, 16, 64} {
		strat, err := New(n, 4, storage.DefaultDiskConfig())
		require.NoError(t, err)

		s, err := storage.NewDiskStorage(n, storage.DefaultDiskConfig())
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })

		r := rand.New(rand.NewSource(n))
		want := make([]uint64, n)
		it, err := s.Iterator(storage.Write, 0, n)
		require.NoError(t, err)
		for i := int64(0); it.Next(); i++ {
			want[i] = uint64(r.Int63()) % q
			it.Set(want[i])
		}
		require.NoError(t, it.Close())

		root := k.NthRoot(g, uint64(n), false)
		rootInv := k.NthRoot(g, uint64(n), true)

		require.NoError(t, strat.Transform(s, k, root))
		require.NoError(t, strat.InverseTransform(s, k, rootInv))

		got, err := s.GetArray(storage.Read, 0, n)
		require.NoError(t, err)
		require.Equal(t, want, got.Data)
	}
}

func TestTwoPassConvolutionMatchesDirect(t *testing.T) {
	q := modmath.Moduli[0]
	g := modmath.PrimitiveRoots[0]
	k := modmath.NewKernel(q)
	n := int64(64)

	r := rand.New(rand.NewSource(5))
	a := make([]uint64, n)
	b := make([]uint64, n)
	for i := range a {
		a[i] = uint64(r.Intn(100))
		b[i] = uint64(r.Intn(100))
	}

	want := make([]uint64, n)
	for i := range a {
		for j := range b {
			want[(i+j)%int(n)] = k.Add(want[(i+j)%int(n)], k.Multiply(a[i], b[j]))
		}
	}

	strat, err := New(n, 4, storage.DefaultDiskConfig())
	require.NoError(t, err)
	root := k.NthRoot(g, uint64(n), false)
	rootInv := k.NthRoot(g, uint64(n), true)

	sa, err := storage.NewDiskStorage(n, storage.DefaultDiskConfig())
	require.NoError(t, err)
	defer sa.Close()
	sb, err := storage.NewDiskStorage(n, storage.DefaultDiskConfig())
	require.NoError(t, err)
	defer sb.Close()

	writeAll(t, sa, a)
	writeAll(t, sb, b)

	require.NoError(t, strat.Transform(sa, k, root))
	require.NoError(t, strat.Transform(sb, k, root))

	aArr, err := sa.GetArray(storage.ReadWrite, 0, n)
	require.NoError(t, err)
	bArr, err := sb.GetArray(storage.Read, 0, n)
	require.NoError(t, err)
	for i := range aArr.Data {
		aArr.Data[i] = k.Multiply(aArr.Data[i], bArr.Data[i])
	}
	require.NoError(t, aArr.Close())

	require.NoError(t, strat.InverseTransform(sa, k, rootInv))

	got, err := sa.GetArray(storage.Read, 0, n)
	require.NoError(t, err)
	require.Equal(t, want, got.Data)
}

func writeAll(t *testing.T, s storage.DataStorage, data []uint64) {
	it, err := s.Iterator(storage.Write, 0, int64(len(data)))
	require.NoError(t, err)
	for i := 0; it.Next(); i++ {
		it.Set(data[i])
	}
	require.NoError(t, it.Close())
}
