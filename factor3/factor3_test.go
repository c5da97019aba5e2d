package factor3

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-apfloat/apfloat/modmath"
	"github.com/go-apfloat/apfloat/ntt"
	"github.com/go-apfloat/apfloat/storage"
)

// cubeFriendlyModulus is 3*2^18+1, a well-known NTT prime whose
// multiplicative group has order divisible by 3 (unlike the production
// triple in modmath.Moduli, none of which has a factor of 3 in p-1 — see
// DESIGN.md). g=10 is a primitive root of this modulus.
const (
	cubeFriendlyModulus uint64 = 786433
	cubeFriendlyRoot    uint64 = 10
)

func TestFactor3Roundtrip(t *testing.T) {
	k := modmath.NewKernel(cubeFriendlyModulus)

	for _, length := range []int64{12, 48, 192} {
		sub := length / 3
		inner, err := ntt.NewTableStrategy(sub)
		require.NoError(t, err)
		strat, err := New(length, inner)
		require.NoError(t, err)

		s := storage.NewMemoryStorage(length)

		r := rand.New(rand.NewSource(length))
		want := make([]uint64, length)
		it, err := s.Iterator(storage.Write, 0, length)
		require.NoError(t, err)
		for i := int64(0); it.Next(); i++ {
			want[i] = uint64(r.Int63()) % cubeFriendlyModulus
			it.Set(want[i])
		}
		require.NoError(t, it.Close())

		root := k.NthRoot(cubeFriendlyRoot, uint64(length), false)
		rootInv := k.NthRoot(cubeFriendlyRoot, uint64(length), true)

		require.NoError(t, strat.Transform(s, k, root))
		got, err := s.GetArray(storage.Read, 0, length)
		require.NoError(t, err)
		require.NotEqual(t, want, got.Data, "transform should scramble the input for length %d", length)

		require.NoError(t, strat.InverseTransform(s, k, rootInv))
		got, err = s.GetArray(storage.Read, 0, length)
		require.NoError(t, err)
		require.Equal(t, want, got.Data)
	}
}

func TestFactor3ConvolutionMatchesDirect(t *testing.T) {
	k := modmath.NewKernel(cubeFriendlyModulus)
	length := int64(48)
	sub := length / 3

	r := rand.New(rand.NewSource(7))
	a := make([]uint64, length)
	b := make([]uint64, length)
	for i := range a {
		a[i] = uint64(r.Intn(100))
		b[i] = uint64(r.Intn(100))
	}

	want := make([]uint64, length)
	for i := range a {
		for j := range b {
			idx := (i + j) % int(length)
			want[idx] = k.Add(want[idx], k.Multiply(a[i], b[j]))
		}
	}

	newStrategy := func() *Strategy {
		inner, err := ntt.NewTableStrategy(sub)
		require.NoError(t, err)
		strat, err := New(length, inner)
		require.NoError(t, err)
		return strat
	}

	root := k.NthRoot(cubeFriendlyRoot, uint64(length), false)
	rootInv := k.NthRoot(cubeFriendlyRoot, uint64(length), true)

	sa := storage.FromSlice(append([]uint64{}, a...))
	sb := storage.FromSlice(append([]uint64{}, b...))

	require.NoError(t, newStrategy().Transform(sa, k, root))
	require.NoError(t, newStrategy().Transform(sb, k, root))

	aArr, err := sa.GetArray(storage.ReadWrite, 0, length)
	require.NoError(t, err)
	bArr, err := sb.GetArray(storage.Read, 0, length)
	require.NoError(t, err)
	for i := range aArr.Data {
		aArr.Data[i] = k.Multiply(aArr.Data[i], bArr.Data[i])
	}
	require.NoError(t, aArr.Close())

	require.NoError(t, newStrategy().InverseTransform(sa, k, rootInv))

	got, err := sa.GetArray(storage.Read, 0, length)
	require.NoError(t, err)
	require.Equal(t, want, got.Data)
}
