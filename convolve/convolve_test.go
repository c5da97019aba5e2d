package convolve

import (
	"math/big"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-apfloat/apfloat/apcontext"
	"github.com/go-apfloat/apfloat/storage"
)

func valueOf(digits []uint64, radix int64) *big.Int {
	v := new(big.Int)
	scale := big.NewInt(1)
	radixBig := big.NewInt(radix)
	for _, d := range digits {
		v.Add(v, new(big.Int).Mul(big.NewInt(int64(d)), scale))
		scale.Mul(scale, radixBig)
	}
	return v
}

func digitsOf(v *big.Int, radix int64, n int64) []uint64 {
	out := make([]uint64, n)
	rem := new(big.Int)
	q := new(big.Int).Set(v)
	radixBig := big.NewInt(radix)
	for i := int64(0); i < n; i++ {
		q.QuoRem(q, radixBig, rem)
		out[i] = rem.Uint64()
	}
	return out
}

func TestMultiplySmall(t *testing.T) {
	const radix = 1000
	a := []uint64{123, 456, 789}
	b := []uint64{321, 654}

	want := new(big.Int).Mul(valueOf(a, radix), valueOf(b, radix))

	ctx := apcontext.DefaultContext()
	ctx.Radix = radix

	out, err := Multiply(ctx, a, b, 6)
	require.NoError(t, err)
	defer out.Close()

	arr, err := out.GetArray(storage.Read, 0, out.Size())
	require.NoError(t, err)
	defer arr.Close()

	require.Equal(t, digitsOf(want, radix, 6), arr.Data)
}

func TestMultiplyRandomAgainstBigInt(t *testing.T) {
	const radix = 1_000_000_000
	r := rand.New(rand.NewSource(42))

	randomDigits := func(n int) []uint64 {
		d := make([]uint64, n)
		for i := range d {
			d[i] = uint64(r.Intn(radix))
		}
		return d
	}

	a := randomDigits(37)
	b := randomDigits(29)

	want := new(big.Int).Mul(valueOf(a, radix), valueOf(b, radix))

	ctx := apcontext.DefaultContext()
	ctx.Radix = radix
	ctx.CacheL1Bytes = 256 // force a non-trivial kernel choice for these lengths

	outSize := int64(len(a) + len(b))
	out, err := Multiply(ctx, a, b, outSize)
	require.NoError(t, err)
	defer out.Close()

	arr, err := out.GetArray(storage.Read, 0, outSize)
	require.NoError(t, err)
	defer arr.Close()

	require.Equal(t, digitsOf(want, radix, outSize), arr.Data)
}

func TestMultiplyRejectsEmptyOperand(t *testing.T) {
	ctx := apcontext.DefaultContext()
	_, err := Multiply(ctx, nil, []uint64{1}, 4)
	require.Error(t, err)
}
