package selector

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-apfloat/apfloat/apcontext"
	"github.com/go-apfloat/apfloat/modmath"
	"github.com/go-apfloat/apfloat/storage"
)

// cubeFriendlyModulus is 3*2^18+1, which (unlike modmath.Moduli) has a
// factor of three in its multiplicative group order, so it can exercise the
// selector's factor-3 wrapping path (the production moduli cannot — see
// factor3's own tests and DESIGN.md).
const (
	cubeFriendlyModulus uint64 = 786433
	cubeFriendlyRoot    uint64 = 10
)

func TestRoundUpPicksSmallestCandidate(t *testing.T) {
	cases := []struct {
		size       int64
		wantLength int64
		wantFactor bool
	}{
		{1, 1, false},
		{2, 2, false},
		{3, 3, true},
		{4, 4, false},
		{5, 6, true},
		{7, 8, false},
		{9, 12, true},
		{17, 24, true},
		{33, 48, true},
		{65, 96, true},
	}
	for _, c := range cases {
		length, hasFactor3 := roundUp(c.size)
		require.Equal(t, c.wantLength, length, "size %d", c.size)
		require.Equal(t, c.wantFactor, hasFactor3, "size %d", c.size)
		require.GreaterOrEqual(t, length, c.size)
	}
}

func roundtripThroughBuilder(t *testing.T, b *Builder, q, g uint64, size int64) {
	k := modmath.NewKernel(q)

	strat, err := b.Create(size)
	require.NoError(t, err)

	n := strat.Length()
	require.GreaterOrEqual(t, n, size)

	s := storage.NewMemoryStorage(n)
	r := rand.New(rand.NewSource(size))
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

// TestBuilderCreatePow2Path exercises Table, Six-step and Two-pass kernel
// selection (no factor-3 wrapping) against the production moduli, using
// exact powers of two so roundUp never reaches for the 3*2^a form.
func TestBuilderCreatePow2Path(t *testing.T) {
	q := modmath.Moduli[0]
	g := modmath.PrimitiveRoots[0]

	ctx := apcontext.DefaultContext()
	ctx.CacheL1Bytes = 64 // cacheBudget = 64/2/8 = 4 words
	ctx.MaxMemoryBlockBytes = 256 * 8
	b := NewBuilder(ctx)

	for _, size := range []int64{4, 8, 512} {
		roundtripThroughBuilder(t, b, q, g, size)
	}
}

// TestBuilderCreateFactor3Path exercises the selector's factor-3 wrapping
// decision against a modulus whose multiplicative group actually has a
// factor of three.
func TestBuilderCreateFactor3Path(t *testing.T) {
	ctx := apcontext.DefaultContext()
	ctx.CacheL1Bytes = 64 // cacheBudget = 4 words: 3 wraps the Table FNT
	ctx.MaxMemoryBlockBytes = 256 * 8
	b := NewBuilder(ctx)

	for _, size := range []int64{3, 5, 9, 17} {
		roundtripThroughBuilder(t, b, cubeFriendlyModulus, cubeFriendlyRoot, size)
	}
}
