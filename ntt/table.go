package ntt

import (
	"github.com/go-apfloat/apfloat/modmath"
	"github.com/go-apfloat/apfloat/storage"
)

// TableStrategy is component C: the in-cache Table FNT. It requires the
// whole transform to be addressable as one contiguous in-RAM array, which
// the strategy selector (package selector) only ever hands it for lengths
// small enough to fit half the L1 cache alongside the root table.
type TableStrategy struct {
	n int64
}

// NewTableStrategy returns a Table FNT strategy for transform length n. n
// must satisfy CheckLength.
func NewTableStrategy(n int64) (*TableStrategy, error) {
	if err := CheckLength(n); err != nil {
		return nil, err
	}
	return &TableStrategy{n: n}, nil
}

func (t *TableStrategy) Length() int64 { return t.n }

func (t *TableStrategy) Transform(s storage.DataStorage, k modmath.Kernel, root uint64) error {
	arr, err := s.GetArray(storage.ReadWrite, 0, t.n)
	if err != nil {
		return err
	}
	defer arr.Close()
	rootPow := RootPowers(k, root, t.n)
	forwardDIF(arr.Data, k, rootPow)
	return nil
}

func (t *TableStrategy) InverseTransform(s storage.DataStorage, k modmath.Kernel, rootInv uint64) error {
	arr, err := s.GetArray(storage.ReadWrite, 0, t.n)
	if err != nil {
		return err
	}
	defer arr.Close()
	rootPowInv := RootPowers(k, rootInv, t.n)
	inverseDIT(arr.Data, k, rootPowInv)
	scaleByInverseLength(arr.Data, k, t.n)
	return nil
}

// scaleByInverseLength divides every element of a by n modulo k.Modulus, the
// final step spec §4.C assigns to "the caller" of an inverse transform;
// the top-level Strategy performs it once so inner calls (Six-step's
// per-row/column transforms, Two-pass's per-band transforms) don't pay for
// it more than once per full transform.
func scaleByInverseLength(a []uint64, k modmath.Kernel, n int64) {
	nInv := k.Inverse(uint64(n) % k.Modulus)
	for i := range a {
		a[i] = k.Multiply(a[i], nInv)
	}
}

// TransformRaw and InverseTransformRaw expose the unscaled in-place
// butterfly network directly on a slice, for the Six-step and Two-pass
// strategies (components D/E) that use the Table FNT as their inner kernel
// on row/column/band slices rather than through the DataStorage protocol.
func TransformRaw(a []uint64, k modmath.Kernel, root uint64) {
	forwardDIF(a, k, RootPowers(k, root, int64(len(a))))
}

func InverseTransformRaw(a []uint64, k modmath.Kernel, rootInv uint64) {
	inverseDIT(a, k, RootPowers(k, rootInv, int64(len(a))))
}
