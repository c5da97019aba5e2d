// Package factor3 implements component F: it extends any power-of-two NTT
// strategy (Table, Six-step, or Two-pass) to transform lengths L = 3*2^k by
// splitting the storage into three contiguous sub-arrays of length 2^k,
// running a length-3 DFT element-by-element across the three sub-arrays
// (with per-column twiddle weights, the same Cooley-Tukey decomposition the
// Six-step strategy uses for its two power-of-two factors, specialized here
// to a factor of 3), and delegating each sub-array's length-2^k transform to
// the wrapped strategy.
//
// Grounded on the teacher's pattern of composing a single-limb primitive
// across several sub-arrays to extend it (the RNS machinery wraps a
// single-modulus Ring operation across several moduli the same way). The
// length-3 DFT is a Winograd-style reduction to a single field multiply by
// the cube root of unity w (see winogradDFT3); it does not use a
// multi-weight WFTA form with precomputed constant weights.
package factor3

import (
	"github.com/go-apfloat/apfloat/apferr"
	"github.com/go-apfloat/apfloat/modmath"
	"github.com/go-apfloat/apfloat/ntt"
	"github.com/go-apfloat/apfloat/storage"
)

// Strategy is component F, wrapping an inner power-of-two strategy of
// length L/3.
type Strategy struct {
	length int64 // L = 3 * sub
	sub    int64 // L / 3, a power of two
	inner  ntt.Strategy
}

// New wraps inner (built for length length/3) into a Factor-3 strategy for
// length. length must equal 3 * inner.Length().
func New(length int64, inner ntt.Strategy) (*Strategy, error) {
	if length%3 != 0 {
		return nil, apferr.New(apferr.Invariant, "factor3: length %d is not a multiple of 3", length)
	}
	sub := length / 3
	if inner.Length() != sub {
		return nil, apferr.New(apferr.Invariant, "factor3: inner strategy length %d != length/3 %d", inner.Length(), sub)
	}
	if err := ntt.CheckLength(sub); err != nil {
		return nil, err
	}
	return &Strategy{length: length, sub: sub, inner: inner}, nil
}

func (s *Strategy) Length() int64 { return s.length }

// Transform implements the forward half of spec §4.F: length-3 DFT with
// per-column twiddle across the three sub-arrays, then an independent
// length-sub transform on each.
func (s *Strategy) Transform(store storage.DataStorage, k modmath.Kernel, root uint64) error {
	s0, s1, s2, err := s.split(store)
	if err != nil {
		return err
	}

	w := k.Pow(root, uint64(s.sub)) // primitive cube root of unity
	subRoot := k.Pow(root, 3)       // primitive sub-th root of unity

	if err := s.dft3Pass(s0, s1, s2, k, w, root, false); err != nil {
		return err
	}

	for _, sub := range []storage.DataStorage{s0, s1, s2} {
		if err := s.inner.Transform(sub, k, subRoot); err != nil {
			return err
		}
	}
	return nil
}

// InverseTransform implements the reverse order spec §4.F calls for:
// inverse-transform each sub-array first, then invert the length-3 DFT
// pass, then rescale by 1/3 (the inner strategy's own InverseTransform
// already divided by sub; combined they give the full 1/length scaling
// spec §4.C assigns to the top-level strategy).
func (s *Strategy) InverseTransform(store storage.DataStorage, k modmath.Kernel, rootInv uint64) error {
	s0, s1, s2, err := s.split(store)
	if err != nil {
		return err
	}

	subRootInv := k.Pow(rootInv, 3)
	for _, sub := range []storage.DataStorage{s0, s1, s2} {
		if err := s.inner.InverseTransform(sub, k, subRootInv); err != nil {
			return err
		}
	}

	wInv := k.Pow(rootInv, uint64(s.sub))
	if err := s.dft3Pass(s0, s1, s2, k, wInv, rootInv, true); err != nil {
		return err
	}

	three := k.Inverse(3 % k.Modulus)
	return scaleArray(store, k, three, s.length)
}

func (s *Strategy) split(store storage.DataStorage) (s0, s1, s2 storage.DataStorage, err error) {
	if s0, err = store.Subsequence(0, s.sub); err != nil {
		return
	}
	if s1, err = store.Subsequence(s.sub, s.sub); err != nil {
		return
	}
	if s2, err = store.Subsequence(2*s.sub, s.sub); err != nil {
		return
	}
	return
}

// dft3Pass runs the column-wise length-3 DFT (or its inverse, when inverse
// is true) across s0/s1/s2. Forward: the DFT runs first, then outputs 1 and
// 2 of column j are multiplied by twiddleRoot^j and twiddleRoot^2j. Inverse:
// inputs 1 and 2 are multiplied by those powers of the inverse root first,
// then the DFT runs.
func (s *Strategy) dft3Pass(s0, s1, s2 storage.DataStorage, k modmath.Kernel, w, twiddleRoot uint64, inverse bool) error {
	a0, err := s0.GetArray(storage.ReadWrite, 0, s.sub)
	if err != nil {
		return err
	}
	defer a0.Close()
	a1, err := s1.GetArray(storage.ReadWrite, 0, s.sub)
	if err != nil {
		return err
	}
	defer a1.Close()
	a2, err := s2.GetArray(storage.ReadWrite, 0, s.sub)
	if err != nil {
		return err
	}
	defer a2.Close()

	root1 := twiddleRoot
	root2 := k.Multiply(twiddleRoot, twiddleRoot)
	w1, w2 := uint64(1), uint64(1)

	for j := int64(0); j < s.sub; j++ {
		x0, x1, x2 := a0.Data[j], a1.Data[j], a2.Data[j]
		if inverse {
			// twiddleRoot is rootInv here, so w1=rootInv^j, w2=rootInv^2j
			// undo the forward pass's multiply by root^j / root^2j.
			x1 = k.Multiply(x1, w1)
			x2 = k.Multiply(x2, w2)
		}
		y0, y1, y2 := winogradDFT3(x0, x1, x2, w, k)
		if !inverse {
			y1 = k.Multiply(y1, w1)
			y2 = k.Multiply(y2, w2)
		}
		a0.Data[j], a1.Data[j], a2.Data[j] = y0, y1, y2

		w1 = k.Multiply(w1, root1)
		w2 = k.Multiply(w2, root2)
	}
	return nil
}

// winogradDFT3 computes the length-3 DFT of (x0, x1, x2) under the cube
// root of unity w, using the WFTA reduction to a single field multiply:
// since 1+w+w^2=0, X1 = x0-x2+w*(x1-x2) and X2 = x0-x1-w*(x1-x2). The same
// function, called with w^-1 in place of w, computes the unnormalized
// inverse (3x0, 3x1, 3x2); the caller divides by 3 once for the whole
// array.
func winogradDFT3(x0, x1, x2, w uint64, k modmath.Kernel) (X0, X1, X2 uint64) {
	d := k.Sub(x1, x2)
	m := k.Multiply(w, d)
	X0 = k.Add(k.Add(x0, x1), x2)
	X1 = k.Add(k.Sub(x0, x2), m)
	X2 = k.Sub(k.Sub(x0, x1), m)
	return
}

func scaleArray(store storage.DataStorage, k modmath.Kernel, factor uint64, n int64) error {
	arr, err := store.GetArray(storage.ReadWrite, 0, n)
	if err != nil {
		return err
	}
	defer arr.Close()
	for i := range arr.Data {
		arr.Data[i] = k.Multiply(arr.Data[i], factor)
	}
	return nil
}
