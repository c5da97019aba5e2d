package modmath

// Kernel is the modular-arithmetic kernel of component A: it holds one
// active modulus as state and exposes the add/sub/mul/pow/inverse family
// the NTT strategies and the convolver build on. A Kernel is immutable once
// constructed and safe for concurrent use by multiple goroutines, since all
// of its methods are pure functions of their arguments plus the
// precomputed reduction constants.
type Kernel struct {
	Modulus uint64
	brc     BarrettConstant
	mrc     MontgomeryConstant
}

// NewKernel builds a Kernel for the given odd prime modulus.
func NewKernel(modulus uint64) Kernel {
	return Kernel{
		Modulus: modulus,
		brc:     NewBarrettConstant(modulus),
		mrc:     NewMontgomeryConstant(modulus),
	}
}

// Add returns a+b mod q.
func (k Kernel) Add(a, b uint64) uint64 {
	return CRed(a+b, k.Modulus)
}

// Sub returns a-b mod q.
func (k Kernel) Sub(a, b uint64) uint64 {
	return CRed(a+k.Modulus-b, k.Modulus)
}

// Negate returns -a mod q.
func (k Kernel) Negate(a uint64) uint64 {
	if a == 0 {
		return 0
	}
	return k.Modulus - a
}

// Multiply returns a*b mod q.
func (k Kernel) Multiply(a, b uint64) uint64 {
	return BRed(a, b, k.brc)
}

// Divide returns a/b mod q, i.e. a * b^-1 mod q.
func (k Kernel) Divide(a, b uint64) uint64 {
	return k.Multiply(a, k.Inverse(b))
}

// Pow returns a^e mod q.
func (k Kernel) Pow(a, e uint64) uint64 {
	return ModExp(a, e, k.Modulus)
}

// Inverse returns a^-1 mod q.
func (k Kernel) Inverse(a uint64) uint64 {
	return ModInverse(a, k.Modulus)
}

// NthRoot returns a primitive n-th root of unity mod q derived from
// primitiveRoot (or its inverse, when inverse is true). n must divide q-1.
func (k Kernel) NthRoot(primitiveRoot, n uint64, inverse bool) uint64 {
	return NthRoot(primitiveRoot, n, k.Modulus, inverse)
}

// MontgomeryForm converts a into Montgomery representation.
func (k Kernel) MontgomeryForm(a uint64) uint64 {
	return MForm(a, k.brc)
}

// FromMontgomeryForm converts a out of Montgomery representation.
func (k Kernel) FromMontgomeryForm(a uint64) uint64 {
	return IMForm(a, k.mrc)
}

// MontgomeryMultiply returns a*b*2^-64 mod q for a, b already in
// Montgomery form, leaving the product in Montgomery form too, fully
// reduced to [0, q).
func (k Kernel) MontgomeryMultiply(a, b uint64) uint64 {
	return MRed(a, b, k.mrc)
}

// BarrettConstant exposes the kernel's precomputed Barrett reduction state,
// for callers (e.g. the vectorized NTT butterflies) that want to reduce
// many values without looking the constant up per call.
func (k Kernel) BarrettConstant() BarrettConstant {
	return k.brc
}

// MontgomeryConstant exposes the kernel's precomputed Montgomery reduction
// state, for the same reason as BarrettConstant.
func (k Kernel) MontgomeryConstant() MontgomeryConstant {
	return k.mrc
}
