package modmath

import "math/bits"

// BarrettConstant stores the precomputed divisor-independent state a
// Barrett-style reduction needs. Every prime this package works with is at
// most 61 bits, so the 128-bit product of two residues always has a high
// word strictly smaller than the modulus; that makes a single hardware
// 128-by-64 division (bits.Div64) both exact and the fastest reduction
// technique available on a 64-bit machine, which is what BRed below uses.
// The struct still carries the modulus so call sites don't need to thread
// it separately, mirroring the shape of a classic Barrett mu constant.
type BarrettConstant struct {
	Modulus uint64
}

// NewBarrettConstant precomputes the reduction state for q.
func NewBarrettConstant(q uint64) BarrettConstant {
	return BarrettConstant{Modulus: q}
}

// BRed returns x*y mod q.
func BRed(x, y uint64, brc BarrettConstant) uint64 {
	hi, lo := bits.Mul64(x, y)
	_, rem := bits.Div64(hi, lo, brc.Modulus)
	return rem
}

// BRedAdd returns x mod q for x in [0, 4*q).
func BRedAdd(x uint64, brc BarrettConstant) uint64 {
	q := brc.Modulus
	for x >= q {
		x -= q
	}
	return x
}

// CRed conditionally subtracts q once: returns x-q if x>=q, else x.
// Equivalent to BRedAdd restricted to x in [0, 2*q).
func CRed(x, q uint64) uint64 {
	if x >= q {
		return x - q
	}
	return x
}

// MontgomeryConstant is -q^-1 mod 2^64, the constant the SOS Montgomery
// multiplication below needs to fold the reduction into the product.
type MontgomeryConstant struct {
	Modulus uint64
	QInvNeg uint64
}

// invertMod64 returns n^-1 mod 2^64 for odd n via 2-adic Newton iteration:
// y is correct to 2 bits initially (n*n = 1 mod 4 for any odd n) and each
// squaring step doubles the number of correct bits, so 5 steps suffice to
// cover all 64 bits.
func invertMod64(n uint64) uint64 {
	y := n
	for i := 0; i < 5; i++ {
		y = y * (2 - n*y)
	}
	return y
}

// NewMontgomeryConstant precomputes the Montgomery reduction state for the
// odd modulus q.
func NewMontgomeryConstant(q uint64) MontgomeryConstant {
	return MontgomeryConstant{Modulus: q, QInvNeg: -invertMod64(q)}
}

// MRed returns x*y*2^-64 mod q (i.e. the Montgomery product of x and y).
// x*y + m*q is divisible by 2^64 by construction of m, so the quotient is
// exactly hi + mHi plus a carry out of the (lo+mLo) word, which is 1
// whenever lo is nonzero (lo+mLo is then exactly 2^64, else exactly 0).
func MRed(x, y uint64, mrc MontgomeryConstant) uint64 {
	hi, lo := bits.Mul64(x, y)
	m := lo * mrc.QInvNeg
	mHi, _ := bits.Mul64(m, mrc.Modulus)

	t := hi + mHi
	if lo != 0 {
		t++
	}
	for t >= mrc.Modulus {
		t -= mrc.Modulus
	}
	return t
}

// MForm converts x into Montgomery form: x*2^64 mod q. x must already be
// reduced mod q so that the 128-bit value x*2^64 (hi=x, lo=0) satisfies the
// hi<q precondition bits.Div64 needs.
func MForm(x uint64, brc BarrettConstant) uint64 {
	_, rem := bits.Div64(x, 0, brc.Modulus)
	return rem
}

// IMForm converts x out of Montgomery form: x*2^-64 mod q. This is exactly
// a Montgomery product of x with the (non-Montgomery) integer 1.
func IMForm(x uint64, mrc MontgomeryConstant) uint64 {
	return MRed(x, 1, mrc)
}

// ModExp returns x^e mod q by square-and-multiply in Montgomery form.
func ModExp(x, e, q uint64) uint64 {
	brc := NewBarrettConstant(q)
	mrc := NewMontgomeryConstant(q)

	y := MForm(1, brc)
	xm := MForm(x, brc)

	for ; e > 0; e >>= 1 {
		if e&1 == 1 {
			y = CRed(MRed(y, xm, mrc), q)
		}
		xm = CRed(MRed(xm, xm, mrc), q)
	}

	return IMForm(y, mrc)
}

// ModExpMontgomery returns x^e mod q where x is supplied and returned in
// Montgomery form, avoiding the MForm/IMForm conversions ModExp pays for a
// single exponentiation; it is the form repeated exponentiations (root
// table construction) should use.
func ModExpMontgomery(x, e, q uint64, mrc MontgomeryConstant, brc BarrettConstant) uint64 {
	y := MForm(1, brc)
	for ; e > 0; e >>= 1 {
		if e&1 == 1 {
			y = CRed(MRed(y, x, mrc), q)
		}
		x = CRed(MRed(x, x, mrc), q)
	}
	return y
}

// ModInverse returns x^-1 mod q, or panics if x is 0 mod q; callers that
// need to surface this as a typed arithmetic error should check x first.
func ModInverse(x, q uint64) uint64 {
	if x%q == 0 {
		panic("modmath: inverse of zero")
	}
	return ModExp(x, q-2, q)
}

// NthRoot returns primitiveRoot^((q-1)/n) mod q, or its modular inverse
// when inverse is true. n must divide q-1.
func NthRoot(primitiveRoot, n, q uint64, inverse bool) uint64 {
	if (q-1)%n != 0 {
		panic("modmath: n does not divide q-1")
	}
	w := ModExp(primitiveRoot, (q-1)/n, q)
	if inverse {
		return ModInverse(w, q)
	}
	return w
}
