// Package ntt implements component C, the in-cache Table FNT: a radix-2
// forward/inverse number-theoretic transform driven by a precomputed
// root-of-unity table, and the Strategy protocol that C and the other NTT
// backends (sixstep, twopass, factor3) all implement.
//
// The butterfly network is grounded on the teacher's
// ring.NumberTheoreticTransformerStandard (Sande-Tukey DIF forward,
// Cooley-Tukey DIT inverse over a Montgomery/Barrett-reduced ring), but
// generalized from the teacher's fixed negacyclic Z[X]/(X^N+1) ring to a
// plain cyclic length-n transform over an externally supplied modmath.Kernel,
// since the convolution engine needs ordinary cyclic NTTs under three
// different primes rather than one fixed negacyclic ring.
package ntt

import (
	"github.com/go-apfloat/apfloat/apferr"
	"github.com/go-apfloat/apfloat/modmath"
	"github.com/go-apfloat/apfloat/storage"
)

// MaxTransformLength32 is the largest transform length that fits the
// signed-32-bit index constraint spec §4.C imposes on the Table FNT.
const MaxTransformLength32 = 1 << 31

// Strategy is the protocol every NTT backend (Table, Six-step, Two-pass,
// Factor-3) implements; spec §6's external interface.
type Strategy interface {
	// Length returns the transform length this Strategy instance was
	// built for.
	Length() int64
	// Transform runs the forward NTT over s in place, using k as the
	// active modulus and root as the primitive Length()-th root of
	// unity under k.
	Transform(s storage.DataStorage, k modmath.Kernel, root uint64) error
	// InverseTransform runs the inverse NTT over s in place and divides
	// the result through by Length() mod k.Modulus, using rootInv as
	// the inverse of the same root Transform was called with.
	InverseTransform(s storage.DataStorage, k modmath.Kernel, rootInv uint64) error
}

// CheckLength validates n against the constraints spec §4.C imposes: a
// power of two, within the prime's 2^MaxPow2Order ceiling, and within a
// signed 32-bit index.
func CheckLength(n int64) error {
	if n <= 0 || n&(n-1) != 0 {
		return apferr.New(apferr.Invariant, "ntt: length %d is not a power of two", n)
	}
	if n > MaxTransformLength32 {
		return apferr.New(apferr.TransformLengthExceeded, "ntt: length %d exceeds signed-32-bit index budget", n)
	}
	if n > int64(1)<<modmath.MaxPow2Order {
		return apferr.New(apferr.TransformLengthExceeded, "ntt: length %d exceeds 2^%d ceiling of the active modulus", n, modmath.MaxPow2Order)
	}
	return nil
}

// RootPowers builds the length-n/2 table w^0, w^1, ..., w^{n/2-1} mod
// k.Modulus (spec §3's wTable). Created just-in-time per transform; safe to
// cache externally since it depends only on (n, modulus, direction).
func RootPowers(k modmath.Kernel, root uint64, n int64) []uint64 {
	half := n / 2
	table := make([]uint64, half)
	cur := uint64(1)
	for i := int64(0); i < half; i++ {
		table[i] = cur
		cur = k.Multiply(cur, root)
	}
	return table
}

// forwardDIF runs the Sande-Tukey decimation-in-frequency forward
// transform in place over a, of length n, using the root-power table
// built from an n-th root of unity. Output is in bit-reversed order; no
// permutation step is needed since the paired inverseDIT below consumes
// bit-reversed input directly (spec §4.C: "the innermost butterfly pair at
// twiddle w=1 is specialized to avoid a modular multiply").
func forwardDIF(a []uint64, k modmath.Kernel, rootPow []uint64) {
	n := int64(len(a))
	half := n / 2
	for m := half; m >= 1; m >>= 1 {
		step := half / m
		for kk := int64(0); kk < n; kk += 2 * m {
			// j == 0: twiddle is 1, skip the multiply.
			t := a[kk]
			u := a[kk+m]
			a[kk] = k.Add(t, u)
			a[kk+m] = k.Sub(t, u)
			for j := int64(1); j < m; j++ {
				w := rootPow[j*step]
				t := a[kk+j]
				u := a[kk+j+m]
				a[kk+j] = k.Add(t, u)
				a[kk+j+m] = k.Multiply(k.Sub(t, u), w)
			}
		}
	}
}

// inverseDIT runs the Cooley-Tukey decimation-in-time inverse transform in
// place over a (expected in bit-reversed order, e.g. forwardDIF's output),
// using the root-power table built from the inverse root of unity. Output
// is in natural order. Does not scale by 1/n; callers divide through once
// at the top-level Strategy.
func inverseDIT(a []uint64, k modmath.Kernel, rootPowInv []uint64) {
	n := int64(len(a))
	half := n / 2
	for m := int64(1); m < n; m <<= 1 {
		step := half / m
		for kk := int64(0); kk < n; kk += 2 * m {
			A := a[kk]
			B := a[kk+m]
			a[kk] = k.Add(A, B)
			a[kk+m] = k.Sub(A, B)
			for j := int64(1); j < m; j++ {
				w := rootPowInv[j*step]
				A := a[kk+j]
				B := k.Multiply(a[kk+j+m], w)
				a[kk+j] = k.Add(A, B)
				a[kk+j+m] = k.Sub(A, B)
			}
		}
	}
}

// FactorSquareish splits n = 2^e into n1 = 2^(e/2), n2 = n/n1, both powers
// of two with n1 <= n2, the "both factors close to sqrt(n)" decomposition
// the Six-step and Two-pass strategies (spec §4.D/§4.E) reshape their
// transform length into.
func FactorSquareish(n int64) (n1, n2 int64) {
	e := 0
	for (int64(1) << e) < n {
		e++
	}
	e1 := e / 2
	n1 = int64(1) << e1
	n2 = n / n1
	return
}

// BitReverse returns a copy of a permuted by reversing the low
// bits.Len64(n)-1 bits of each index. The Six-step and Two-pass strategies
// use it to bring TransformRaw's bit-reversed row output back into natural
// order before their twiddle and transpose steps; the forward/inverse
// pairing above never needs it internally.
func BitReverse(a []uint64) []uint64 {
	n := len(a)
	out := make([]uint64, n)
	bitsLen := 0
	for (1 << bitsLen) < n {
		bitsLen++
	}
	for i := 0; i < n; i++ {
		out[reverseBits(i, bitsLen)] = a[i]
	}
	return out
}

func reverseBits(x, bitsLen int) int {
	r := 0
	for i := 0; i < bitsLen; i++ {
		r = (r << 1) | (x & 1)
		x >>= 1
	}
	return r
}
