// Package modmath implements the fixed-modulus modular arithmetic kernel
// that the NTT convolution pipeline runs on: Montgomery and Barrett
// reduction, modular exponentiation, and n-th roots of unity for the three
// NTT-friendly primes used by the convolver.
package modmath

// The convolution engine runs three independent NTTs under three distinct
// primes of the form k*2^m+1 and recombines the results with the carry-CRT
// finalizer. These three are the classic triple used for NTT-based
// big-integer multiplication (three primes whose product comfortably
// exceeds base^2*maxLen for any digit base/length this engine is expected
// to see, each with enough 2-adicity for a useful transform length, and a
// shared primitive root of 3 for all three so one code path derives every
// root of unity they need):
//
//	998244353  = 119*2^23+1
//	1004535809 = 479*2^21+1
//	469762049  = 7*2^26+1
//
// The power-of-two transform length any *single* modulus supports is
// bounded by its own 2-adicity (23, 21 and 26 respectively), but since the
// three-modulus convolver runs the same requested length under all three
// simultaneously, the system-wide ceiling is the smallest of the three:
// MaxPow2Order below. None of the three has a factor of 3 in p-1, so the
// production triple never exercises the Factor-3 wrapper (package
// factor3); that wrapper is grounded and tested against a modulus chosen
// specifically to have one (see factor3's tests) rather than against this
// production triple — see DESIGN.md.
const (
	Modulus0 uint64 = 998244353
	Modulus1 uint64 = 1004535809
	Modulus2 uint64 = 469762049

	// MaxPow2Order is the largest m such that 2^m divides every
	// Modulus_i - 1: the system-wide power-of-two transform length
	// ceiling for the three-modulus convolver.
	MaxPow2Order = 21
)

// Moduli lists the three primes in descending order, matching the order the
// carry-CRT finalizer expects (p0 > p1 > p2).
var Moduli = [3]uint64{Modulus1, Modulus0, Modulus2}

// PrimitiveRoots holds a primitive root of the multiplicative group for each
// entry of Moduli, in the same order. All three happen to share 3 as a
// primitive root.
var PrimitiveRoots = [3]uint64{3, 3, 3}
