// Package convolve implements component H, the three-modulus convolver:
// the actual Multiply entry point spec §6 names as the library's main
// surface. For each of the three production primes (package modmath) it
// runs the same forward-transform / pointwise-multiply / inverse-transform
// sequence independently, then hands the three residue streams to the
// carry-CRT finalizer (package carrycrt) to recombine into the final
// digit stream.
//
// Grounded on the teacher's RNSRing (rns_ring.go): an RNS-wide operation is
// just the same per-ring operation run independently across a small fixed
// slice of moduli, recombined only at the very end (there, by CRT over an
// arbitrary ring basis; here, by carrycrt's fixed three-prime variant).
// The three moduli are run concurrently via golang.org/x/sync/errgroup,
// the same primitive concurrency.Runner is itself built on, since they
// touch entirely independent storage and share no mutable state.
package convolve

import (
	"golang.org/x/sync/errgroup"

	"github.com/go-apfloat/apfloat/apcontext"
	"github.com/go-apfloat/apfloat/apferr"
	"github.com/go-apfloat/apfloat/carrycrt"
	"github.com/go-apfloat/apfloat/modmath"
	"github.com/go-apfloat/apfloat/selector"
	"github.com/go-apfloat/apfloat/storage"
)

// Multiply is component H's entry point, spec §6's
// multiply(a_digits, a_size, b_digits, b_size, out_size, base). a and b are
// little-endian base-ctx.Radix digit streams (this module's convention
// throughout, see carrycrt); outSize is the number of digits the caller
// needs in the result.
func Multiply(ctx *apcontext.Context, a, b []uint64, outSize int64) (storage.DataStorage, error) {
	ctx.Metrics().ObserveMultiply()

	if len(a) == 0 || len(b) == 0 {
		return nil, apferr.New(apferr.Invariant, "convolve: both operands must be non-empty")
	}
	if outSize <= 0 {
		return nil, apferr.New(apferr.Invariant, "convolve: outSize %d must be positive", outSize)
	}

	builder := selector.NewBuilder(ctx)
	needed := uint64(len(a)) + uint64(len(b))

	var residues [3]storage.DataStorage
	var backing [3]storage.DataStorage

	g := new(errgroup.Group)
	for k := 0; k < 3; k++ {
		k := k
		g.Go(func() error {
			res, store, err := convolveModulus(ctx, builder, a, b, needed, modmath.Moduli[k], modmath.PrimitiveRoots[k])
			if err != nil {
				return err
			}
			residues[k] = res
			backing[k] = store
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		for _, store := range backing {
			if store != nil {
				store.Close()
			}
		}
		return nil, err
	}

	result, err := carrycrt.Combine(ctx, residues, outSize)
	for _, store := range backing {
		store.Close()
	}
	return result, err
}

// convolveModulus runs spec §4.H's five-step procedure for a single prime:
// allocate a storage twice the transform length (operand a in the lower
// half, operand b in the upper half, sharing one allocation), zero-pad,
// forward-transform both halves, pointwise multiply into the lower half,
// and inverse-transform it. The returned DataStorage is a view into store,
// which the caller must Close once done reading the residue.
func convolveModulus(ctx *apcontext.Context, builder *selector.Builder, a, b []uint64, needed, modulus, primitiveRoot uint64) (storage.DataStorage, storage.DataStorage, error) {
	strat, err := builder.CreatePow2(int64(needed))
	if err != nil {
		return nil, nil, err
	}
	length := strat.Length()

	store, err := ctx.NewStorage(2 * length)
	if err != nil {
		return nil, nil, err
	}

	k := modmath.NewKernel(modulus)

	if err := writeReducedDigits(store, 0, a, modulus); err != nil {
		store.Close()
		return nil, nil, err
	}
	if err := writeReducedDigits(store, length, b, modulus); err != nil {
		store.Close()
		return nil, nil, err
	}

	lower, err := store.Subsequence(0, length)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	upper, err := store.Subsequence(length, length)
	if err != nil {
		store.Close()
		return nil, nil, err
	}

	root := k.NthRoot(primitiveRoot, uint64(length), false)
	rootInv := k.NthRoot(primitiveRoot, uint64(length), true)

	if err := strat.Transform(lower, k, root); err != nil {
		store.Close()
		return nil, nil, err
	}
	if err := strat.Transform(upper, k, root); err != nil {
		store.Close()
		return nil, nil, err
	}

	if err := pointwiseMultiply(lower, upper, k, length); err != nil {
		store.Close()
		return nil, nil, err
	}

	if err := strat.InverseTransform(lower, k, rootInv); err != nil {
		store.Close()
		return nil, nil, err
	}

	return lower, store, nil
}

// writeReducedDigits copies digits into store starting at offset, reducing
// each one modulo modulus first: a caller-chosen digit base may exceed a
// production prime (spec's default radix of 10^9 is in fact slightly
// larger than modmath.Modulus0's ~9.98*10^8), so every value entering a
// residue array must be brought into [0, modulus) explicitly rather than
// assumed to already fit.
func writeReducedDigits(store storage.DataStorage, offset int64, digits []uint64, modulus uint64) error {
	if len(digits) == 0 {
		return nil
	}
	arr, err := store.GetArray(storage.Write, offset, int64(len(digits)))
	if err != nil {
		return err
	}
	for i, d := range digits {
		arr.Data[i] = d % modulus
	}
	return arr.Close()
}

func pointwiseMultiply(a, b storage.DataStorage, k modmath.Kernel, length int64) error {
	aArr, err := a.GetArray(storage.ReadWrite, 0, length)
	if err != nil {
		return err
	}
	bArr, err := b.GetArray(storage.Read, 0, length)
	if err != nil {
		aArr.Close()
		return err
	}
	for i := range aArr.Data {
		aArr.Data[i] = k.Multiply(aArr.Data[i], bArr.Data[i])
	}
	if err := bArr.Close(); err != nil {
		aArr.Close()
		return err
	}
	return aArr.Close()
}
