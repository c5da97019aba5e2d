// Package carrycrt implements component I, the carry-CRT finalizer: it
// takes the three NTT convolution's per-position residues modulo the three
// production primes (package modmath), lifts each position back to an
// exact integer via Chinese Remainder reconstruction, and propagates the
// resulting base-radix carries into a single digit stream.
//
// Grounded directly on the teacher's PolyToBigintCentered
// (Pro7ech-lattigo/ring/utils.go: CRT reconstruction via precomputed
// (Q/qi)^-1 mod qi constants), generalized from that function's one-shot,
// arbitrary-modulus-count reconstruction of a single big.Int to this
// package's fixed-three-prime, digit-streamed, carry-propagating variant.
// Where the teacher (and math/big itself) reach for arbitrary-precision
// integers to do this kind of reconstruction, this package does too,
// instead of the hand-rolled fixed-width multi-limb arithmetic the
// original Apfloat implementation needed purely because its element type
// (IEEE double) could not otherwise hold the intermediate products exactly
// — see DESIGN.md.
//
// The per-block parallel carry handoff is grounded on the teacher's
// channel-based resource-management idiom, generalized into
// concurrency.MessagePasser: each block's finish phase blocks on
// concurrency.MessagePasser.ReceiveMessage keyed by its own start offset
// until the preceding block has sent its outgoing carry under that key,
// exactly the rendezvous spec.md's parallel mode describes.
package carrycrt

import (
	"math/big"

	"github.com/go-apfloat/apfloat/apcontext"
	"github.com/go-apfloat/apfloat/apferr"
	"github.com/go-apfloat/apfloat/concurrency"
	"github.com/go-apfloat/apfloat/modmath"
	"github.com/go-apfloat/apfloat/storage"
)

// minBlockSplitSize bounds when Combine's parallel mode may split the pass
// into more than one block. The finish phase assumes an incoming carry is
// fully absorbed inside the block that receives it; below this size there
// is no benefit to splitting anyway, so run as a single block rather than
// risk that assumption on a short run.
const minBlockSplitSize = 64

var (
	kernels [3]modmath.Kernel
	tConst  [3]uint64
	// mPair[k] is the pairwise product of the two moduli *not* indexed k,
	// i.e. mPair[0] = p1*p2, mPair[1] = p0*p2, mPair[2] = p0*p1 — the
	// weight y_k is multiplied by in the CRT sum.
	mPair [3]*big.Int
	m012  *big.Int
)

func init() {
	m := [3]*big.Int{
		new(big.Int).SetUint64(modmath.Moduli[0]),
		new(big.Int).SetUint64(modmath.Moduli[1]),
		new(big.Int).SetUint64(modmath.Moduli[2]),
	}

	mPair[0] = new(big.Int).Mul(m[1], m[2])
	mPair[1] = new(big.Int).Mul(m[0], m[2])
	mPair[2] = new(big.Int).Mul(m[0], m[1])

	m012 = new(big.Int).Mul(mPair[0], m[0])

	for k := 0; k < 3; k++ {
		kernels[k] = modmath.NewKernel(modmath.Moduli[k])
		inv := new(big.Int).ModInverse(mPair[k], m[k])
		if inv == nil {
			panic("carrycrt: moduli are not pairwise coprime")
		}
		tConst[k] = inv.Uint64()
	}
}

// crtResidue reconstructs, via the precomputed CRT weights, the exact
// non-negative integer less than modmath.Moduli[0]*Moduli[1]*Moduli[2]
// that the three primes' residues at position global represent.
func crtResidue(global int64, r0, r1, r2 []uint64) *big.Int {
	y0 := kernels[0].Multiply(tConst[0], r0[global])
	y1 := kernels[1].Multiply(tConst[1], r1[global])
	y2 := kernels[2].Multiply(tConst[2], r2[global])

	y := new(big.Int)
	sum := new(big.Int).Mul(mPair[0], y.SetUint64(y0))
	tmp := new(big.Int).Mul(mPair[1], y.SetUint64(y1))
	sum.Add(sum, tmp)
	tmp.Mul(mPair[2], y.SetUint64(y2))
	sum.Add(sum, tmp)
	sum.Mod(sum, m012)
	return sum
}

// Combine is component I's entry point: CarryCRT::carry_crt in spec §6's
// terms. residues holds the three NTT-recombined convolution results,
// modulo modmath.Moduli[0..2] respectively, in that order and of equal
// size. resultSize is the number of digits the caller wants.
//
// A transform rounded up past what the true convolution needed leaves
// genuine zeros at and beyond the true result length (spec §4.I's "extra
// precision" padding); positions at or beyond residues' size are treated
// as exactly such zeros, so resultSize may be larger, equal to, or smaller
// than residues' size. Combine always returns the exact low resultSize
// digits of the integer the residues represent (value mod radix^resultSize);
// if that integer needs more than resultSize digits to be represented
// exactly, Combine reports apferr.Overflow rather than silently dropping
// real precision.
//
// The returned DataStorage holds resultSize digits in base ctx.Radix,
// least-significant digit first (index 0), matching this module's
// little-endian digit-stream convention throughout.
func Combine(ctx *apcontext.Context, residues [3]storage.DataStorage, resultSize int64) (storage.DataStorage, error) {
	ctx.Metrics().ObserveCRT()

	if resultSize <= 0 {
		return nil, apferr.New(apferr.Invariant, "carrycrt: resultSize %d must be positive", resultSize)
	}
	for k := 1; k < 3; k++ {
		if residues[k].Size() != residues[0].Size() {
			return nil, apferr.New(apferr.Invariant, "carrycrt: residue size mismatch: residues[0]=%d residues[%d]=%d", residues[0].Size(), k, residues[k].Size())
		}
	}

	readLen := residues[0].Size()
	if readLen > resultSize {
		readLen = resultSize
	}

	// Residue positions at or beyond resultSize must be zero padding;
	// anything else means the value needs more than resultSize digits.
	if tailLen := residues[0].Size() - readLen; tailLen > 0 {
		for k := 0; k < 3; k++ {
			tail, err := residues[k].GetArray(storage.Read, readLen, tailLen)
			if err != nil {
				return nil, err
			}
			for _, v := range tail.Data {
				if v != 0 {
					return nil, apferr.New(apferr.Overflow, "carrycrt: residues hold nonzero data beyond resultSize %d", resultSize)
				}
			}
		}
	}

	arr0, err := residues[0].GetArray(storage.Read, 0, readLen)
	if err != nil {
		return nil, err
	}
	defer arr0.Close()
	arr1, err := residues[1].GetArray(storage.Read, 0, readLen)
	if err != nil {
		return nil, err
	}
	defer arr1.Close()
	arr2, err := residues[2].GetArray(storage.Read, 0, readLen)
	if err != nil {
		return nil, err
	}
	defer arr2.Close()

	out, err := ctx.NewStorage(resultSize)
	if err != nil {
		return nil, err
	}
	outArr, err := out.GetArray(storage.Write, 0, resultSize)
	if err != nil {
		out.Close()
		return nil, err
	}

	radix := new(big.Int).SetUint64(ctx.Radix)
	if radix.Sign() <= 0 {
		out.Close()
		return nil, apferr.New(apferr.Invariant, "carrycrt: radix must be positive")
	}

	mp := concurrency.NewMessagePasser[int64, *big.Int]()
	runner := ctx.NewRunner()

	work := concurrency.FuncRunnable{
		N: int(resultSize),
		F: func(offset, length int) error {
			return crtBlock(arr0.Data, arr1.Data, arr2.Data, outArr.Data, radix, int64(offset), int64(length), readLen, mp)
		},
	}

	if resultSize < minBlockSplitSize {
		runner = &concurrency.Runner{Workers: 1}
	}

	if runErr := runner.Run(work); runErr != nil {
		outArr.Close()
		out.Close()
		return nil, runErr
	}

	finalCarry := mp.ReceiveMessage(resultSize)
	if finalCarry.Sign() != 0 {
		outArr.Close()
		out.Close()
		return nil, apferr.New(apferr.Overflow, "carrycrt: residues represent more than resultSize %d digits (residual carry %s)", resultSize, finalCarry.String())
	}

	if err := outArr.Close(); err != nil {
		out.Close()
		return nil, err
	}
	return out, nil
}

// crtBlock processes the half-open digit range [offset, offset+length) in
// increasing (least-significant-first) order, writing each digit unshifted
// to out[global]: here index 0 is the least significant digit throughout,
// so the natural traversal for carry propagation is a plain increasing
// loop (see DESIGN.md for how this maps back to spec.md's prose, which
// describes the original's differently-indexed array layout).
//
// Positions at or beyond readLen have no backing residue data — they lie
// past the true convolution length, where the padding is exact zero — so
// only their carry effect on later, kept positions is folded in; nothing
// is read out of bounds for them.
//
// It resolves spec.md §4.I step 4 ("emit the quotient, keep the remainder
// as carry") against how the original Apfloat implementation
// (DoubleCarryCRT.divide) actually divides: the value mod radix is the
// emitted digit and the value div radix is what carries forward — the
// conventional direction for extracting a base-radix digit stream.
func crtBlock(r0, r1, r2, out []uint64, radix *big.Int, offset, length, readLen int64, mp *concurrency.MessagePasser[int64, *big.Int]) error {
	carry := new(big.Int)
	zero := new(big.Int)
	q := new(big.Int)
	rem := new(big.Int)

	for i := int64(0); i < length; i++ {
		global := offset + i

		sum := zero
		if global < readLen {
			sum = crtResidue(global, r0, r1, r2)
		}

		carry.Add(carry, sum)
		q.QuoRem(carry, radix, rem)
		carry.Set(q)
		out[global] = rem.Uint64()
	}

	mp.SendMessage(offset+length, new(big.Int).Set(carry))

	if offset == 0 {
		return nil
	}

	incoming := mp.ReceiveMessage(offset)
	if incoming.Sign() == 0 {
		return nil
	}

	c := new(big.Int).Set(incoming)
	q2 := new(big.Int)
	rem2 := new(big.Int)
	y := new(big.Int)
	for j := int64(0); c.Sign() != 0; j++ {
		if j >= length {
			return apferr.New(apferr.Invariant, "carrycrt: incoming carry %s did not resolve within block [%d, %d)", incoming.String(), offset, offset+length)
		}
		c.Add(c, y.SetUint64(out[offset+j]))
		q2.QuoRem(c, radix, rem2)
		out[offset+j] = rem2.Uint64()
		c.Set(q2)
	}
	return nil
}
