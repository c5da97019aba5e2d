package newton

import (
	"math"
	"math/big"

	"github.com/ALTree/bigfloat"

	"github.com/go-apfloat/apfloat/apcontext"
	"github.com/go-apfloat/apfloat/apferr"
	"github.com/go-apfloat/apfloat/bignum"
)

// InverseRoot computes x^(-1/n) to targetBits bits of precision, the basis
// operation ApfloatMath.inverseRoot names as "the basis for most of
// apfloat's non-elementary operations" (division, sqrt and root all reduce
// to it there; this repository ships it standalone since the rest of that
// façade is out of scope).
//
// initialGuess may be nil, in which case a double-precision seed is derived
// from x the same way ApfloatMath.inverseRoot does: scale x's exponent down
// to a float64-representable range, evaluate math.Pow(v, -1/n) there, then
// rescale.
func InverseRoot(ctx *apcontext.Context, x *big.Float, n int64, targetBits uint, initialGuess *big.Float) (*big.Float, error) {
	if x.Sign() == 0 {
		return nil, apferr.New(apferr.Arithmetic, "newton: inverse root of zero")
	}
	if n == 0 {
		return nil, apferr.New(apferr.Arithmetic, "newton: inverse zeroth root")
	}
	if n%2 == 0 && x.Sign() < 0 {
		return nil, apferr.New(apferr.Arithmetic, "newton: even root of negative number would be complex")
	}
	if targetBits == 0 {
		return nil, apferr.New(apferr.Precision, "newton: targetBits must be positive")
	}
	if n < 0 {
		// x^(-1/n) with n<0 is x^(1/|n|); reduce to two positive-n calls,
		// mirroring ApfloatMath.inverseRoot's own n<0 branch.
		y, err := InverseRoot(ctx, x, -n, targetBits, initialGuess)
		if err != nil {
			return nil, err
		}
		return InverseRoot(ctx, y, 1, targetBits, nil)
	}

	seed := initialGuess
	if seed == nil {
		seed = seedInverseRoot(x, n)
	}

	xCopy := new(big.Float).Copy(x)
	xCopy.SetPrec(targetBits + ExtraPrecisionBits)

	divisor := bignum.NewFloat(n, targetBits+ExtraPrecisionBits)

	problem := Problem{
		Divisor:  divisor,
		Residual: inverseRootResidual(xCopy, n),
	}

	return Run(ctx, problem, seed, targetBits)
}

// InverseSqrt is InverseRoot with n=2, the instantiation this repository's
// tests exercise to validate the driver's quadratic-convergence property.
func InverseSqrt(ctx *apcontext.Context, x *big.Float, targetBits uint) (*big.Float, error) {
	return InverseRoot(ctx, x, 2, targetBits, nil)
}

// seedInverseRoot derives a double-precision initial guess for x^(-1/n)
// using ordinary float64 arithmetic, following ApfloatMath.inverseRoot's
// own bootstrap: pull x's binary exponent down to a range float64 can hold
// without over/underflowing, evaluate the root there, then scale back.
func seedInverseRoot(x *big.Float, n int64) *big.Float {
	mantissa := new(big.Float).Copy(x)
	mantissa.SetPrec(64)
	exp2 := mantissa.MantExp(mantissa) // x = mantissa * 2^exp2, mantissa in [0.5, 1)

	scaleQuot := int(exp2) / int(n)
	scaleRem := int(exp2) - scaleQuot*int(n)

	v, _ := mantissa.Float64()
	seedVal := math.Copysign(math.Pow(math.Abs(v), -1.0/float64(n)), v) * math.Pow(2, float64(-scaleRem)/float64(n))

	seed := bignum.NewFloat(seedVal, 53)
	seed.SetMantExp(seed, -scaleQuot)
	return seed
}

// inverseRootResidual builds the residual 1 - x*estimate^n, evaluated at
// estimate's current precision (with ExtraPrecisionBits of guard already
// baked into x's own precision so the subtraction's cancellation doesn't
// erase digits the caller asked for).
func inverseRootResidual(x *big.Float, n int64) Residual {
	return func(estimate *big.Float) *big.Float {
		p := estimate.Prec() + ExtraPrecisionBits

		base := new(big.Float).Copy(estimate)
		base.SetPrec(p)
		exponent := bignum.NewFloat(n, p)
		pow := bigfloat.Pow(base, exponent)
		pow.SetPrec(p)

		xp := new(big.Float).Copy(x)
		xp.SetPrec(p)

		t := new(big.Float).SetPrec(p).Mul(xp, pow)
		one := bignum.NewFloat(1, p)
		t.Sub(one, t)
		t.SetPrec(estimate.Prec())
		return t
	}
}
