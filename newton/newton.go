// Package newton implements component J, the Newton-iteration driver that
// sits on top of the multiplier and builds inverse-root (and, via the
// Residual hook, log/exp) on top of it with adaptively doubled working
// precision.
//
// Grounded directly on org.apfloat.ApfloatMath.inverseRoot
// (_examples/original_source/apFloat/source/org/apfloat/ApfloatMath.java):
// the precision-doubling schedule, the precising-iteration placement search,
// and the truncate-residual-then-update shape are all carried over from
// that method's body essentially statement-for-statement, adapted from
// Apfloat's digit-based Apfloat/radix precision model to math/big.Float's
// bit-based precision model. The elementary-function primitive this
// package's residual hooks reach for (exponentiation of a *big.Float by a
// *big.Float) is github.com/ALTree/bigfloat, the only library in the
// retrieved pack that extends math/big with that operation; the
// teacher's own utils/bignum supplies the scalar plumbing
// (bignum.NewFloat) this package builds values with.
package newton

import (
	"math/big"

	"github.com/go-apfloat/apfloat/apcontext"
	"github.com/go-apfloat/apfloat/apferr"
	"github.com/go-apfloat/apfloat/bignum"
)

// ExtraPrecisionBits is this package's analogue of Apfloat.EXTRA_PRECISION:
// a handful of guard bits carried through the residual computation so that
// the cancellation in "1 - x*estimate^n" (which is small by construction,
// once the estimate is close) doesn't erase precision the caller actually
// asked for. Apfloat's value is tuned for its decimal digit model; this is
// the binary-precision equivalent, sized the same way other bignum guard-bit
// conventions in the Go ecosystem are (a small constant, not a fraction of
// the working precision).
const ExtraPrecisionBits = 32

// Residual evaluates the Newton residual term at estimate's current working
// precision (estimate.Prec()), given the problem's fixed operand x. The
// returned value's precision must be at least estimate's precision; the
// driver truncates it further where the iteration schedule calls for it.
//
// For inverse n-th root (package newton's shipped instantiation, see
// InverseRoot) the residual is 1 - x*estimate^n; the AGM-based log and the
// log-based exp that spec's transcendental façade would build on this driver
// share the same skeleton with different residual formulas, which is why
// this is a function hook rather than a hardcoded body.
type Residual func(estimate *big.Float) *big.Float

// Problem is one instantiation of the generic Newton shape: a residual
// function and the divisor the update term estimate*residual is divided by
// (n for inverse n-th root, 1 for log/exp's additive correction, ...).
type Problem struct {
	Residual Residual
	Divisor  *big.Float
}

// Run executes component J's generic precision-doubling loop: seed is the
// initial estimate at precision seed.Prec(), targetBits is the desired
// final precision in bits. It returns a new *big.Float at precision
// targetBits; seed itself is not mutated.
//
// targetBits must be positive and seed must be non-nil with Prec() > 0 and
// Sign() != 0 (a zero seed can never converge towards a reciprocal-shaped
// residual).
func Run(ctx *apcontext.Context, problem Problem, seed *big.Float, targetBits uint) (*big.Float, error) {
	if targetBits == 0 {
		return nil, apferr.New(apferr.Precision, "newton: targetBits must be positive")
	}
	if seed == nil || seed.Sign() == 0 {
		return nil, apferr.New(apferr.Arithmetic, "newton: seed must be non-nil and non-zero")
	}
	if problem.Residual == nil || problem.Divisor == nil {
		return nil, apferr.New(apferr.Invariant, "newton: problem must supply both Residual and Divisor")
	}

	precision := seed.Prec()
	if precision == 0 {
		precision = 53
	}

	result := new(big.Float).Copy(seed)
	result.SetPrec(precision)

	if precision >= targetBits {
		result.SetPrec(targetBits)
		return result, nil
	}

	iterations := 0
	for maxPrec := precision; maxPrec < targetBits; maxPrec <<= 1 {
		iterations++
	}

	precisingIteration := iterations
	minPrec := precision
	for precisingIteration > 0 {
		guarded := minPrec
		if guarded > ExtraPrecisionBits {
			guarded -= ExtraPrecisionBits
		} else {
			guarded = 0
		}
		if guarded<<uint(precisingIteration) >= targetBits {
			break
		}
		precisingIteration--
		minPrec <<= 1
	}

	divisor := new(big.Float).Copy(problem.Divisor)

	for iterations > 0 {
		iterations--
		ctx.Metrics().ObserveNewtonIteration()

		precision *= 2
		working := precision
		if working > targetBits {
			working = targetBits
		}
		result.SetPrec(working)

		t := problem.Residual(result)
		if iterations < precisingIteration {
			t.SetPrec(working / 2)
		}

		update := new(big.Float).SetPrec(working).Mul(result, t)
		update.SetPrec(working).Quo(update, divisor)
		result.SetPrec(working)
		result.Add(result, update)

		if iterations == precisingIteration {
			t2 := problem.Residual(result)
			update2 := new(big.Float).SetPrec(working).Mul(result, t2)
			update2.Quo(update2, divisor)
			result.Add(result, update2)
		}
	}

	result.SetPrec(targetBits)
	return result, nil
}

// SeedFromFloat64 builds a Newton seed at double precision by evaluating f
// (a plain float64 approximation of the desired quantity, e.g.
// math.Pow(v, -1.0/float64(n))), the same bootstrap Apfloat's own
// inverseRoot uses before handing off to the iteration proper.
func SeedFromFloat64(v float64) *big.Float {
	return bignum.NewFloat(v, 53)
}
