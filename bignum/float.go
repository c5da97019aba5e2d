package bignum

import "math/big"

// NewFloat allocates a new *big.Float at the given precision (bits).
// Accepted types mirror NewInt: float64, int64, int, uint64, string,
// *big.Int or *big.Float.
func NewFloat(x interface{}, prec uint) (y *big.Float) {
	y = new(big.Float).SetPrec(prec)

	if x == nil {
		return
	}

	switch x := x.(type) {
	case float64:
		y.SetFloat64(x)
	case int64:
		y.SetInt64(x)
	case int:
		y.SetInt64(int64(x))
	case uint64:
		y.SetUint64(x)
	case string:
		y.SetString(x)
	case *big.Int:
		y.SetInt(x)
	case *big.Float:
		y.Set(x)
	default:
		panic("cannot NewFloat: accepted types are float64, int, int64, uint64, string, *big.Int, *big.Float")
	}

	return
}
