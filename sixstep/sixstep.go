// Package sixstep implements component D, the out-of-cache-but-in-RAM
// Six-step FNT: it reshapes a length-n transform into an n1*n2 matrix with
// both factors close to sqrt(n) and expresses the transform as two rounds
// of smaller Table FNTs (package ntt) separated by transposes and a
// twiddle multiply, following the classic Bailey six-step decomposition.
//
// Grounded on the teacher's pattern (rns_ring.go, rns_basis_extension.go)
// of expressing an RNS-wide operation as a set of independent per-slice
// operations fanned out with the shared concurrency.Runner, applied here to
// the six-step matrix's rows/columns instead of RNS limbs.
package sixstep

import (
	"github.com/go-apfloat/apfloat/concurrency"
	"github.com/go-apfloat/apfloat/modmath"
	"github.com/go-apfloat/apfloat/ntt"
	"github.com/go-apfloat/apfloat/storage"
)

// Strategy is component D. It requires the whole transform to fit in RAM
// (via DataStorage.GetArray) but not in cache; the strategy selector
// (package selector) hands it lengths too large for the Table FNT but
// still small enough to address as one in-memory array.
type Strategy struct {
	n, n1, n2 int64
	runner    *concurrency.Runner
}

// New returns a Six-step FNT strategy for transform length n, with row and
// column transforms fanned out across runner (nil runs single-threaded, as
// required by spec §5: components accepting a runner degrade gracefully
// when it is absent).
func New(n int64, runner *concurrency.Runner) (*Strategy, error) {
	if err := ntt.CheckLength(n); err != nil {
		return nil, err
	}
	n1, n2 := ntt.FactorSquareish(n)
	return &Strategy{n: n, n1: n1, n2: n2, runner: runner}, nil
}

func (s *Strategy) Length() int64 { return s.n }

func (s *Strategy) Transform(store storage.DataStorage, k modmath.Kernel, root uint64) error {
	return s.run(store, k, root)
}

func (s *Strategy) InverseTransform(store storage.DataStorage, k modmath.Kernel, rootInv uint64) error {
	if err := s.run(store, k, rootInv); err != nil {
		return err
	}
	arr, err := store.GetArray(storage.ReadWrite, 0, s.n)
	if err != nil {
		return err
	}
	defer arr.Close()
	nInv := k.Inverse(uint64(s.n) % k.Modulus)
	for i := range arr.Data {
		arr.Data[i] = k.Multiply(arr.Data[i], nInv)
	}
	return nil
}

// run executes the six-step pipeline described in spec §4.D: transpose,
// transform n2 columns, twiddle multiply, transpose, transform n1 rows,
// transpose. root is the direction-appropriate (forward or inverse) n-th
// root of unity; the caller (InverseTransform above) applies the final
// 1/n scaling, matching the Table FNT's contract of scaling once at the
// top-level Strategy rather than per inner transform.
func (s *Strategy) run(store storage.DataStorage, k modmath.Kernel, root uint64) error {
	n1, n2 := s.n1, s.n2

	arr, err := store.GetArray(storage.ReadWrite, 0, s.n)
	if err != nil {
		return err
	}
	defer arr.Close()
	a := arr.Data

	b := make([]uint64, s.n)
	transpose(a, b, n1, n2)

	wn1 := k.Pow(root, uint64(n2)) // n1-th root of unity
	if err := s.transformRows(b, n2, n1, k, wn1); err != nil {
		return err
	}

	twiddle(b, n2, n1, k, root)

	c := make([]uint64, s.n)
	transpose(b, c, n2, n1)

	wn2 := k.Pow(root, uint64(n1)) // n2-th root of unity
	if err := s.transformRows(c, n1, n2, k, wn2); err != nil {
		return err
	}

	transpose(c, a, n1, n2)
	return nil
}

// transformRows runs an independent length-cols Table FNT over each of the
// rows rows long slices of m, fanned out across s.runner, and puts each
// row's bit-reversed output back into natural order.
func (s *Strategy) transformRows(m []uint64, rows, cols int64, k modmath.Kernel, root uint64) error {
	work := concurrency.FuncRunnable{
		N: int(rows),
		F: func(offset, length int) error {
			for r := offset; r < offset+length; r++ {
				row := m[int64(r)*cols : int64(r+1)*cols]
				ntt.TransformRaw(row, k, root)
				copy(row, ntt.BitReverse(row))
			}
			return nil
		},
	}
	if s.runner == nil {
		return work.GetRunnable(0, int(rows))()
	}
	return s.runner.Run(work)
}

// transpose writes the transpose of the rows x cols row-major matrix src
// into dst (cols x rows row-major).
func transpose(src, dst []uint64, rows, cols int64) {
	for i := int64(0); i < rows; i++ {
		for j := int64(0); j < cols; j++ {
			dst[j*rows+i] = src[i*cols+j]
		}
	}
}

// twiddle multiplies the rows x cols row-major matrix m in place by
// root^(i*j) for entry (i, j).
func twiddle(m []uint64, rows, cols int64, k modmath.Kernel, root uint64) {
	for i := int64(0); i < rows; i++ {
		if i == 0 {
			continue
		}
		rowRoot := k.Pow(root, uint64(i))
		w := uint64(1)
		for j := int64(0); j < cols; j++ {
			m[i*cols+j] = k.Multiply(m[i*cols+j], w)
			w = k.Multiply(w, rowRoot)
		}
	}
}
