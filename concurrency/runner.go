package concurrency

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// ParallelRunnable describes a unit of work of total length N whose slices
// are independent: processing [offset, offset+length) for any disjoint
// partition of [0, N) in any order yields the same result as processing it
// sequentially. NTT row/column transforms and the carry-CRT preliminary
// pass are both ParallelRunnable.
type ParallelRunnable interface {
	Len() int
	// GetRunnable returns a func that processes [offset, offset+length).
	GetRunnable(offset, length int) func() error
}

// Runner fans a ParallelRunnable out across a bounded worker pool. A zero
// Runner behaves as a single-threaded runner (Workers defaults to 1),
// satisfying the requirement that components degrade gracefully when no
// runner, or an explicitly single-threaded one, is supplied.
type Runner struct {
	// Workers is the maximum number of goroutines Run will use. Values
	// <= 1 run the whole range as one slice on the calling goroutine.
	Workers int
}

// NewRunner returns a Runner capped at numberOfProcessors() workers, the
// default the context's configuration contract supplies.
func NewRunner() *Runner {
	return &Runner{Workers: runtime.GOMAXPROCS(0)}
}

// Run splits work.Len() into at most r.Workers contiguous slices and runs
// them concurrently, returning the first error encountered (after all
// in-flight slices have finished, per errgroup semantics).
func (r *Runner) Run(work ParallelRunnable) error {
	n := work.Len()
	if n == 0 {
		return nil
	}

	workers := r.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > n {
		workers = n
	}

	if workers == 1 {
		return work.GetRunnable(0, n)()
	}

	g, _ := errgroup.WithContext(context.Background())

	base := n / workers
	rem := n % workers

	offset := 0
	for i := 0; i < workers; i++ {
		length := base
		if i < rem {
			length++
		}
		if length == 0 {
			continue
		}
		g.Go(work.GetRunnable(offset, length))
		offset += length
	}

	return g.Wait()
}

// FuncRunnable adapts a single closure over [offset, offset+length) into a
// ParallelRunnable, for callers that don't need a dedicated type.
type FuncRunnable struct {
	N int
	F func(offset, length int) error
}

func (f FuncRunnable) Len() int { return f.N }

func (f FuncRunnable) GetRunnable(offset, length int) func() error {
	return func() error { return f.F(offset, length) }
}
