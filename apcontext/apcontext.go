// Package apcontext implements the configuration contract spec §6 assigns to
// "the context object": default radix, cache-L1 size, max-memory-block size,
// block I/O size, number of processors, a temp-file name generator and
// storage builder factory, plus the one place structured logging
// (github.com/rs/zerolog) and metrics (github.com/prometheus/client_golang)
// get wired in, so the rest of the engine stays injection-free.
//
// Grounded on the teacher's observation pattern
// (agbruneau-Fibonacci/internal/fibonacci/observers.go): a zerolog.Logger
// plus a lazily-registered *prometheus.Registry, but collapsed from that
// repo's multi-backend Logger interface/adapter pair to a bare zerolog.Logger
// field, since this engine only ever talks to one logging backend (the
// adapter layer would be unused abstraction here — see DESIGN.md).
package apcontext

import (
	"os"
	"runtime"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/go-apfloat/apfloat/concurrency"
	"github.com/go-apfloat/apfloat/storage"
)

// Context is the configuration contract spec §6 describes. All values are
// read at strategy-creation time; mutating a Context after components have
// been built from it is not observed, matching the spec's "values are read
// at strategy-creation time" rule.
type Context struct {
	// Radix is the default digit base for digit-stream I/O.
	Radix uint64
	// CacheL1Bytes bounds the Table FNT selection in the strategy
	// selector (package selector): a transform table must fit half this
	// budget to stay on the Table FNT path.
	CacheL1Bytes int64
	// MaxMemoryBlockBytes bounds the Six-step selection: a transform
	// must fit this budget, addressed as one array, to avoid falling
	// back to the disk-backed Two-pass strategy.
	MaxMemoryBlockBytes int64
	// BlockIOBytes sizes every disk storage's direct I/O block (never
	// the 8 KiB default of a naive channel copy).
	BlockIOBytes int64
	// NumProcessors bounds the parallel runner's worker count.
	NumProcessors int
	// TempDir is the directory new disk storages create their temp
	// files in. Empty uses the OS default temp directory.
	TempDir string

	Logger   zerolog.Logger
	Registry *prometheus.Registry

	metricsOnce sync.Once
	metrics     *metrics
}

// DefaultContext returns a Context with conservative defaults and no-op
// logging/metrics, so callers that don't care about observability get a
// side-effect-free engine.
func DefaultContext() *Context {
	return &Context{
		Radix:               1_000_000_000,
		CacheL1Bytes:        32 * 1024,
		MaxMemoryBlockBytes: 64 * 1024 * 1024,
		BlockIOBytes:        1 << 20,
		NumProcessors:       runtime.GOMAXPROCS(0),
		Logger:              zerolog.Nop(),
	}
}

// WithObservability returns a shallow copy of ctx with logging routed to w
// (timestamped, level-aware) and metrics registered against reg. A nil w
// keeps ctx's existing logger; a nil reg leaves the copy's metrics
// unregistered.
func (ctx *Context) WithObservability(w *os.File, reg *prometheus.Registry) *Context {
	out := *ctx
	out.metricsOnce = sync.Once{}
	out.metrics = nil
	if w != nil {
		out.Logger = zerolog.New(w).With().Timestamp().Str("component", "apfloat").Logger()
	}
	out.Registry = reg
	return &out
}

// NewRunner builds a parallel runner capped at ctx.NumProcessors, per the
// concurrency model's "supplied externally from context" rule (spec §5).
func (ctx *Context) NewRunner() *concurrency.Runner {
	n := ctx.NumProcessors
	if n < 1 {
		n = 1
	}
	return &concurrency.Runner{Workers: n}
}

// BlockWords returns the max-memory-block budget expressed in 64-bit words,
// the unit the storage and NTT packages operate in.
func (ctx *Context) BlockWords() int64 {
	if ctx.MaxMemoryBlockBytes <= 0 {
		return storage.DefaultDiskConfig().BlockWords
	}
	return ctx.MaxMemoryBlockBytes / 8
}

// DiskConfig builds a storage.DiskConfig from the context's temp directory
// and I/O block size. The name pattern is the same fixed "apfloat-*.tmp" on
// every call; os.CreateTemp replaces its "*" with a unique string per file
// (the filename generator the configuration contract names).
func (ctx *Context) DiskConfig() storage.DiskConfig {
	blockWords := ctx.BlockIOBytes / 8
	if blockWords <= 0 {
		blockWords = storage.DefaultDiskConfig().BlockWords
	}
	return storage.DiskConfig{
		Dir:         ctx.TempDir,
		NamePattern: "apfloat-*.tmp",
		BlockWords:  blockWords,
	}
}

// NewStorage allocates a DataStorage of the given size, choosing RAM or disk
// the way the builder factory of the configuration contract is expected to:
// RAM while the array fits the max-memory-block budget, disk beyond it.
func (ctx *Context) NewStorage(size int64) (storage.DataStorage, error) {
	if size*8 <= ctx.MaxMemoryBlockBytes || ctx.MaxMemoryBlockBytes <= 0 {
		return storage.NewMemoryStorage(size), nil
	}
	return storage.NewDiskStorage(size, ctx.DiskConfig())
}

// Metrics lazily builds and returns this context's metric set, registering
// it against ctx.Registry the first time it's needed. If ctx.Registry is
// nil the counters still work but are never registered, so unobserved use
// never exposes anything through Prometheus.
func (ctx *Context) Metrics() *metrics {
	ctx.metricsOnce.Do(func() {
		ctx.metrics = newMetrics(ctx.Registry)
	})
	return ctx.metrics
}
