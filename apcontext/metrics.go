package apcontext

import "github.com/prometheus/client_golang/prometheus"

// metrics bundles the counters spec §4.G/§4.H/§4.I name: strategy-selection
// counts, disk bytes transferred, and multiply/CRT invocation counts (all
// counters; there are no histograms). The disk-bytes counter only grows
// through AddDiskBytesTransferred, which no storage in this module calls,
// so it stays at zero. Registered lazily against a caller-supplied registry
// (agbruneau-Fibonacci/internal/fibonacci/observers.go's promauto style,
// adapted to per-instance registration instead of the package-level
// globals that pattern uses, since a library must stay safe to construct
// more than once per process without duplicate-registration panics).
type metrics struct {
	strategySelections *prometheus.CounterVec
	diskBytesTransferred prometheus.Counter
	multiplyInvocations prometheus.Counter
	crtInvocations      prometheus.Counter
	newtonIterations    prometheus.Counter
}

func newMetrics(reg *prometheus.Registry) *metrics {
	m := &metrics{
		strategySelections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "apfloat_ntt_strategy_selections_total",
			Help: "Number of times each NTT strategy was chosen by the selector.",
		}, []string{"strategy"}),
		diskBytesTransferred: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "apfloat_disk_bytes_transferred_total",
			Help: "Total bytes moved through disk-backed storage transfers.",
		}),
		multiplyInvocations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "apfloat_multiply_invocations_total",
			Help: "Total calls into the three-modulus convolver's Multiply entry point.",
		}),
		crtInvocations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "apfloat_carry_crt_invocations_total",
			Help: "Total calls into the carry-CRT finalizer.",
		}),
		newtonIterations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "apfloat_newton_iterations_total",
			Help: "Total Newton precision-doubling steps run by the Newton driver, across all residual instantiations.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.strategySelections, m.diskBytesTransferred, m.multiplyInvocations, m.crtInvocations, m.newtonIterations)
	}
	return m
}

// ObserveStrategySelection increments the counter for the chosen strategy
// name ("table", "six-step", "two-pass"), optionally suffixed "+factor3".
func (m *metrics) ObserveStrategySelection(strategy string) {
	if m == nil {
		return
	}
	m.strategySelections.WithLabelValues(strategy).Inc()
}

func (m *metrics) AddDiskBytesTransferred(n int64) {
	if m == nil {
		return
	}
	m.diskBytesTransferred.Add(float64(n))
}

func (m *metrics) ObserveMultiply() {
	if m == nil {
		return
	}
	m.multiplyInvocations.Inc()
}

func (m *metrics) ObserveCRT() {
	if m == nil {
		return
	}
	m.crtInvocations.Inc()
}

func (m *metrics) ObserveNewtonIteration() {
	if m == nil {
		return
	}
	m.newtonIterations.Inc()
}
