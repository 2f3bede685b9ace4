package sampler

import (
	"github.com/danpilch/pidflame/pkg/probe"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the sampler's Prometheus counters. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	Records   *prometheus.CounterVec
	Lost      prometheus.Counter
	Malformed prometheus.Counter
	Passes    prometheus.Counter
}

// NewMetrics registers the sampler counters with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Records: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pidflame_records_total",
			Help: "Probe records decoded, by event kind.",
		}, []string{"kind"}),
		Lost: f.NewCounter(prometheus.CounterOpts{
			Name: "pidflame_lost_samples_total",
			Help: "Samples dropped by the kernel because a perf buffer was full.",
		}),
		Malformed: f.NewCounter(prometheus.CounterOpts{
			Name: "pidflame_malformed_records_total",
			Help: "Perf samples too short to hold a probe record.",
		}),
		Passes: f.NewCounter(prometheus.CounterOpts{
			Name: "pidflame_poll_passes_total",
			Help: "Completed poll-and-drain passes.",
		}),
	}
}

func (m *Metrics) record(kind probe.EventKind) {
	if m == nil {
		return
	}
	m.Records.WithLabelValues(kind.String()).Inc()
}

func (m *Metrics) lost(n uint64) {
	if m == nil {
		return
	}
	m.Lost.Add(float64(n))
}

func (m *Metrics) malformed() {
	if m == nil {
		return
	}
	m.Malformed.Inc()
}

func (m *Metrics) pass() {
	if m == nil {
		return
	}
	m.Passes.Inc()
}
