package cache

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Tier names used as metric label values.
const (
	tierMemory = "memory"
	tierDisk   = "disk"
)

// Metrics wraps prometheus collectors for tiered caches. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	lookupsTotal     *prometheus.CounterVec
	sourceCallsTotal *prometheus.CounterVec
	errorsTotal      *prometheus.CounterVec
	clearsTotal      *prometheus.CounterVec
}

// NewMetrics creates the collectors under the given namespace.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		lookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_lookups_total",
				Help:      "Cache lookups by kind, tier and result",
			},
			[]string{"kind", "tier", "result"},
		),
		sourceCallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_source_calls_total",
				Help:      "Source invocations on full cache misses",
			},
			[]string{"kind", "status"},
		),
		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_errors_total",
				Help:      "Serialization and disk errors surfaced to callers",
			},
			[]string{"kind", "type"},
		),
		clearsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_clears_total",
				Help:      "Number of cache clears",
			},
			[]string{"kind"},
		),
	}
}

// Register registers the collectors with reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.lookupsTotal, m.sourceCallsTotal, m.errorsTotal, m.clearsTotal} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) lookup(kind, tier string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.lookupsTotal.WithLabelValues(kind, tier, result).Inc()
}

func (m *Metrics) sourceCall(kind string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.sourceCallsTotal.WithLabelValues(kind, status).Inc()
}

func (m *Metrics) failure(kind, typ string) {
	if m == nil {
		return
	}
	m.errorsTotal.WithLabelValues(kind, typ).Inc()
}

func (m *Metrics) cleared(kind string) {
	if m == nil {
		return
	}
	m.clearsTotal.WithLabelValues(kind).Inc()
}
