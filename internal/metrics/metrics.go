package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the engine's Prometheus collectors. A nil *Metrics is valid
// and records nothing, so tests can pass nil.
type Metrics struct {
	holdsCreated       *prometheus.CounterVec
	capacityRejections prometheus.Counter
	expiredHolds       *prometheus.CounterVec
	sweepDuration      prometheus.Histogram
}

// New registers the engine collectors on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		holdsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reservation_holds_created_total",
			Help: "Holds created, by kind.",
		}, []string{"kind"}),
		capacityRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reservation_capacity_rejections_total",
			Help: "Stock hold requests rejected for insufficient capacity.",
		}),
		expiredHolds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reservation_holds_expired_total",
			Help: "Holds transitioned to expired by the reaper, by kind.",
		}, []string{"kind"}),
		sweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "reservation_reaper_sweep_duration_seconds",
			Help:    "Duration of reaper sweeps.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.holdsCreated, m.capacityRejections, m.expiredHolds, m.sweepDuration)
	return m
}

func (m *Metrics) HoldCreated(kind string) {
	if m == nil {
		return
	}
	m.holdsCreated.WithLabelValues(kind).Inc()
}

func (m *Metrics) CapacityRejected() {
	if m == nil {
		return
	}
	m.capacityRejections.Inc()
}

func (m *Metrics) HoldsExpired(kind string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.expiredHolds.WithLabelValues(kind).Add(float64(n))
}

func (m *Metrics) SweepObserved(seconds float64) {
	if m == nil {
		return
	}
	m.sweepDuration.Observe(seconds)
}
