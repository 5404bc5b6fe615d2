package dbsession

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Failure reasons recorded by Metrics.
const (
	ReasonAcquire = "acquire"
	ReasonSetup   = "setup"
)

// Metrics instruments session lifecycle. A nil *Metrics is valid and records nothing.
type Metrics struct {
	acquired        prometheus.Counter
	released        prometheus.Counter
	inUse           prometheus.Gauge
	openFailures    *prometheus.CounterVec
	acquireDuration prometheus.Histogram
}

// NewMetrics creates session metrics and registers them with reg (if non-nil).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		acquired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "carapi_db_sessions_acquired_total",
			Help: "Request-scoped database sessions acquired from the pool.",
		}),
		released: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "carapi_db_sessions_released_total",
			Help: "Request-scoped database sessions released back to the pool.",
		}),
		inUse: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "carapi_db_sessions_in_use",
			Help: "Request-scoped database sessions currently held.",
		}),
		openFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "carapi_db_session_open_failures_total",
			Help: "Failures opening a request-scoped session, by reason.",
		}, []string{"reason"}),
		acquireDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "carapi_db_session_acquire_seconds",
			Help:    "Time spent waiting for a pooled connection.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	if reg != nil {
		reg.MustRegister(m.acquired, m.released, m.inUse, m.openFailures, m.acquireDuration)
	}
	return m
}

func (m *Metrics) observeAcquire(d time.Duration) {
	if m == nil {
		return
	}
	m.acquired.Inc()
	m.inUse.Inc()
	m.acquireDuration.Observe(d.Seconds())
}

func (m *Metrics) observeRelease() {
	if m == nil {
		return
	}
	m.released.Inc()
	m.inUse.Dec()
}

func (m *Metrics) observeFailure(reason string) {
	if m == nil {
		return
	}
	m.openFailures.WithLabelValues(reason).Inc()
}
