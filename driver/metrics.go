package driver

import "github.com/prometheus/client_golang/prometheus"

// Metrics is the ambient observability surface named in SPEC_FULL.md:
// nil-safe, never on the hot path when unset. Ground: docker-compose's
// go.mod dependency on prometheus/client_golang, recruited here since
// the teacher itself has no metrics story.
type Metrics struct {
	InFlightResponses prometheus.Gauge
	BytesWritten       *prometheus.CounterVec // labeled by writer kind
}

// NewMetrics registers the driver's gauges/counters against reg.
// Passing a nil *Metrics anywhere in this package is always valid —
// every recording call below guards on it.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		InFlightResponses: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "origin_inflight_responses",
			Help: "Responses handed to the application handler but not yet ENDED.",
		}),
		BytesWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "origin_writer_bytes_total",
			Help: "Bytes written to clients, by writer kind.",
		}, []string{"writer"}),
	}
	if reg != nil {
		reg.MustRegister(m.InFlightResponses, m.BytesWritten)
	}
	return m
}

func (m *Metrics) incInFlight() {
	if m == nil {
		return
	}
	m.InFlightResponses.Inc()
}

func (m *Metrics) decInFlight() {
	if m == nil {
		return
	}
	m.InFlightResponses.Dec()
}

func (m *Metrics) addBytes(writerKind string, n int64) {
	if m == nil {
		return
	}
	m.BytesWritten.WithLabelValues(writerKind).Add(float64(n))
}
