package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "forecast"

// Metrics holds the Prometheus collectors for the store client and the emulator.
type Metrics struct {
	// Outbound requests to the document store.
	StoreRequests        *prometheus.CounterVec   // labels: method, outcome={ok,status,error}
	StoreRequestDuration *prometheus.HistogramVec // labels: method

	// Emulator side.
	EmulatorRequests *prometheus.CounterVec // labels: method, code
	EmulatorRecords  prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered, which is what tests want.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		StoreRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_requests_total",
			Help:      "Requests sent to the document store by method and outcome.",
		}, []string{"method", "outcome"}),
		StoreRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_request_duration_seconds",
			Help:      "Document store round trip duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"method"}),
		EmulatorRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emulator_requests_total",
			Help:      "Requests served by the emulator by method and status code.",
		}, []string{"method", "code"}),
		EmulatorRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "emulator_records",
			Help:      "Records currently held by the emulator.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.StoreRequests,
			m.StoreRequestDuration,
			m.EmulatorRequests,
			m.EmulatorRecords,
		)
	}
	return m
}
