package server

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "glacier"

// Metrics holds the Prometheus collectors of the websocket front end.
type Metrics struct {
	Connections prometheus.Gauge

	// labels: type={params,run,sweep,sample,reset,unknown}, outcome={ok,error}
	Requests *prometheus.CounterVec

	// labels: op={run,sweep}
	RunDuration *prometheus.HistogramVec

	SamplesReceived prometheus.Counter
	SamplesEvicted  prometheus.Counter
}

// NewMetrics creates and registers the collectors with the default registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.Connections,
		m.Requests,
		m.RunDuration,
		m.SamplesReceived,
		m.SamplesEvicted,
	)
	return m
}

// NewMetricsForTesting creates unregistered collectors so tests can build
// as many servers as they like.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		Connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections_active",
			Help:      "Open websocket connections.",
		}),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Websocket requests by type and outcome.",
		}, []string{"type", "outcome"}),
		RunDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Engine time of a run or a sweep.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		}, []string{"op"}),
		SamplesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "samples_received_total",
			Help:      "Forcing samples pushed into connection windows.",
		}),
		SamplesEvicted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "samples_evicted_total",
			Help:      "Forcing samples dropped from full windows.",
		}),
	}
}
