package gotrue

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors observed by an HTTPClient.
type Metrics struct {
	RequestDuration *prometheus.HistogramVec
	RequestsTotal   *prometheus.CounterVec
}

// NewMetrics creates the client collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gotrue",
			Subsystem: "client",
			Name:      "request_duration_seconds",
			Help:      "Latency of requests to the auth API.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"operation", "method", "status"}),

		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gotrue",
			Subsystem: "client",
			Name:      "requests_total",
			Help:      "Total requests to the auth API, by outcome.",
		}, []string{"operation", "method", "status"}),
	}
	reg.MustRegister(m.RequestDuration, m.RequestsTotal)
	return m
}

func (m *Metrics) observe(operation, method, status string, seconds float64) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(operation, method, status).Observe(seconds)
	m.RequestsTotal.WithLabelValues(operation, method, status).Inc()
}
