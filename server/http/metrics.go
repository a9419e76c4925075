package http

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)

	return &metrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "relay",
			Name:      "generate_requests_total",
			Help:      "Generate requests by outcome.",
		}, []string{"outcome"}),
		latency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "relay",
			Name:      "generate_duration_seconds",
			Help:      "Time spent waiting on the generation service.",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"outcome"}),
	}
}
