package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	ForecastLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "foresight",
			Subsystem: "api",
			Name:      "latency_seconds",
			Help:      "Latency of forecast endpoints",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 120},
		},
		[]string{"endpoint"},
	)

	ForecastErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "foresight",
			Subsystem: "api",
			Name:      "errors_total",
			Help:      "Errors by forecast endpoint",
		},
		[]string{"endpoint"},
	)

	StreamClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "foresight",
			Subsystem: "api",
			Name:      "stream_clients",
			Help:      "Open forecast WebSocket streams",
		},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(ForecastLatency, ForecastErrors, StreamClients)
	})
}
