package imagegen

import "github.com/prometheus/client_golang/prometheus"

var (
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sdbridge",
			Subsystem: "imagegen",
			Name:      "requests_total",
			Help:      "Generation requests by backend and outcome",
		},
		[]string{"backend", "result"},
	)

	generateSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sdbridge",
			Subsystem: "imagegen",
			Name:      "generate_seconds",
			Help:      "Successful generation latency by backend",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 80, 160, 320, 600},
		},
		[]string{"backend"},
	)
)

func init() {
	prometheus.MustRegister(requestsTotal, generateSeconds)
}
