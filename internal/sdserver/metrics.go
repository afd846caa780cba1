package sdserver

import "github.com/prometheus/client_golang/prometheus"

var (
	serverReady = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "sdbridge",
		Subsystem: "sdserver",
		Name:      "ready",
		Help:      "1 when the supervised server answered its readiness probe, else 0",
	})

	startsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sdbridge",
			Subsystem: "sdserver",
			Name:      "starts_total",
			Help:      "Server launches by outcome",
		},
		[]string{"result"},
	)

	startupSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "sdbridge",
		Subsystem: "sdserver",
		Name:      "startup_seconds",
		Help:      "Time from launch to first successful readiness probe",
		Buckets:   []float64{1, 5, 10, 20, 30, 45, 60, 90, 120},
	})

	switchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sdbridge",
			Subsystem: "sdserver",
			Name:      "checkpoint_switches_total",
			Help:      "Checkpoint switches by outcome",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(serverReady, startsTotal, startupSeconds, switchesTotal)
}
