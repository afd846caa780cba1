package txt2img

import "github.com/prometheus/client_golang/prometheus"

var (
	attemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sdbridge",
			Subsystem: "txt2img",
			Name:      "attempts_total",
			Help:      "txt2img submissions by outcome (ok, not_found, error)",
		},
		[]string{"result"},
	)

	imagesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "sdbridge",
		Subsystem: "txt2img",
		Name:      "images_saved_total",
		Help:      "Images decoded and persisted",
	})

	submitSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "sdbridge",
		Subsystem: "txt2img",
		Name:      "submit_seconds",
		Help:      "Wall time of Submit including retries and persistence",
		Buckets:   []float64{1, 2, 5, 10, 20, 40, 80, 160, 320, 600},
	})
)

func init() {
	prometheus.MustRegister(attemptsTotal, imagesTotal, submitSeconds)
}
