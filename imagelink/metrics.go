package imagelink

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "imagelink",
			Name:      "cache_hits_total",
			Help:      "Total number of images served from the disk cache",
		},
	)

	cacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "imagelink",
			Name:      "cache_misses_total",
			Help:      "Total number of images missing from the disk cache",
		},
	)

	renderErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "imagelink",
			Name:      "render_errors_total",
			Help:      "Total number of failed renders",
		},
		[]string{"kind"},
	)

	renderDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "imagelink",
			Name:      "render_seconds",
			Help:      "Duration of the renders in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)
)

// recordRender records a render and its outcome.
func recordRender(seconds float64, err error) {
	renderDuration.Observe(seconds)
	if err != nil {
		renderErrors.WithLabelValues(errorKind(err)).Inc()
	}
}
