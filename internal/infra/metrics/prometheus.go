package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	JobsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "subtitle_jobs_processed_total",
		Help: "Total number of extraction jobs processed, by kind and status",
	}, []string{"kind", "status"})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "subtitle_stage_duration_seconds",
		Help:    "Duration of each extraction pipeline stage",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
	}, []string{"stage"})

	FramesDecodedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "subtitle_frames_decoded_total",
		Help: "Total number of sampled video frames decoded",
	})

	FramesSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "subtitle_frames_skipped_total",
		Help: "Sampled frames whose subtitle area was empty",
	})

	SegmentsComposedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "subtitle_segments_composed_total",
		Help: "Total number of segments stacked into composites",
	})

	ActiveWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "subtitle_active_workers",
		Help: "Number of workers currently processing a job",
	})

	RetryTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "subtitle_retry_total",
		Help: "Total number of retries",
	}, []string{"attempt"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "subtitle_http_requests_total",
		Help: "HTTP API requests, by route pattern and status class",
	}, []string{"route", "code"})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
