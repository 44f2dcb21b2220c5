package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "browserutility",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by method, route and status code.",
	}, []string{"method", "route", "status"})

	ActionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "browserutility",
		Name:      "actions_total",
		Help:      "Dispatched actions by name and outcome.",
	}, []string{"action", "outcome"})

	DownloadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "browserutility",
		Name:      "downloads_total",
		Help:      "Finished downloads by final state.",
	}, []string{"state"})

	DownloadBytesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "browserutility",
		Name:      "download_bytes_total",
		Help:      "Bytes written by the download manager.",
	})

	ActiveDownloads = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "browserutility",
		Name:      "active_downloads",
		Help:      "Downloads currently in progress.",
	})

	MergeDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "browserutility",
		Name:      "merge_duration_seconds",
		Help:      "Duration of ffmpeg merge runs in seconds.",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
	}, []string{"outcome"})

	HelperDownloadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "browserutility",
		Name:      "helper_downloads_total",
		Help:      "yt-dlp helper downloads by kind and outcome.",
	}, []string{"kind", "outcome"})
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		HTTPRequestsTotal,
		ActionsTotal,
		DownloadsTotal,
		DownloadBytesTotal,
		ActiveDownloads,
		MergeDuration,
		HelperDownloadsTotal,
	)
}

// Outcome maps an error to the "ok"/"error" label value.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
