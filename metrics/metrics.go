// Package metrics holds the Prometheus collectors of the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	AnalysesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seolint_analyses_total",
			Help: "Total number of page analyses, labeled by outcome.",
		},
		[]string{"outcome"},
	)
	AnalysisDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "seolint_analysis_duration_seconds",
			Help:    "Duration of complete page analyses in seconds.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60},
		},
	)
	LinkProbesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seolint_link_probes_total",
			Help: "Total number of link probes, labeled by outcome (ok, bad_status, timeout, unreachable, unknown).",
		},
		[]string{"outcome"},
	)
	LinkProbeDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "seolint_link_probe_duration_seconds",
			Help:    "Duration of completed link probes in seconds.",
			Buckets: prometheus.DefBuckets,
		},
	)
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seolint_http_requests_total",
			Help: "Total number of API requests, labeled by route and status code.",
		},
		[]string{"path", "code"},
	)
)

func init() {
	prometheus.MustRegister(AnalysesTotal)
	prometheus.MustRegister(AnalysisDuration)
	prometheus.MustRegister(LinkProbesTotal)
	prometheus.MustRegister(LinkProbeDuration)
	prometheus.MustRegister(HTTPRequestsTotal)
}
