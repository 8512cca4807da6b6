// Package metrics provides Prometheus instrumentation for the risk engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// AssessmentsTotal counts completed transaction assessments by level.
	AssessmentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "monguard",
			Subsystem: "risk",
			Name:      "assessments_total",
			Help:      "Total transaction risk assessments by resulting level.",
		},
		[]string{"level"},
	)

	// AssessmentDuration observes end-to-end assessment latency.
	AssessmentDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "monguard",
			Subsystem: "risk",
			Name:      "assessment_duration_seconds",
			Help:      "Transaction assessment duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// PatternDetectionsTotal counts pattern classifications by type.
	PatternDetectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "monguard",
			Subsystem: "risk",
			Name:      "pattern_detections_total",
			Help:      "Total pattern classifications by detected type.",
		},
		[]string{"pattern"},
	)

	// SuspiciousClustersTotal counts clusters found by detection runs.
	SuspiciousClustersTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "monguard",
			Subsystem: "risk",
			Name:      "suspicious_clusters_detected_total",
			Help:      "Total suspicious wallet clusters detected.",
		},
	)

	// BlockedTotal counts assessments that recommended blocking.
	BlockedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "monguard",
			Subsystem: "risk",
			Name:      "blocked_total",
			Help:      "Total assessments whose score crossed the block threshold.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		AssessmentsTotal,
		AssessmentDuration,
		PatternDetectionsTotal,
		SuspiciousClustersTotal,
		BlockedTotal,
	)
}

// Handler returns the Prometheus scrape handler for a /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
