package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsEndpoint(t *testing.T) {
	// Counters only appear after the first observation.
	AssessmentsTotal.WithLabelValues("LOW").Inc()
	BlockedTotal.Inc()
	SuspiciousClustersTotal.Add(2)
	AssessmentDuration.Observe(0.01)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	Handler().ServeHTTP(w, req)

	require.Equal(t, 200, w.Code)
	body := w.Body.String()

	for _, name := range []string{
		"monguard_risk_assessments_total",
		"monguard_risk_blocked_total",
		"monguard_risk_suspicious_clusters_detected_total",
		"monguard_risk_assessment_duration_seconds",
	} {
		assert.True(t, strings.Contains(body, name), "missing %s", name)
	}
}
