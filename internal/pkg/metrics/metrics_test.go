package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordDecision(t *testing.T) {
	m := New()
	m.RecordDecision("update_course", true, "")
	m.RecordDecision("update_course", false, "forbidden")
	m.RecordDecision("update_course", false, "forbidden")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.AuthzDecisionsTotal.WithLabelValues("update_course", "allow")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.AuthzDecisionsTotal.WithLabelValues("update_course", "forbidden")))
}

func TestRecordEnrollmentDelta(t *testing.T) {
	m := New()
	m.RecordEnrollmentDelta(3, 1, 2)
	m.RecordEnrollmentDelta(0, 0, 0)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.EnrollmentChangesTotal.WithLabelValues("added")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EnrollmentChangesTotal.WithLabelValues("removed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.EnrollmentChangesTotal.WithLabelValues("skipped")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.ObserveHTTP(http.MethodGet, "/api/v1/courses/:id", http.StatusOK, 15*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `coursehub_http_requests_total{method="GET",path="/api/v1/courses/:id",status="200"} 1`), body)
	assert.Contains(t, body, "coursehub_http_request_duration_seconds_bucket")
}
