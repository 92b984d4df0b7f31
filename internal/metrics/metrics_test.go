package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.AuditEntries.WithLabelValues("security", "login").Inc()
	m.AuditEntries.WithLabelValues("security", "login").Inc()
	m.AccessDenied.WithLabelValues("logs.view").Inc()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.AuditEntries.WithLabelValues("security", "login")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AccessDenied.WithLabelValues("logs.view")))
}

func TestMetrics_InstancesAreIsolated(t *testing.T) {
	a, b := New(), New()

	a.LoginAttempts.WithLabelValues("success").Inc()

	assert.Equal(t, 0.0, testutil.ToFloat64(b.LoginAttempts.WithLabelValues("success")))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.RequestsTotal.WithLabelValues("GET", "/", "200").Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `travelcms_http_requests_total{method="GET",route="/",status="200"} 1`)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
