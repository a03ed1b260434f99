package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/kleinvault/kleinvault/internal/logging"
)

func TestMetricsHandlerExposesCounters(t *testing.T) {
	m := NewMetrics("kleinvault")

	m.RecordSubmission()
	m.RecordTransition("waiting_for_user")
	m.RecordValidation(true)
	m.RecordValidation(false)
	m.RecordJobDuration(42)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	m.Handler().ServeHTTP(w, req)

	body := w.Body.String()
	for _, want := range []string{
		"kleinvault_jobs_submitted_total 1",
		`kleinvault_job_transitions_total{status="waiting_for_user"} 1`,
		`kleinvault_validation_outcomes_total{outcome="valid"} 1`,
		`kleinvault_validation_outcomes_total{outcome="invalid"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected metric %q in output", want)
		}
	}
}

func TestMiddlewareRecordsRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)

	m := NewMetrics("kleinvault")
	logger := logging.NewLogger()

	router := gin.New()
	router.Use(Middleware(m, logger))
	router.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	router.ServeHTTP(w, req)

	mw := httptest.NewRecorder()
	m.Handler().ServeHTTP(mw, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(mw.Body.String(), `kleinvault_http_requests_total{endpoint="/ping",method="GET",status="200"} 1`) {
		t.Errorf("expected request counter in output:\n%s", mw.Body.String())
	}
}

func TestMiddlewareCountsServerErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)

	m := NewMetrics("kleinvault")
	logger := logging.NewLogger()

	router := gin.New()
	router.Use(Middleware(m, logger))
	router.GET("/boom", func(c *gin.Context) {
		c.String(http.StatusInternalServerError, "boom")
	})
	router.GET("/missing", func(c *gin.Context) {
		c.String(http.StatusNotFound, "nope")
	})

	for _, path := range []string{"/boom", "/missing"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	}

	mw := httptest.NewRecorder()
	m.Handler().ServeHTTP(mw, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := mw.Body.String()

	if !strings.Contains(body, `kleinvault_errors_total{endpoint="/boom",error_type="server_error",method="GET"} 1`) {
		t.Errorf("expected error counter for 5xx response:\n%s", body)
	}
	if strings.Contains(body, `endpoint="/missing",error_type="server_error"`) {
		t.Errorf("4xx responses must not feed the error counter:\n%s", body)
	}
}

func TestInteractiveSessionsGauge(t *testing.T) {
	m := NewMetrics("kleinvault")

	m.IncInteractiveSessions()
	m.IncInteractiveSessions()
	m.DecInteractiveSessions()

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(w.Body.String(), "kleinvault_interactive_sessions_open 1") {
		t.Errorf("expected gauge value 1:\n%s", w.Body.String())
	}
}
