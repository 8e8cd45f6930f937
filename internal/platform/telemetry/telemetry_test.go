package telemetry

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveToast("success")
	m.ObserveMutation("contacts", "save", "ok")
	m.ObserveSubmission("clinic_registration", "ok")
	m.SessionOpened()
	m.SessionClosed()
}

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.ObserveToast("success")
	m.ObserveToast("success")
	m.ObserveToast("warning")
	m.ObserveMutation("staff", "delete", "rejected")
	m.ObserveSubmission("clinic_registration", "ok")
	m.SessionOpened()
	m.SessionOpened()
	m.SessionClosed()

	if got := testutil.ToFloat64(m.toasts.WithLabelValues("success")); got != 2 {
		t.Errorf("success toasts = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.toasts.WithLabelValues("warning")); got != 1 {
		t.Errorf("warning toasts = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.panelMutations.WithLabelValues("staff", "delete", "rejected")); got != 1 {
		t.Errorf("mutations = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.submissions.WithLabelValues("clinic_registration", "ok")); got != 1 {
		t.Errorf("submissions = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.activeSessions); got != 1 {
		t.Errorf("active sessions = %v, want 1", got)
	}
}

func TestMetrics_Middleware(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/api/v1/panels/:panel", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/boom", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusConflict, "busy")
	})

	for _, path := range []string{"/api/v1/panels/staff", "/api/v1/panels/contacts", "/boom"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	if got := testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/api/v1/panels/:panel", "200")); got != 2 {
		t.Errorf("panel requests = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/boom", "409")); got != 1 {
		t.Errorf("conflict requests = %v, want 1", got)
	}
}

func TestMetrics_MiddlewarePassesErrors(t *testing.T) {
	var m *Metrics
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	want := errors.New("fail")
	err := m.Middleware()(func(echo.Context) error { return want })(c)
	if !errors.Is(err, want) {
		t.Errorf("expected handler error to pass through, got %v", err)
	}
}

func TestHandler_Exposition(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.ObserveToast("error")

	e := echo.New()
	e.GET("/metrics", Handler(reg))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `console_ui_toasts_total{tone="error"} 1`) {
		t.Errorf("missing toast counter in exposition:\n%s", rec.Body.String())
	}
}
