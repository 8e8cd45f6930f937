// Package telemetry exposes Prometheus metrics for the console server:
// HTTP request counts and latency, toast volume by tone, panel mutations by
// outcome, wizard submissions and active sessions.
package telemetry

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "console"

// Metrics holds every collector the server registers. A nil *Metrics is a
// valid no-op recorder.
type Metrics struct {
	httpRequests   *prometheus.CounterVec
	httpLatency    *prometheus.HistogramVec
	toasts         *prometheus.CounterVec
	panelMutations *prometheus.CounterVec
	submissions    *prometheus.CounterVec
	activeSessions prometheus.Gauge
}

// NewMetrics creates and registers the collectors. A nil registerer uses the
// default Prometheus registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		toasts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ui",
			Name:      "toasts_total",
			Help:      "Toast notifications shown, by tone.",
		}, []string{"tone"}),
		panelMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "panel",
			Name:      "mutations_total",
			Help:      "Entity panel confirm operations by panel, operation and outcome.",
		}, []string{"panel", "operation", "outcome"}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "wizard",
			Name:      "submissions_total",
			Help:      "Stepped form submissions by form and outcome.",
		}, []string{"form", "outcome"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "active",
			Help:      "Console sessions currently mounted.",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.httpRequests, m.httpLatency, m.toasts, m.panelMutations, m.submissions, m.activeSessions)
	return m
}

// ObserveToast counts a toast.
func (m *Metrics) ObserveToast(tone string) {
	if m == nil {
		return
	}
	m.toasts.WithLabelValues(tone).Inc()
}

// ObserveMutation counts a panel confirm operation.
func (m *Metrics) ObserveMutation(panel, operation, outcome string) {
	if m == nil {
		return
	}
	m.panelMutations.WithLabelValues(panel, operation, outcome).Inc()
}

// ObserveSubmission counts a wizard submission.
func (m *Metrics) ObserveSubmission(form, outcome string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(form, outcome).Inc()
}

// SessionOpened increments the active session gauge.
func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.activeSessions.Inc()
}

// SessionClosed decrements the active session gauge.
func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.activeSessions.Dec()
}

// Middleware records request count and latency per route pattern.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if m == nil {
				return next(c)
			}
			start := time.Now()
			err := next(c)

			route := c.Path()
			if route == "" {
				route = c.Request().URL.Path
			}
			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			method := c.Request().Method
			m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
			m.httpLatency.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// Handler serves the registry in Prometheus exposition format.
func Handler(g prometheus.Gatherer) echo.HandlerFunc {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return echo.WrapHandler(promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
}
