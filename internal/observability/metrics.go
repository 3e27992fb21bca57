// Package observability exposes Prometheus metrics for the panel.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/caza2026/panel/internal/listview"
)

// Metrics collects Prometheus metrics for the application.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	fetchesTotal    *prometheus.CounterVec
	actionsTotal    *prometheus.CounterVec
	workspaces      prometheus.Gauge
}

// NewMetrics initialises the registry with HTTP and list view metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "panel_http_requests_total",
		Help: "HTTP requests by route and status.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "panel_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	fetches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "panel_list_fetches_total",
		Help: "Backend page fetches by resource and outcome.",
	}, []string{"resource", "outcome"})
	actions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "panel_row_actions_total",
		Help: "Row actions dispatched by resource, kind and outcome.",
	}, []string{"resource", "kind", "outcome"})
	workspaces := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "panel_open_workspaces",
		Help: "Operator workspaces currently held in memory.",
	})
	registry.MustRegister(
		requests, duration, fetches, actions, workspaces,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		fetchesTotal:    fetches,
		actionsTotal:    actions,
		workspaces:      workspaces,
	}
}

// Handler returns the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records metrics for every HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// Registerer exposes the registry for custom collectors.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

// ObserveFetch implements listview.Recorder.
func (m *Metrics) ObserveFetch(resource listview.Resource, err error) {
	if m == nil {
		return
	}
	m.fetchesTotal.WithLabelValues(string(resource), outcome(err)).Inc()
}

// ObserveAction implements listview.Recorder.
func (m *Metrics) ObserveAction(resource listview.Resource, kind listview.ActionKind, err error) {
	if m == nil {
		return
	}
	m.actionsTotal.WithLabelValues(string(resource), string(kind), outcome(err)).Inc()
}

// SetWorkspaces reports the number of open workspaces.
func (m *Metrics) SetWorkspaces(n int) {
	if m == nil {
		return
	}
	m.workspaces.Set(float64(n))
}

var _ listview.Recorder = (*Metrics)(nil)

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return "error"
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
