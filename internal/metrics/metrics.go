// Package metrics exposes Prometheus collectors for HTTP traffic and lead
// imports.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JonMunkholm/leadimport/internal/core"
)

// Metrics owns a registry and the collectors registered on it.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	activeConnections prometheus.Gauge

	imports        *prometheus.CounterVec
	importRows     *prometheus.CounterVec
	importDuration prometheus.Histogram
	columnsCreated prometheus.Counter
	importsBusy    prometheus.Counter
}

// New registers all collectors on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		httpRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		activeConnections: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_active_connections",
				Help: "Number of in-flight HTTP requests",
			},
		),

		imports: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lead_imports_total",
				Help: "Lead imports by outcome (committed, input, schema, store)",
			},
			[]string{"outcome"},
		),
		importRows: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lead_import_rows_total",
				Help: "Rows of committed imports by outcome",
			},
			[]string{"outcome"},
		),
		importDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "lead_import_duration_seconds",
				Help:    "Wall time of lead imports, transaction included",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
		),
		columnsCreated: f.NewCounter(
			prometheus.CounterOpts{
				Name: "lead_columns_created_total",
				Help: "Columns added to the leads table by imports",
			},
		),
		importsBusy: f.NewCounter(
			prometheus.CounterOpts{
				Name: "lead_imports_rejected_total",
				Help: "Imports turned away because no import slot freed up",
			},
		),
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveImport records one finished import.
func (m *Metrics) ObserveImport(result core.ImportResult, err error, elapsed time.Duration) {
	m.importDuration.Observe(elapsed.Seconds())
	if err != nil {
		m.imports.WithLabelValues(core.KindOf(err).String()).Inc()
		return
	}

	m.imports.WithLabelValues("committed").Inc()
	m.importRows.WithLabelValues("inserted").Add(float64(result.Inserted))
	m.importRows.WithLabelValues("updated").Add(float64(result.Updated))
	m.importRows.WithLabelValues("skipped").Add(float64(result.Skipped))
	m.importRows.WithLabelValues("errors").Add(float64(result.Errors))
	m.columnsCreated.Add(float64(len(result.CreatedColumns)))
}

// ObserveRejected records an import refused by the limiter.
func (m *Metrics) ObserveRejected() {
	m.importsBusy.Inc()
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Middleware counts and times requests. Routes are labeled by their chi
// pattern so lead ids do not explode label cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		m.activeConnections.Inc()
		defer m.activeConnections.Dec()

		rw := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(rw, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}

		m.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(rw.statusCode)).Inc()
		m.httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
