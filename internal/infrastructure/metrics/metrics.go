// Package metrics exposes Prometheus collectors for the workflow, the
// event bus, the scheduler, the renderer breaker and the HTTP API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/internhub/internhub/internal/application/command"
	"github.com/internhub/internhub/internal/domain/shared"
	"github.com/internhub/internhub/internal/infrastructure/messaging"
	"github.com/internhub/internhub/internal/infrastructure/scheduler"
	"github.com/internhub/internhub/pkg/circuitbreaker"
)

const namespace = "internhub"

// Metrics owns a private registry with every collector of the process.
type Metrics struct {
	registry *prometheus.Registry

	transitions   *prometheus.CounterVec
	renders       *prometheus.CounterVec
	eventsHandled *prometheus.CounterVec
	eventDuration *prometheus.HistogramVec
	jobRuns       *prometheus.CounterVec
	jobDuration   *prometheus.HistogramVec
	breakerState  *prometheus.GaugeVec
	httpInFlight  prometheus.Gauge
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

var (
	_ command.Metrics    = (*Metrics)(nil)
	_ messaging.Observer = (*Metrics)(nil)
	_ scheduler.Observer = (*Metrics)(nil)
)

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "workflow",
			Name:      "transitions_total",
			Help:      "Committed workflow state changes.",
		}, []string{"entity", "transition"}),

		renders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "documents",
			Name:      "renders_total",
			Help:      "Agreement document render attempts by outcome.",
		}, []string{"outcome"}),

		eventsHandled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "handled_total",
			Help:      "Domain events delivered to handlers.",
		}, []string{"type", "status"}),

		eventDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "handler_duration_seconds",
			Help:      "Duration of event handler calls.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
		}, []string{"type"}),

		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "job_runs_total",
			Help:      "Scheduled job runs by outcome.",
		}, []string{"job", "status"}),

		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "job_duration_seconds",
			Help:      "Duration of scheduled job runs.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14),
		}, []string{"job"}),

		breakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "circuit_breaker",
			Name:      "state",
			Help:      "Circuit breaker state: 0 closed, 1 open, 2 half-open.",
		}, []string{"name"}),

		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),

		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		}, []string{"method", "route", "status"}),

		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		}, []string{"method", "route"}),
	}

	m.registry.MustRegister(
		m.transitions,
		m.renders,
		m.eventsHandled,
		m.eventDuration,
		m.jobRuns,
		m.jobDuration,
		m.breakerState,
		m.httpInFlight,
		m.httpRequests,
		m.httpDuration,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler exposes the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Transition implements command.Metrics.
func (m *Metrics) Transition(entity, transition string) {
	m.transitions.WithLabelValues(entity, transition).Inc()
}

// DocumentRender implements command.Metrics.
func (m *Metrics) DocumentRender(outcome string) {
	m.renders.WithLabelValues(outcome).Inc()
}

// EventHandled implements messaging.Observer.
func (m *Metrics) EventHandled(eventType shared.EventType, duration time.Duration, err error) {
	m.eventsHandled.WithLabelValues(string(eventType), status(err)).Inc()
	m.eventDuration.WithLabelValues(string(eventType)).Observe(duration.Seconds())
}

// JobFinished implements scheduler.Observer.
func (m *Metrics) JobFinished(job string, duration time.Duration, err error) {
	m.jobRuns.WithLabelValues(job, status(err)).Inc()
	m.jobDuration.WithLabelValues(job).Observe(duration.Seconds())
}

// BreakerStateChanged records a circuit breaker transition.
func (m *Metrics) BreakerStateChanged(name string, _, to circuitbreaker.State) {
	m.breakerState.WithLabelValues(name).Set(float64(to))
}

// Middleware records HTTP metrics labelled by chi route pattern so path
// parameters do not explode cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		m.httpInFlight.Inc()
		defer m.httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		m.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		m.httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
