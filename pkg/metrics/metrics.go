package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrymomot/stripekit/pkg/billing"
)

// Metrics holds the Prometheus collectors of a stripekit server.
type Metrics struct {
	registry *prometheus.Registry

	WebhookTriggersTotal  *prometheus.CounterVec
	WebhookEventsTotal    *prometheus.CounterVec
	WebhookProcessingTime prometheus.Histogram
	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
}

var _ billing.Observer = (*Metrics)(nil)

// New creates the collectors and registers them with registry. A nil
// registry gets a fresh one with the Go and process collectors.
func New(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	m := &Metrics{
		registry: registry,
		WebhookTriggersTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stripekit_webhook_triggers_total",
				Help: "Webhook deliveries by outcome",
			},
			[]string{"outcome"},
		),
		WebhookEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stripekit_webhook_events_total",
				Help: "Processed webhook events by type and result",
			},
			[]string{"type", "result"},
		),
		WebhookProcessingTime: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "stripekit_webhook_processing_seconds",
				Help:    "Time spent ingesting one webhook delivery",
				Buckets: prometheus.DefBuckets,
			},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stripekit_http_requests_total",
				Help: "HTTP requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stripekit_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}

	registry.MustRegister(
		m.WebhookTriggersTotal,
		m.WebhookEventsTotal,
		m.WebhookProcessingTime,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
	)
	return m
}

// TriggerProcessed implements billing.Observer.
func (m *Metrics) TriggerProcessed(outcome string, d time.Duration) {
	m.WebhookTriggersTotal.WithLabelValues(outcome).Inc()
	m.WebhookProcessingTime.Observe(d.Seconds())
}

// EventProcessed implements billing.Observer.
func (m *Metrics) EventProcessed(eventType, result string) {
	m.WebhookEventsTotal.WithLabelValues(eventType, result).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware records request count and latency per chi route pattern, so
// path parameters do not blow up label cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		m.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.status = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	r.wroteHeader = true
	return r.ResponseWriter.Write(b)
}

// Flush keeps SSE responses streaming through the recorder.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
