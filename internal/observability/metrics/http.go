package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kirillkom/order-status-assistant/internal/core/domain"
)

const namespace = "osa"

type Metrics struct {
	service  string
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	lookupsTotal        *prometheus.CounterVec
	extractionTotal     *prometheus.CounterVec
	fallbackTotal       *prometheus.CounterVec
	speechFailuresTotal prometheus.Counter
	storeRecords        prometheus.Gauge
	storeReloadsTotal   *prometheus.CounterVec
	breakerTransitions  *prometheus.CounterVec
}

func New(service string) *Metrics {
	registry := prometheus.NewRegistry()
	constLabels := prometheus.Labels{"service": service}

	m := &Metrics{
		service:  service,
		registry: registry,
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "http",
			Name:        "requests_total",
			Help:        "Total HTTP requests processed.",
			ConstLabels: constLabels,
		}, []string{"method", "path", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "http",
			Name:        "request_duration_seconds",
			Help:        "HTTP request duration in seconds.",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: constLabels,
		}, []string{"method", "path"}),
		requestInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "http",
			Name:        "in_flight_requests",
			Help:        "Number of in-flight HTTP requests.",
			ConstLabels: constLabels,
		}),
		lookupsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "orders",
			Name:        "lookups_total",
			Help:        "Completed lookups by outcome (found, out_of_context or a not-found reason).",
			ConstLabels: constLabels,
		}, []string{"outcome"}),
		extractionTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "extraction",
			Name:        "results_total",
			Help:        "Field extractions by source tier.",
			ConstLabels: constLabels,
		}, []string{"source"}),
		fallbackTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "extraction",
			Name:        "fallbacks_total",
			Help:        "Extractions that fell back to the regex tier, by reason.",
			ConstLabels: constLabels,
		}, []string{"reason"}),
		speechFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "speech",
			Name:        "failures_total",
			Help:        "Speech synthesis attempts that produced no audio.",
			ConstLabels: constLabels,
		}),
		storeRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "records",
			Name:        "loaded",
			Help:        "Records in the current store snapshot.",
			ConstLabels: constLabels,
		}),
		storeReloadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "records",
			Name:        "reloads_total",
			Help:        "Record store reload attempts by status.",
			ConstLabels: constLabels,
		}, []string{"status"}),
		breakerTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "resilience",
			Name:        "breaker_transitions_total",
			Help:        "Circuit breaker state transitions.",
			ConstLabels: constLabels,
		}, []string{"operation", "to"}),
	}

	registry.MustRegister(
		m.requestTotal,
		m.requestDuration,
		m.requestInFlight,
		m.lookupsTotal,
		m.extractionTotal,
		m.fallbackTotal,
		m.speechFailuresTotal,
		m.storeRecords,
		m.storeReloadsTotal,
		m.breakerTransitions,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(r.Method, path, strconv.Itoa(recorder.statusCode)).Inc()
		m.requestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

var knownPaths = map[string]struct{}{
	"/":                        {},
	"/healthz":                 {},
	"/metrics":                 {},
	"/openapi.yaml":            {},
	"/process-audio":           {},
	"/analyze":                 {},
	"/analyze-audio":           {},
	"/v1/orders/status":        {},
	"/v1/orders/status/stream": {},
	"/v1/orders/lookup":        {},
}

// normalizePath keeps the path label bounded: unrouted paths share one series.
func normalizePath(path string) string {
	if strings.HasPrefix(path, "/audio/") {
		return "/audio/{id}"
	}
	if _, ok := knownPaths[path]; ok {
		return path
	}
	return "other"
}

func (m *Metrics) ObserveLookup(event domain.LookupEvent, fallbackReason string) {
	outcome := "found"
	switch {
	case event.OutOfContext:
		outcome = "out_of_context"
	case !event.StatusFound && event.Reason != "":
		outcome = string(event.Reason)
	case !event.StatusFound:
		outcome = "unknown"
	}
	m.lookupsTotal.WithLabelValues(outcome).Inc()

	source := string(event.ExtractionSource)
	if source == "" {
		source = "unknown"
	}
	m.extractionTotal.WithLabelValues(source).Inc()
	if fallbackReason != "" {
		m.fallbackTotal.WithLabelValues(fallbackReason).Inc()
	}
}

func (m *Metrics) IncSpeechFailure() {
	m.speechFailuresTotal.Inc()
}

func (m *Metrics) ObserveRecordsReload(count int, err error) {
	if err != nil {
		m.storeReloadsTotal.WithLabelValues("error").Inc()
		return
	}
	m.storeReloadsTotal.WithLabelValues("success").Inc()
	m.storeRecords.Set(float64(count))
}

func (m *Metrics) ObserveBreakerState(operation, _, to string) {
	m.breakerTransitions.WithLabelValues(operation, to).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}
