package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus metrics of the service. Each instance has its
// own registry so tests can create as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal     *prometheus.CounterVec
	RequestsInFlight  prometheus.Gauge
	RequestDuration   *prometheus.HistogramVec
	AnalysesTotal     *prometheus.CounterVec
	InferenceDuration *prometheus.HistogramVec
	ExportsTotal      *prometheus.CounterVec
	RateLimitedTotal  prometheus.Counter
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "radiology_http_requests_total",
			Help: "HTTP requests by route and status code",
		}, []string{"method", "route", "status"}),
		RequestsInFlight: f.NewGauge(prometheus.GaugeOpts{
			Name: "radiology_http_requests_in_flight",
			Help: "HTTP requests currently being served",
		}),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "radiology_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		AnalysesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "radiology_analyses_total",
			Help: "Inference calls by outcome",
		}, []string{"outcome"}),
		InferenceDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "radiology_inference_duration_seconds",
			Help:    "Latency of the inference API call",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60},
		}, []string{"outcome"}),
		ExportsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "radiology_pdf_exports_total",
			Help: "PDF exports by outcome",
		}, []string{"outcome"}),
		RateLimitedTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "radiology_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		}),
	}
}

// TrackStoredAnalyses exports size() as the number of analyses currently held.
func (m *Metrics) TrackStoredAnalyses(size func() int) {
	promauto.With(m.registry).NewGaugeFunc(prometheus.GaugeOpts{
		Name: "radiology_stored_analyses",
		Help: "Analyses held in the transient result store",
	}, func() float64 { return float64(size()) })
}

// ObserveAnalysis records one inference call.
func (m *Metrics) ObserveAnalysis(outcome string, d time.Duration) {
	m.AnalysesTotal.WithLabelValues(outcome).Inc()
	m.InferenceDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// ObserveExport records one PDF export.
func (m *Metrics) ObserveExport(outcome string) {
	m.ExportsTotal.WithLabelValues(outcome).Inc()
}

// Middleware tracks request metrics. The route label is the chi pattern, so
// report ids do not blow up cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.RequestsInFlight.Inc()
		defer m.RequestsInFlight.Dec()

		start := time.Now()
		wrapped := wrapWriter(w)
		next.ServeHTTP(wrapped, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		m.RequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(wrapped.statusCode)).Inc()
		m.RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
