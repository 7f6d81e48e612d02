// Package metrics holds the Prometheus collectors of the evidence server.
// Collectors are registered on a private registry so tests and multiple
// servers in one process do not collide.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "evidence"

// Metrics contains the collectors used by services and the HTTP layer.
type Metrics struct {
	registry *prometheus.Registry

	uploads       *prometheus.CounterVec
	uploadBytes   prometheus.Histogram
	versionRetry  prometheus.Counter
	downloads     *prometheus.CounterVec
	orphans       prometheus.Gauge
	sweepRuns     *prometheus.CounterVec
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	rateLimitHits prometheus.Counter
}

// New creates the collectors on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		uploads: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "uploads_total",
				Help:      "Evidence uploads by result",
			},
			[]string{"result"},
		),

		uploadBytes: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "upload_size_bytes",
				Help:      "Size of accepted evidence uploads",
				Buckets:   prometheus.ExponentialBuckets(1024, 4, 10), // 1KiB to 256MiB
			},
		),

		versionRetry: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "version_conflict_retries_total",
				Help:      "Uploads retried after a version number collision",
			},
		),

		downloads: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "downloads_total",
				Help:      "Evidence downloads by access type and result",
			},
			[]string{"access_type", "result"},
		),

		orphans: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "orphaned_files",
				Help:      "Stored files not referenced by any evidence version at the last sweep",
			},
		),

		sweepRuns: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "orphan_sweeps_total",
				Help:      "Orphan sweep runs by result",
			},
			[]string{"result"},
		),

		httpRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by route and status code",
			},
			[]string{"route", "code"},
		),

		httpDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route"},
		),

		rateLimitHits: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limited_requests_total",
				Help:      "Requests rejected by the rate limiter",
			},
		),
	}
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) RecordUpload(result string, size int64) {
	m.uploads.WithLabelValues(result).Inc()
	if result == ResultOK {
		m.uploadBytes.Observe(float64(size))
	}
}

func (m *Metrics) RecordVersionRetry() {
	m.versionRetry.Inc()
}

func (m *Metrics) RecordDownload(accessType, result string) {
	m.downloads.WithLabelValues(accessType, result).Inc()
}

func (m *Metrics) RecordSweep(orphans int, err error) {
	if err != nil {
		m.sweepRuns.WithLabelValues(ResultError).Inc()
		return
	}
	m.sweepRuns.WithLabelValues(ResultOK).Inc()
	m.orphans.Set(float64(orphans))
}

func (m *Metrics) RecordHTTP(route string, code int, elapsed time.Duration) {
	m.httpRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

func (m *Metrics) RecordRateLimited() {
	m.rateLimitHits.Inc()
}

// Result labels.
const (
	ResultOK        = "ok"
	ResultError     = "error"
	ResultForbidden = "forbidden"
	ResultInvalid   = "invalid"
	ResultNotFound  = "not_found"
	ResultConflict  = "conflict"
)
