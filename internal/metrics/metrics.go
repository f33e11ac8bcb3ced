package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds the Prometheus collectors of the service. A nil *Metrics is
// valid and records nothing, which keeps tests free of global registration.
//
// Metrics:
//   - keepup_cache_lookups_total{kind,outcome} - ensure outcomes (hit, generated, no_data, raced, failed)
//   - keepup_generation_duration_seconds{kind} - LLM call latency
//   - keepup_cooldown_rejections_total{category} - addPoints rejected by the daily cooldown
//   - keepup_points_awarded_total - xp granted
//   - keepup_http_requests_total{method,route,status}
//   - keepup_http_request_duration_seconds{method,route}
type Metrics struct {
	CacheLookups       *prometheus.CounterVec
	GenerationDuration *prometheus.HistogramVec
	CooldownRejections *prometheus.CounterVec
	PointsAwarded      prometheus.Counter
	HTTPRequests       *prometheus.CounterVec
	HTTPDuration       *prometheus.HistogramVec
}

// New registers the collectors once per process and returns them.
func New() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			CacheLookups: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "keepup_cache_lookups_total",
					Help: "Content cache ensure calls by outcome",
				},
				[]string{"kind", "outcome"},
			),
			GenerationDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "keepup_generation_duration_seconds",
					Help:    "Duration of LLM generation calls in seconds",
					Buckets: prometheus.ExponentialBuckets(0.25, 2, 9), // 250ms to ~64s
				},
				[]string{"kind"},
			),
			CooldownRejections: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "keepup_cooldown_rejections_total",
					Help: "addPoints calls rejected because the category was already rewarded today",
				},
				[]string{"category"},
			),
			PointsAwarded: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "keepup_points_awarded_total",
					Help: "Total xp granted to users",
				},
			),
			HTTPRequests: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "keepup_http_requests_total",
					Help: "HTTP requests by route and status",
				},
				[]string{"method", "route", "status"},
			),
			HTTPDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "keepup_http_request_duration_seconds",
					Help:    "HTTP request latency in seconds",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"method", "route"},
			),
		}
	})
	return globalMetrics
}

func (m *Metrics) ObserveCacheLookup(kind, outcome string) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) ObserveGeneration(kind string, d time.Duration) {
	if m == nil {
		return
	}
	m.GenerationDuration.WithLabelValues(kind).Observe(d.Seconds())
}

func (m *Metrics) ObserveCooldownRejection(category string) {
	if m == nil {
		return
	}
	m.CooldownRejections.WithLabelValues(category).Inc()
}

func (m *Metrics) ObservePoints(points int) {
	if m == nil {
		return
	}
	m.PointsAwarded.Add(float64(points))
}

func (m *Metrics) ObserveHTTP(method, route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, status).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
