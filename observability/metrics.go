package observability

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type queryMetrics struct {
	requests *prometheus.CounterVec
	errors   *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

var (
	queryMetricsOnce sync.Once
	queryRegistry    *queryMetrics
)

// QueryMetrics returns the lazily-initialised registry used to record query
// service activity.
func QueryMetrics() *queryMetrics {
	queryMetricsOnce.Do(func() {
		queryRegistry = &queryMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "wm",
				Subsystem: "query",
				Name:      "requests_total",
				Help:      "Total query requests segmented by route and outcome.",
			}, []string{"route", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "wm",
				Subsystem: "query",
				Name:      "errors_total",
				Help:      "Total query failures segmented by route.",
			}, []string{"route"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "wm",
				Subsystem: "query",
				Name:      "latency_seconds",
				Help:      "Query handling latency segmented by route.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"route"}),
		}
		prometheus.MustRegister(
			queryRegistry.requests,
			queryRegistry.errors,
			queryRegistry.latency,
		)
	})
	return queryRegistry
}

func normalizeRoute(route string) string {
	route = strings.TrimSpace(route)
	if route == "" {
		return "unknown"
	}
	return route
}

// Observe records a completed request with its outcome and duration.
func (m *queryMetrics) Observe(route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	route = normalizeRoute(route)
	outcome := "ok"
	if status >= 400 {
		outcome = "error"
		m.errors.WithLabelValues(route).Inc()
	}
	m.requests.WithLabelValues(route, outcome).Inc()
	m.latency.WithLabelValues(route).Observe(elapsed.Seconds())
}
