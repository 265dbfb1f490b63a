// Package metrics holds the Prometheus collectors exported at /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "omara_http_requests_total",
		Help: "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "omara_http_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})

	aiRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "omara_ai_requests_total",
		Help: "Model requests by operation and outcome.",
	}, []string{"operation", "outcome"})

	aiDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "omara_ai_request_duration_seconds",
		Help:    "Model request latency by operation.",
		Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
	}, []string{"operation"})

	liveSubscriptions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "omara_live_subscriptions",
		Help: "Open live snapshot subscriptions.",
	})

	mutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "omara_mutations_total",
		Help: "Store mutations by kind and result (ok, noop, rejected, failed).",
	}, []string{"kind", "result"})
)

// ObserveHTTP records one finished request. route is the mux pattern, not
// the raw path, to keep label cardinality bounded.
func ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// ObserveAI records one model call.
func ObserveAI(operation, outcome string, elapsed time.Duration) {
	aiRequests.WithLabelValues(operation, outcome).Inc()
	aiDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// SubscriptionOpened and SubscriptionClosed track live subscriptions.
func SubscriptionOpened() { liveSubscriptions.Inc() }

func SubscriptionClosed() { liveSubscriptions.Dec() }

// Mutation counts one store mutation.
func Mutation(kind, result string) {
	mutations.WithLabelValues(kind, result).Inc()
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
