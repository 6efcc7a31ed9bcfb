package v1

import (
	"net/http"
	"strconv"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "ledger"

func newCounterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.NewCounterVec(prometheus.CounterOpts{Namespace: metricsNamespace, Name: name, Help: help}, labels)
}

var (
	requestLabels = []string{"method", "route", "status"}

	requestsServed = newCounterVec("http_requests_total", "HTTP requests served, by route pattern and status", requestLabels...)
	requestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency, by route pattern and status",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
	}, requestLabels)

	transactionsPosted = newCounterVec("transactions_posted_total", "Transactions committed, by direction", "direction")
	reconciliations    = newCounterVec("reconciliations_total", "Reconcile requests, by outcome", "result")
	taxComputations    = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "tax_computations_total",
		Help:      "Successful tax computations, including filings",
	})
	qualityIssues = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "data_quality_issues",
		Help:      "Issues found by the most recent data-quality report",
	})
	rateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "http_rate_limited_total",
		Help:      "Requests rejected by the per-client rate limiter",
	})
)

func metricsHandler() http.Handler { return promhttp.Handler() }

// routePattern is resolved after the handler ran; ids never reach a label.
func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

func observeRequest(r *http.Request, status int, elapsed time.Duration) {
	code := strconv.Itoa(status)
	route := routePattern(r)
	requestsServed.WithLabelValues(r.Method, route, code).Inc()
	requestLatency.WithLabelValues(r.Method, route, code).Observe(elapsed.Seconds())
}
