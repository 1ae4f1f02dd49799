// Package metrics holds the storefront's Prometheus collectors. They register
// with the default registry on import and are served by promhttp at /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "storefront"

// GenerationsTotal counts image generation attempts.
// Label result: "ok", "rate_limited", "upstream_error", "storage_error", "no_result".
var GenerationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "generations_total",
		Help:      "Image generation requests by outcome.",
	},
	[]string{"result"},
)

// QuotaDecisionsTotal counts daily quota checks by decision (allowed/denied/error).
var QuotaDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "quota_decisions_total",
		Help:      "Daily generation quota checks by decision.",
	},
	[]string{"decision"},
)

// UpstreamDuration measures calls to hosted APIs.
var UpstreamDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "upstream_request_duration_seconds",
		Help:      "Latency of calls to hosted APIs.",
		Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
	},
	[]string{"service", "outcome"},
)

// StreamChunksTotal counts content chunks relayed to browsers.
var StreamChunksTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stream_chunks_total",
		Help:      "Prompt enhancement chunks relayed to clients.",
	},
)

// ActiveStreams tracks open prompt enhancement streams.
var ActiveStreams = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_streams",
		Help:      "Prompt enhancement streams currently open.",
	},
)

// HTTPRequestsTotal counts handled requests by route pattern and status.
var HTTPRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by route and status code.",
	},
	[]string{"route", "method", "status"},
)

// ObserveUpstream records one upstream call.
func ObserveUpstream(service string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	UpstreamDuration.WithLabelValues(service, outcome).Observe(time.Since(start).Seconds())
}

// ObserveRequest records one handled HTTP request.
func ObserveRequest(route, method string, status int) {
	if route == "" {
		route = "unmatched"
	}
	HTTPRequestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
}
