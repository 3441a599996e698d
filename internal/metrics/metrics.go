// Package metrics holds the Prometheus collectors of the service and the
// /metrics handler.
//
//	popcornview_upstream_requests_total        counter: Xtream calls by action/result
//	popcornview_upstream_request_seconds       histogram: Xtream call latency by action
//	popcornview_playbacks_total                counter: playback attempts by mode/outcome
//	popcornview_active_playbacks               gauge: adapters currently streaming
//	popcornview_visibility_changes_total       counter: hide/show mutations by kind/op
//	popcornview_http_request_duration_seconds  histogram: API latency by route
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var UpstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "popcornview_upstream_requests_total",
	Help: "Xtream API requests by action and result.",
}, []string{"action", "result"})

var UpstreamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "popcornview_upstream_request_seconds",
	Help:    "Xtream API request latency in seconds.",
	Buckets: prometheus.DefBuckets,
}, []string{"action"})

var Playbacks = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "popcornview_playbacks_total",
	Help: "Playback attempts by mode and outcome.",
}, []string{"mode", "outcome"})

var ActivePlaybacks = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "popcornview_active_playbacks",
	Help: "Playback adapters currently relaying a stream.",
})

var VisibilityChanges = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "popcornview_visibility_changes_total",
	Help: "Category hide/show mutations by kind and operation.",
}, []string{"kind", "op"})

var HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "popcornview_http_request_duration_seconds",
	Help:    "API request latency in seconds.",
	Buckets: prometheus.DefBuckets,
}, []string{"method", "route", "status"})

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveHTTP records one API request.
func ObserveHTTP(method, route string, status int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	HTTPDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}
