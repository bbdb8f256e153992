// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ResponsesTotal counts accepted submissions by question type and outcome.
	ResponsesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forumpolls_responses_total",
			Help: "Accepted poll submissions, by question type and outcome.",
		},
		[]string{"question_type", "outcome"},
	)

	// FailuresTotal counts rejected operations by error kind.
	FailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forumpolls_failures_total",
			Help: "Rejected poll operations, by operation and error kind.",
		},
		[]string{"operation", "kind"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "forumpolls_request_duration_seconds",
			Help:    "HTTP request duration in seconds, by route and method.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method", "status"},
	)

	CacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "forumpolls_cache_hits_total",
		Help: "Poll reads served from Redis.",
	})

	CacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "forumpolls_cache_misses_total",
		Help: "Poll reads that missed Redis.",
	})
)

// Register adds every collector to reg. Call once at startup.
func Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{ResponsesTotal, FailuresTotal, RequestDuration, CacheHits, CacheMisses} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// ObserveRequest records one served request.
func ObserveRequest(route, method string, status int, elapsed time.Duration) {
	RequestDuration.WithLabelValues(route, method, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

// Handler serves the /metrics endpoint for the given gatherer.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
