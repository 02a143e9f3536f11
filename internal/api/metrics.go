package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/satslab/satslab/internal/learner"
)

type metrics struct {
	registry    *prometheus.Registry
	requests    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	submissions *prometheus.CounterVec
	hints       prometheus.Counter
	awards      *prometheus.CounterVec
}

func newMetrics(reg *prometheus.Registry, sessions *learner.Registry) *metrics {
	m := &metrics{
		registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "satslab",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "satslab",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "satslab",
			Name:      "task_submissions_total",
			Help:      "Task submissions by validation kind and verdict.",
		}, []string{"kind", "verdict"}),
		hints: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "satslab",
			Name:      "hint_requests_total",
			Help:      "Hints revealed on request.",
		}),
		awards: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "satslab",
			Name:      "badges_awarded_total",
			Help:      "Badges awarded by rarity.",
		}, []string{"rarity"}),
	}
	reg.MustRegister(m.requests, m.duration, m.submissions, m.hints, m.awards)
	reg.MustRegister(collectors.NewGoCollector())
	if sessions != nil {
		reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "satslab",
			Name:      "live_sessions",
			Help:      "Learner sessions held in memory.",
		}, func() float64 { return float64(sessions.Len()) }))
	}
	return m
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *metrics) observeRequest(r *http.Request, status int, elapsed time.Duration) {
	route := "unmatched"
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			route = p
		}
	}
	m.requests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(route).Observe(elapsed.Seconds())
}
