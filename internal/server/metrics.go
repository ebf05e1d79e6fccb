package server

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// metrics owns a private registry so repeated Server instances (tests) don't
// collide on global collector registration.
type metrics struct {
	registry *prometheus.Registry

	requests       *prometheus.CounterVec
	ingests        prometheus.Counter
	ingestFailures prometheus.Counter
	searches       prometheus.Counter
}

func newMetrics(cacheStats func() (hits, misses uint64)) *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "streamdex_http_requests_total",
			Help: "HTTP requests by method and status code.",
		}, []string{"method", "code"}),
		ingests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "streamdex_ingests_total",
			Help: "Playlist ingestions that completed successfully.",
		}),
		ingestFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "streamdex_ingest_failures_total",
			Help: "Playlist ingestions that failed.",
		}),
		searches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "streamdex_searches_total",
			Help: "Search queries served.",
		}),
	}
	m.registry.MustRegister(m.requests, m.ingests, m.ingestFailures, m.searches)
	m.registry.MustRegister(collectors.NewGoCollector())

	if cacheStats != nil {
		m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "streamdex_search_cache_hits",
			Help: "Cumulative search cache hits.",
		}, func() float64 {
			hits, _ := cacheStats()
			return float64(hits)
		}))
		m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "streamdex_search_cache_misses",
			Help: "Cumulative search cache misses.",
		}, func() float64 {
			_, misses := cacheStats()
			return float64(misses)
		}))
	}
	return m
}

func (m *metrics) observeRequest(method string, status int) {
	m.requests.WithLabelValues(method, strconv.Itoa(status)).Inc()
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
