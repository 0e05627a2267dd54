package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/phishti/smsguard/lib/phishcheck"
)

// metrics registered on a private registry, so several servers can live in one process
type metrics struct {
	registry   *prometheus.Registry
	checks     *prometheus.CounterVec
	cacheHits  prometheus.Counter
	confidence prometheus.Histogram
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		checks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "smsguard_checks_total",
			Help: "Total checked messages by label",
		}, []string{"label"}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "smsguard_cache_hits_total",
			Help: "Total checks served from the result cache",
		}),
		confidence: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "smsguard_confidence",
			Help:    "Distribution of detection confidence",
			Buckets: prometheus.LinearBuckets(0.1, 0.1, 10),
		}),
	}
	m.registry.MustRegister(m.checks, m.cacheHits, m.confidence)
	return m
}

func (m *metrics) observe(res phishcheck.Result, cached bool) {
	m.checks.WithLabelValues(string(res.Label)).Inc()
	m.confidence.Observe(res.Confidence)
	if cached {
		m.cacheHits.Inc()
	}
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
