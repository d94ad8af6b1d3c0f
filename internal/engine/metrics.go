package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	spansStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "haptrace_spans_started_total",
		Help: "Spans started by the lifecycle engine, by span kind.",
	}, []string{"kind"})

	correlationMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "haptrace_correlation_misses_total",
		Help: "Lookups that found a trace id in scratch storage but no cache entry.",
	})

	cacheEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "haptrace_cache_evictions_total",
		Help: "Correlation cache entries reclaimed by capacity eviction.",
	})
)

// OnCacheEviction is the eviction hook installed on the correlation cache.
func OnCacheEviction(string) {
	cacheEvictions.Inc()
}
