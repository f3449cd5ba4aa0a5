package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// cacheHits tracks schema cache hits.
	cacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hubspot_schema_cache_hits_total",
			Help: "Total number of deal properties schema cache hits",
		},
	)

	// cacheMisses tracks schema cache misses.
	cacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hubspot_schema_cache_misses_total",
			Help: "Total number of deal properties schema cache misses",
		},
	)

	// cacheErrors tracks cache operation errors.
	cacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hubspot_schema_cache_errors_total",
			Help: "Total number of schema cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete"
	)
)
