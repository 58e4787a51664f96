package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks name cache hits.
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "discord_name_cache_hits_total",
			Help: "Total number of channel/thread name cache hits",
		},
	)

	// CacheMisses tracks name cache misses, including expired entries.
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "discord_name_cache_misses_total",
			Help: "Total number of channel/thread name cache misses",
		},
	)

	// CacheErrors tracks cache operation errors.
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discord_name_cache_errors_total",
			Help: "Total number of name cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete"
	)
)
