// Package metrics holds the Prometheus collectors of the like service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LikesApplied counts like/unlike requests that changed the stored state.
	LikesApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "card_likes_applied_total",
			Help: "Total number of like state changes applied",
		},
		[]string{"action"},
	)

	// LikesNoop counts idempotent requests that left the state unchanged.
	LikesNoop = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "card_likes_noop_total",
			Help: "Total number of like requests that did not change state",
		},
		[]string{"action"},
	)

	LikesRateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "card_likes_rate_limited_total",
			Help: "Total number of likes rejected by the daily limit",
		},
	)

	EventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "card_like_events_dropped_total",
			Help: "Total number of like events dropped because the worker queue was full",
		},
	)

	EventsPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "card_like_events_published_total",
			Help: "Total number of like events flushed to redis",
		},
	)
)
