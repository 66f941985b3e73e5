package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const Namespace = "toonshare"

const (
	LabelOutcome = "outcome"

	OutcomeCreated = "created"
	OutcomeUpdated = "updated"
	OutcomeLiked   = "liked"
	OutcomeUnliked = "unliked"
	OutcomeHit     = "hit"
	OutcomeMiss    = "miss"
)

var SharesSaved = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name:      "shares_saved_total",
		Help:      "Share documents written, by outcome",
		Namespace: Namespace,
	},
	[]string{LabelOutcome},
)

var LikesToggled = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name:      "likes_toggled_total",
		Help:      "Like toggles, by resulting state",
		Namespace: Namespace,
	},
	[]string{LabelOutcome},
)

var ViewsRecorded = promauto.NewCounter(
	prometheus.CounterOpts{
		Name:      "views_recorded_total",
		Help:      "Share views recorded (once per session)",
		Namespace: Namespace,
	},
)

var CommentsAdded = promauto.NewCounter(
	prometheus.CounterOpts{
		Name:      "comments_added_total",
		Help:      "Comments stored",
		Namespace: Namespace,
	},
)

var EngagementErrors = promauto.NewCounter(
	prometheus.CounterOpts{
		Name:      "engagement_backend_errors_total",
		Help:      "Engagement backend calls that failed and were degraded",
		Namespace: Namespace,
	},
)

var ThumbnailLookups = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name:      "thumbnail_cache_lookups_total",
		Help:      "Thumbnail cache lookups, by hit or miss",
		Namespace: Namespace,
	},
	[]string{LabelOutcome},
)

var HTTPRequests = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:      "http_request_duration_seconds",
		Help:      "Latency of visitor and ops requests, by route pattern and status class",
		Namespace: Namespace,
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "route", "class"},
)
