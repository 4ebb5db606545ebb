// Package observability provides metrics and tracing.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crewdesk_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// CacheRequests counts cache lookups by key prefix and outcome (hit or miss).
	CacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crewdesk_cache_requests_total",
		Help: "Total cache lookups by key prefix and outcome",
	}, []string{"prefix", "outcome"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "crewdesk_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// PostsPublished counts posts reaching published state.
	PostsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crewdesk_posts_published_total",
		Help: "Total number of posts published",
	})

	// PostViews counts recorded post views.
	PostViews = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crewdesk_post_views_total",
		Help: "Total number of recorded post views",
	})

	// ReactionToggles counts like and bookmark toggles by kind and direction.
	ReactionToggles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crewdesk_reaction_toggles_total",
		Help: "Total like and bookmark toggles by kind and direction",
	}, []string{"kind", "direction"})

	// TasksCompleted counts tasks transitioned to completed.
	TasksCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crewdesk_tasks_completed_total",
		Help: "Total number of tasks marked completed",
	})

	// AuthAttempts counts authentication attempts by outcome.
	AuthAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crewdesk_auth_attempts_total",
		Help: "Total authentication attempts by outcome",
	}, []string{"outcome"})
)

// RecordCacheHit increments the cache hit counter for a key prefix.
func RecordCacheHit(prefix string) {
	CacheRequests.WithLabelValues(prefix, "hit").Inc()
}

// RecordCacheMiss increments the cache miss counter for a key prefix.
func RecordCacheMiss(prefix string) {
	CacheRequests.WithLabelValues(prefix, "miss").Inc()
}

// RecordToggle increments the reaction toggle counter. kind is "like" or
// "bookmark"; direction is "on" or "off".
func RecordToggle(kind string, active bool) {
	direction := "off"
	if active {
		direction = "on"
	}
	ReactionToggles.WithLabelValues(kind, direction).Inc()
}

// DatabaseMetrics wraps DB access for recording query latency.
type DatabaseMetrics struct {
	db *gorm.DB
}

// NewDatabaseMetrics returns a new DatabaseMetrics instance.
func NewDatabaseMetrics(db *gorm.DB) *DatabaseMetrics {
	return &DatabaseMetrics{db: db}
}

// ObserveQuery records the latency of a database query.
func (m *DatabaseMetrics) ObserveQuery(operation, table string, start time.Time) {
	latency := time.Since(start).Seconds()
	DatabaseQueryLatency.WithLabelValues(operation, table).Observe(latency)
}

// TrackQuery returns a function that records query latency when called (e.g. defer).
func (m *DatabaseMetrics) TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		m.ObserveQuery(operation, table, start)
	}
}
