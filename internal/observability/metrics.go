// Package observability provides Prometheus metrics and OpenTelemetry tracing.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts Redis errors by command.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warbler_redis_errors_total",
		Help: "Total number of Redis errors by command",
	}, []string{"command"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "warbler_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// SignupsTotal counts signups by outcome.
	SignupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warbler_signups_total",
		Help: "Total number of signup attempts by outcome",
	}, []string{"outcome"})

	// LoginsTotal counts login attempts by outcome.
	LoginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warbler_logins_total",
		Help: "Total number of login attempts by outcome",
	}, []string{"outcome"})

	// MessagesTotal counts message mutations by action.
	MessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warbler_messages_total",
		Help: "Total number of messages created or deleted",
	}, []string{"action"})

	// LikeTogglesTotal counts like toggles by resulting state.
	LikeTogglesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warbler_like_toggles_total",
		Help: "Total number of like toggles by resulting state",
	}, []string{"state"})

	// FollowChangesTotal counts follow graph mutations by action.
	FollowChangesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warbler_follow_changes_total",
		Help: "Total number of follow and unfollow operations",
	}, []string{"action"})

	// ActiveSessions tracks sessions started minus sessions ended by this process.
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "warbler_sessions_active",
		Help: "Sessions started minus sessions ended by this process",
	})
)

// Outcome label values.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
