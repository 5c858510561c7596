// Package metrics provides Prometheus metrics for Zennify: progression
// counters, auth activity, store failures, HTTP latency and health.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Progression ────────────────────────────────────────────────────────────

// QuestsCompleted tracks first-time quest completions by category.
var QuestsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "zennify",
	Name:      "quests_completed_total",
	Help:      "Total quests completed.",
}, []string{"category"})

// XPAwarded tracks experience points granted by source (quest, mood).
var XPAwarded = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "zennify",
	Name:      "xp_awarded_total",
	Help:      "Total experience points awarded.",
}, []string{"source"})

// MoodsLogged tracks mood submissions by mood and whether they were edits.
var MoodsLogged = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "zennify",
	Name:      "moods_logged_total",
	Help:      "Total mood submissions.",
}, []string{"mood", "kind"})

// BadgesUnlocked tracks badge unlocks by badge id.
var BadgesUnlocked = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "zennify",
	Name:      "badges_unlocked_total",
	Help:      "Total badges unlocked.",
}, []string{"badge"})

// LevelUps tracks level increases.
var LevelUps = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "zennify",
	Name:      "level_ups_total",
	Help:      "Total level increases across users.",
})

// ─── Identity ───────────────────────────────────────────────────────────────

// AuthAttempts tracks sign-up, sign-in and sign-out outcomes.
var AuthAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "zennify",
	Name:      "auth_attempts_total",
	Help:      "Identity operations by action and result.",
}, []string{"action", "result"})

// ─── Store ──────────────────────────────────────────────────────────────────

// StoreErrors tracks document store failures by operation.
var StoreErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "zennify",
	Name:      "store_errors_total",
	Help:      "Document store failures by operation.",
}, []string{"op"})

// ─── HTTP ───────────────────────────────────────────────────────────────────

// HTTPRequestDuration tracks API latency by route pattern and status.
var HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "zennify",
	Name:      "http_request_duration_seconds",
	Help:      "HTTP request duration in seconds.",
	Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
}, []string{"route", "method", "status"})

// EventSubscribers tracks open event-stream connections.
var EventSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "zennify",
	Name:      "event_subscribers",
	Help:      "Number of open event-stream subscriptions.",
})

// ─── Health ─────────────────────────────────────────────────────────────────

// HealthCheckStatus tracks health check results (1=healthy, 0=unhealthy).
var HealthCheckStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "zennify",
	Name:      "health_check_status",
	Help:      "Health check result per component (1=healthy, 0=unhealthy).",
}, []string{"check"})

// BreakerTrips counts circuit breakers opening, by breaker name.
var BreakerTrips = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "zennify",
	Name:      "breaker_trips_total",
	Help:      "Times a circuit breaker opened.",
}, []string{"breaker"})
