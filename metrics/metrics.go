// Package metrics provides Prometheus metrics for the PostgreSQL MCP server.
// It tracks request counts, latencies, pool behavior, and external commands.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace for all metrics
const (
	Namespace = "postgres_mcp"
)

var (
	// RequestsTotal counts total MCP tool calls by tool name and status
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "requests_total",
		Help:      "Total number of MCP tool calls",
	}, []string{"tool", "status"})

	// RequestDuration measures request latency distribution
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "request_duration_seconds",
		Help:      "Request latency distribution by tool",
		Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"tool"})

	// RequestInFlight tracks currently executing requests
	RequestInFlight = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "requests_in_flight",
		Help:      "Number of requests currently being processed",
	}, []string{"tool"})

	// PanicsRecovered counts recovered panics
	PanicsRecovered = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "panics_recovered_total",
		Help:      "Number of panics recovered in tool handlers",
	}, []string{"tool"})

	// PoolAcquires counts pool acquisitions by outcome
	PoolAcquires = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "pool_acquires_total",
		Help:      "Connection pool acquisitions by outcome",
	}, []string{"status"})

	// StandaloneConnections counts connections opened outside the pool
	// for cross-database operations
	StandaloneConnections = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "standalone_connections_total",
		Help:      "Connections opened outside the pool for cross-database operations",
	})

	// ExternalCommands counts invocations of the PostgreSQL client binaries
	ExternalCommands = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "external_commands_total",
		Help:      "Invocations of pg_dump, pg_restore and psql by outcome",
	}, []string{"binary", "status"})

	// BackupFallbacks counts backups and restores that fell back to the
	// built-in SQL path
	BackupFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "backup_fallbacks_total",
		Help:      "Backups and restores that used the built-in SQL path instead of the client binaries",
	})

	// TokenRefreshes counts Entra ID access token refreshes
	TokenRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "token_refreshes_total",
		Help:      "Entra ID access token refreshes by outcome",
	}, []string{"status"})
)

// RecordRequest records a completed request with its duration and status
func RecordRequest(tool string, duration float64, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	RequestsTotal.WithLabelValues(tool, status).Inc()
	RequestDuration.WithLabelValues(tool).Observe(duration)
}
