/*-------------------------------------------------------------------------
 *
 * prometheus.go
 *    Prometheus metrics for NeuronSupervisor
 *
 * Copyright (c) 2024-2026, neurondb, Inc. <support@neurondb.ai>
 *
 * IDENTIFICATION
 *    NeuronSupervisor/internal/metrics/prometheus.go
 *
 *-------------------------------------------------------------------------
 */

package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	/* WebSocket message metrics */
	wsMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "neurondb_supervisor_ws_messages_total",
			Help: "Total number of WebSocket messages received",
		},
		[]string{"type", "status"},
	)

	wsMessageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "neurondb_supervisor_ws_message_duration_seconds",
			Help:    "WebSocket message processing duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"type"},
	)

	/* Lifecycle event metrics */
	eventsEmittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "neurondb_supervisor_events_emitted_total",
			Help: "Total number of lifecycle events emitted to clients",
		},
		[]string{"event_type", "status"},
	)

	eventSendRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "neurondb_supervisor_event_send_retries_total",
			Help: "Total number of event send retry attempts",
		},
	)

	/* Agent run metrics */
	agentRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "neurondb_supervisor_agent_runs_total",
			Help: "Total number of sub-agent runs",
		},
		[]string{"agent", "status"},
	)

	agentRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "neurondb_supervisor_agent_run_duration_seconds",
			Help:    "Sub-agent run duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 300},
		},
		[]string{"agent"},
	)

	/* Cache metrics */
	cacheOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "neurondb_supervisor_cache_operations_total",
			Help: "Total number of cache operations",
		},
		[]string{"cache", "result"},
	)

	/* Circuit breaker metrics */
	circuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "neurondb_supervisor_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half_open, 2=open)",
		},
		[]string{"breaker"},
	)

	/* Active context metrics */
	activeContexts = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "neurondb_supervisor_active_execution_contexts",
			Help: "Number of live execution contexts",
		},
	)
)

/* RecordWSMessage records a processed WebSocket message */
func RecordWSMessage(messageType, status string, duration time.Duration) {
	wsMessagesTotal.WithLabelValues(messageType, status).Inc()
	wsMessageDuration.WithLabelValues(messageType).Observe(duration.Seconds())
}

/* RecordEventEmitted records a lifecycle event delivery outcome */
func RecordEventEmitted(eventType, status string) {
	eventsEmittedTotal.WithLabelValues(eventType, status).Inc()
}

/* RecordEventSendRetry records one event send retry attempt */
func RecordEventSendRetry() {
	eventSendRetriesTotal.Inc()
}

/* RecordAgentRun records a completed sub-agent run */
func RecordAgentRun(agent, status string, duration time.Duration) {
	agentRunsTotal.WithLabelValues(agent, status).Inc()
	agentRunDuration.WithLabelValues(agent).Observe(duration.Seconds())
}

/* RecordCacheOperation records a cache hit, miss, or eviction */
func RecordCacheOperation(cache, result string) {
	cacheOperationsTotal.WithLabelValues(cache, result).Inc()
}

/* RecordCircuitBreakerState records a circuit breaker state change */
func RecordCircuitBreakerState(breaker string, state int) {
	circuitBreakerState.WithLabelValues(breaker).Set(float64(state))
}

/* SetActiveContexts records the current number of execution contexts */
func SetActiveContexts(n int) {
	activeContexts.Set(float64(n))
}

/* Handler returns the Prometheus metrics HTTP handler */
func Handler() http.Handler {
	return promhttp.Handler()
}
