/*-------------------------------------------------------------------------
 *
 * result.go
 *    Typed sub-agent results and execution metrics
 *
 * Copyright (c) 2024-2026, neurondb, Inc. <support@neurondb.ai>
 *
 * IDENTIFICATION
 *    NeuronSupervisor/internal/agent/result.go
 *
 *-------------------------------------------------------------------------
 */

package agent

import (
	"time"

	"github.com/google/uuid"
)

/* ExecutionMetrics records per-run execution statistics */
type ExecutionMetrics struct {
	RunID          uuid.UUID `json:"run_id"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
	ToolCalls      int       `json:"tool_calls"`
	ToolFailures   int       `json:"tool_failures"`
	CacheHits      int       `json:"cache_hits"`
	CacheMisses    int       `json:"cache_misses"`
	RetryAttempts  int       `json:"retry_attempts"`
	ThinkingEvents int       `json:"thinking_events"`
}

/* Result is the typed outcome of one sub-agent run. Exactly one of
 * ResultData and ErrorMessage is meaningful depending on Success. */
type Result struct {
	Success         bool             `json:"success"`
	AgentName       string           `json:"agent_name"`
	ExecutionTimeMs float64          `json:"execution_time_ms"`
	ResultData      interface{}      `json:"result_data,omitempty"`
	ErrorMessage    string           `json:"error_message,omitempty"`
	Metrics         ExecutionMetrics `json:"metrics"`
}

/* SuccessResult builds a successful result */
func SuccessResult(agentName string, data interface{}, metrics ExecutionMetrics) *Result {
	return &Result{
		Success:         true,
		AgentName:       agentName,
		ExecutionTimeMs: float64(metrics.FinishedAt.Sub(metrics.StartedAt)) / float64(time.Millisecond),
		ResultData:      data,
		Metrics:         metrics,
	}
}

/* FailureResult builds a failed result carrying a user-safe message */
func FailureResult(agentName string, errorMessage string, metrics ExecutionMetrics) *Result {
	return &Result{
		Success:         false,
		AgentName:       agentName,
		ExecutionTimeMs: float64(metrics.FinishedAt.Sub(metrics.StartedAt)) / float64(time.Millisecond),
		ErrorMessage:    errorMessage,
		Metrics:         metrics,
	}
}
