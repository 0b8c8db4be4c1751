/*-------------------------------------------------------------------------
 *
 * emitter.go
 *    Lifecycle event emitter with ordered delivery
 *
 * Delivers the five lifecycle events (agent_started, agent_thinking,
 * tool_executing, tool_completed, agent_completed) plus error events to
 * the connection bound to an execution context. Each send is attempted
 * with bounded retry; exhausted retries are recorded in metrics and
 * never abort an otherwise-successful run. Open tool calls are tracked
 * per run so a terminal event can synthesize the missing
 * tool_completed when an agent aborts mid-call.
 *
 * Copyright (c) 2024-2026, neurondb, Inc. <support@neurondb.ai>
 *
 * IDENTIFICATION
 *    NeuronSupervisor/internal/ws/emitter.go
 *
 *-------------------------------------------------------------------------
 */

package ws

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/neurondb/NeuronSupervisor/internal/agent"
	"github.com/neurondb/NeuronSupervisor/internal/config"
	"github.com/neurondb/NeuronSupervisor/internal/execution"
	"github.com/neurondb/NeuronSupervisor/internal/metrics"
	"github.com/neurondb/NeuronSupervisor/internal/reliability"
)

/* EventType enumerates outbound event kinds */
type EventType string

const (
	EventAgentStarted   EventType = "agent_started"
	EventAgentThinking  EventType = "agent_thinking"
	EventToolExecuting  EventType = "tool_executing"
	EventToolCompleted  EventType = "tool_completed"
	EventAgentCompleted EventType = "agent_completed"
	EventError          EventType = "error"
)

/* Event is the outbound envelope */
type Event struct {
	Type    EventType              `json:"type"`
	Payload map[string]interface{} `json:"payload"`
	UserID  string                 `json:"user_id"`
}

/* Emitter delivers lifecycle events over registered connections */
type Emitter struct {
	manager     *ConnManager
	maxRetries  int
	baseBackoff time.Duration

	mu        sync.Mutex
	openTools map[uuid.UUID][]string /* run id -> tools awaiting completion */
}

/* NewEmitter creates an event emitter */
func NewEmitter(manager *ConnManager, cfg config.WebSocketConfig) *Emitter {
	maxRetries := cfg.SendMaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	backoff := cfg.SendRetryBackoff
	if backoff <= 0 {
		backoff = 100 * time.Millisecond
	}
	return &Emitter{
		manager:     manager,
		maxRetries:  maxRetries,
		baseBackoff: backoff,
		openTools:   make(map[uuid.UUID][]string),
	}
}

/* AgentStarted emits the run's opening event */
func (e *Emitter) AgentStarted(ctx context.Context, execCtx *execution.Context, agentName string) error {
	return e.emit(ctx, execCtx, EventAgentStarted, map[string]interface{}{
		"agent": agentName,
	})
}

/* AgentThinking emits an intermediate progress event */
func (e *Emitter) AgentThinking(ctx context.Context, execCtx *execution.Context, thought string) error {
	return e.emit(ctx, execCtx, EventAgentThinking, map[string]interface{}{
		"thought": thought,
	})
}

/* ToolExecuting emits the event opening a tool call */
func (e *Emitter) ToolExecuting(ctx context.Context, execCtx *execution.Context, tool string) error {
	e.mu.Lock()
	e.openTools[execCtx.RunID] = append(e.openTools[execCtx.RunID], tool)
	e.mu.Unlock()

	return e.emit(ctx, execCtx, EventToolExecuting, map[string]interface{}{
		"tool": tool,
	})
}

/* ToolCompleted emits the event closing a tool call */
func (e *Emitter) ToolCompleted(ctx context.Context, execCtx *execution.Context, tool string, success bool, errorMessage string) error {
	e.closeTool(execCtx.RunID, tool)

	payload := map[string]interface{}{
		"tool":    tool,
		"success": success,
	}
	if errorMessage != "" {
		payload["error"] = errorMessage
	}
	return e.emit(ctx, execCtx, EventToolCompleted, payload)
}

/* AgentCompleted emits the terminal event. Tool calls the agent left
 * open are closed first with a failed tool_completed so the client
 * never waits on a partial sequence. */
func (e *Emitter) AgentCompleted(ctx context.Context, execCtx *execution.Context, result *agent.Result) error {
	e.mu.Lock()
	open := e.openTools[execCtx.RunID]
	delete(e.openTools, execCtx.RunID)
	e.mu.Unlock()

	for _, tool := range open {
		payload := map[string]interface{}{
			"tool":    tool,
			"success": false,
			"error":   "tool call aborted before completion",
		}
		if err := e.emit(ctx, execCtx, EventToolCompleted, payload); err != nil {
			metrics.WarnWithContext(ctx, "Failed to synthesize tool_completed", map[string]interface{}{
				"tool":  tool,
				"error": err.Error(),
			})
		}
	}

	payload := map[string]interface{}{
		"agent":             result.AgentName,
		"success":           result.Success,
		"execution_time_ms": result.ExecutionTimeMs,
	}
	if result.Success {
		payload["result"] = result.ResultData
	} else {
		payload["error"] = result.ErrorMessage
	}
	return e.emit(ctx, execCtx, EventAgentCompleted, payload)
}

/* ErrorEvent emits a standalone error event */
func (e *Emitter) ErrorEvent(ctx context.Context, execCtx *execution.Context, code, message string) error {
	return e.emit(ctx, execCtx, EventError, map[string]interface{}{
		"code":    code,
		"message": message,
	})
}

/* ReleaseRun drops open-tool tracking for a finished run */
func (e *Emitter) ReleaseRun(runID uuid.UUID) {
	e.mu.Lock()
	delete(e.openTools, runID)
	e.mu.Unlock()
}

/* closeTool removes the most recent open entry for a tool */
func (e *Emitter) closeTool(runID uuid.UUID, tool string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	open := e.openTools[runID]
	for i := len(open) - 1; i >= 0; i-- {
		if open[i] == tool {
			e.openTools[runID] = append(open[:i], open[i+1:]...)
			break
		}
	}
	if len(e.openTools[runID]) == 0 {
		delete(e.openTools, runID)
	}
}

/* emit sends one event to the context's connection with bounded retry */
func (e *Emitter) emit(ctx context.Context, execCtx *execution.Context, eventType EventType, payload map[string]interface{}) error {
	conn, ok := e.manager.Get(execCtx.UserID, execCtx.ConnectionID)
	if !ok {
		metrics.RecordEventEmitted(string(eventType), "no_connection")
		return fmt.Errorf("event delivery failed: event='%s', connection_not_registered=true, connection_id='%s'",
			eventType, execCtx.ConnectionID)
	}

	payload["run_id"] = execCtx.RunID.String()
	payload["thread_id"] = execCtx.ThreadID.String()
	payload["timestamp"] = float64(time.Now().UnixNano()) / float64(time.Second)

	event := Event{
		Type:    eventType,
		Payload: payload,
		UserID:  execCtx.UserID,
	}

	retryCfg := reliability.RetryConfig{
		MaxAttempts:  e.maxRetries,
		InitialDelay: e.baseBackoff,
		MaxDelay:     2 * time.Second,
		Multiplier:   2.0,
		IsRetryable: func(err error) bool {
			/* All send failures are transient from the emitter's view */
			return err != nil
		},
	}

	attempt := 0
	err := reliability.Retry(ctx, retryCfg, func() error {
		if attempt > 0 {
			metrics.RecordEventSendRetry()
		}
		attempt++
		return conn.SendJSON(ctx, event)
	})

	if err != nil {
		/* Recorded, not re-raised into the run */
		metrics.RecordEventEmitted(string(eventType), "failed")
		metrics.WarnWithContext(ctx, "Event delivery failed after retries", map[string]interface{}{
			"event":    string(eventType),
			"attempts": attempt,
			"error":    err.Error(),
		})
		return err
	}

	metrics.RecordEventEmitted(string(eventType), "delivered")
	return nil
}
