/*-------------------------------------------------------------------------
 *
 * router.go
 *    Agent message router
 *
 * Single authoritative entry point for agent-related WebSocket traffic.
 * Validates message shape per type, resolves an execution context with
 * session continuity, acquires a connection-scoped sub-agent instance,
 * drives it to completion, and guarantees the lifecycle event sequence
 * terminates. No failure inside routing ever propagates to the
 * transport layer or crashes the serving loop for other users.
 *
 * Copyright (c) 2024-2026, neurondb, Inc. <support@neurondb.ai>
 *
 * IDENTIFICATION
 *    NeuronSupervisor/internal/ws/router.go
 *
 *-------------------------------------------------------------------------
 */

package ws

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/neurondb/NeuronSupervisor/internal/agent"
	"github.com/neurondb/NeuronSupervisor/internal/execution"
	"github.com/neurondb/NeuronSupervisor/internal/metrics"
	"github.com/neurondb/NeuronSupervisor/internal/validation"
)

/* AgentProvider acquires a sub-agent instance scoped to an execution
 * context. The returned release function is invoked on every exit
 * path. The supervisor implements this boundary. */
type AgentProvider interface {
	AcquireAgent(execCtx *execution.Context, messageType MessageType) (*agent.BaseAgent, func(), error)
}

/* RunRecorder persists completed runs for auditing. Implementations
 * acquire and release their own scoped database session. */
type RunRecorder interface {
	RecordRun(ctx context.Context, execCtx *execution.Context, result *agent.Result) error
}

/* RouterStats is a snapshot of router counters */
type RouterStats struct {
	MessagesProcessed int64                 `json:"messages_processed"`
	MessagesByType    map[MessageType]int64 `json:"messages_by_type"`
	Errors            int64                 `json:"errors"`
	LastProcessedTime time.Time             `json:"last_processed_time"`
}

/* Router routes agent messages to sub-agent pipelines */
type Router struct {
	registry *execution.Registry
	emitter  *Emitter
	provider AgentProvider
	recorder RunRecorder

	mu                sync.Mutex
	messagesProcessed int64
	messagesByType    map[MessageType]int64
	errors            int64
	lastProcessedTime time.Time
}

/* NewRouter creates a message router */
func NewRouter(registry *execution.Registry, emitter *Emitter, provider AgentProvider, recorder RunRecorder) *Router {
	return &Router{
		registry:       registry,
		emitter:        emitter,
		provider:       provider,
		recorder:       recorder,
		messagesByType: make(map[MessageType]int64),
	}
}

/* CanHandle reports whether a message type belongs to this router.
 * Connection lifecycle types (connect, disconnect) belong to the
 * connection handler. */
func (r *Router) CanHandle(messageType MessageType) bool {
	switch messageType {
	case MessageTypeStartAgent, MessageTypeUserMessage, MessageTypeChat:
		return true
	}
	return false
}

/* HandleMessage processes one agent message. It returns true when the
 * run reached its terminal event (success or handled failure), false
 * when the message was rejected or an unrecovered fault occurred.
 * Callers must treat false as "did not deliver business value, already
 * logged" rather than retry blindly. */
func (r *Router) HandleMessage(ctx context.Context, userID string, conn Conn, msg *Message) (handled bool) {
	started := time.Now()
	logCtx := metrics.WithLogContext(ctx, "", userID, "", "", conn.ID())

	defer func() {
		if rec := recover(); rec != nil {
			metrics.ErrorWithContext(logCtx, "Panic during message handling", fmt.Errorf("panic=%v", rec), map[string]interface{}{
				"message_type": string(msg.Type),
				"elapsed_ms":   time.Since(started).Milliseconds(),
			})
			r.recordOutcome(msg.Type, started, false)
			handled = false
		}
	}()

	if userID == "" {
		metrics.WarnWithContext(logCtx, "Message rejected: empty user id", map[string]interface{}{
			"message_type": string(msg.Type),
		})
		r.recordOutcome(msg.Type, started, false)
		return false
	}

	if !r.CanHandle(msg.Type) {
		metrics.WarnWithContext(logCtx, "Message rejected: unsupported type", map[string]interface{}{
			"message_type": string(msg.Type),
		})
		r.recordOutcome(msg.Type, started, false)
		return false
	}

	/* Validate required payload fields per type */
	requestText := msg.RequestText()
	if err := validation.ValidateRequired(requestText, "request text"); err != nil {
		metrics.WarnWithContext(logCtx, "Message rejected: missing required payload field", map[string]interface{}{
			"message_type": string(msg.Type),
			"error":        err.Error(),
		})
		r.recordOutcome(msg.Type, started, false)
		return false
	}

	/* Resolve execution context with session continuity; a START_AGENT
	 * message explicitly begins a new run */
	freshRun := msg.Type == MessageTypeStartAgent
	execCtx, err := r.registry.GetOrCreate(ctx, userID, conn.ID(), msg.ThreadID(), msg.RunID(), freshRun)
	if err != nil {
		/* Fail the single message, not the connection */
		metrics.WarnWithContext(logCtx, "Context resolution failed", map[string]interface{}{
			"message_type": string(msg.Type),
			"error":        err.Error(),
		})
		r.recordOutcome(msg.Type, started, false)
		return false
	}
	defer r.registry.ReleaseRun(execCtx.RunID)
	defer r.emitter.ReleaseRun(execCtx.RunID)

	runCtx := execCtx.WithLogContext(ctx)

	/* Acquire a connection-scoped sub-agent; release on every path */
	baseAgent, release, err := r.provider.AcquireAgent(execCtx, msg.Type)
	if err != nil {
		metrics.ErrorWithContext(runCtx, "Agent acquisition failed", err, map[string]interface{}{
			"message_type": string(msg.Type),
		})
		r.notifyRejected(runCtx, execCtx, "agent_unavailable", "no agent available for this request")
		r.recordOutcome(msg.Type, started, false)
		return false
	}
	defer release()

	result, runErr := baseAgent.Run(runCtx, execCtx, agent.Request{
		Text:    requestText,
		Payload: msg.Payload,
	})

	if runErr != nil {
		/* Lifecycle violation or other unexpected fault. Terminate the
		 * event sequence so the client is not left waiting, then report
		 * failure to the transport. */
		metrics.ErrorWithContext(runCtx, "Agent run fault", runErr, map[string]interface{}{
			"message_type": string(msg.Type),
			"elapsed_ms":   time.Since(started).Milliseconds(),
		})
		synthesized := agent.FailureResult(baseAgent.Name(), "internal error", agent.ExecutionMetrics{
			RunID:      execCtx.RunID,
			StartedAt:  started,
			FinishedAt: time.Now(),
		})
		if err := r.emitter.AgentCompleted(runCtx, execCtx, synthesized); err != nil {
			metrics.WarnWithContext(runCtx, "Failed to deliver terminal event", map[string]interface{}{
				"error": err.Error(),
			})
		}
		r.recordOutcome(msg.Type, started, false)
		return false
	}

	/* Terminal event: always emitted exactly once per run, on both
	 * success and handled-failure paths */
	if err := r.emitter.AgentCompleted(runCtx, execCtx, result); err != nil {
		metrics.WarnWithContext(runCtx, "Failed to deliver terminal event", map[string]interface{}{
			"error": err.Error(),
		})
	}

	if r.recorder != nil {
		if err := r.recorder.RecordRun(runCtx, execCtx, result); err != nil {
			metrics.WarnWithContext(runCtx, "Run audit record failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	r.recordOutcome(msg.Type, started, true)
	return true
}

/* notifyRejected attempts a best-effort error event */
func (r *Router) notifyRejected(ctx context.Context, execCtx *execution.Context, code, message string) {
	if err := r.emitter.ErrorEvent(ctx, execCtx, code, message); err != nil {
		metrics.WarnWithContext(ctx, "Failed to deliver rejection event", map[string]interface{}{
			"code":  code,
			"error": err.Error(),
		})
	}
}

/* recordOutcome updates router counters and metrics */
func (r *Router) recordOutcome(messageType MessageType, started time.Time, success bool) {
	status := "ok"
	r.mu.Lock()
	r.messagesProcessed++
	r.messagesByType[messageType]++
	if !success {
		r.errors++
		status = "error"
	}
	r.lastProcessedTime = time.Now()
	r.mu.Unlock()

	metrics.RecordWSMessage(string(messageType), status, time.Since(started))
}

/* Stats returns a snapshot of router counters */
func (r *Router) Stats() RouterStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	byType := make(map[MessageType]int64, len(r.messagesByType))
	for messageType, count := range r.messagesByType {
		byType[messageType] = count
	}

	return RouterStats{
		MessagesProcessed: r.messagesProcessed,
		MessagesByType:    byType,
		Errors:            r.errors,
		LastProcessedTime: r.lastProcessedTime,
	}
}
