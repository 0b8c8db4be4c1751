/*-------------------------------------------------------------------------
 *
 * base.go
 *    Sub-agent lifecycle base
 *
 * Common entry/exit bookkeeping around each concrete agent's domain
 * logic: entry-condition check, lifecycle transitions, timing,
 * notifications, and deterministic cleanup of per-run scratch state.
 * Concrete agents implement Execute only and never manage their own
 * lifecycle, so every agent gets identical observability for free.
 *
 * Copyright (c) 2024-2026, neurondb, Inc. <support@neurondb.ai>
 *
 * IDENTIFICATION
 *    NeuronSupervisor/internal/agent/base.go
 *
 *-------------------------------------------------------------------------
 */

package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/neurondb/NeuronSupervisor/internal/execution"
	"github.com/neurondb/NeuronSupervisor/internal/metrics"
)

/* Request is the domain input for one sub-agent run */
type Request struct {
	Text    string
	Payload map[string]interface{}
}

/* EventSink receives lifecycle progress events for delivery to the
 * originating connection. The WebSocket emitter implements it; tests
 * substitute a recorder. */
type EventSink interface {
	AgentStarted(ctx context.Context, execCtx *execution.Context, agentName string) error
	AgentThinking(ctx context.Context, execCtx *execution.Context, thought string) error
	ToolExecuting(ctx context.Context, execCtx *execution.Context, tool string) error
	ToolCompleted(ctx context.Context, execCtx *execution.Context, tool string, success bool, errorMessage string) error
	AgentCompleted(ctx context.Context, execCtx *execution.Context, result *Result) error
	ErrorEvent(ctx context.Context, execCtx *execution.Context, code, message string) error
}

/* Scratchpad is per-run transient state owned exclusively by one run
 * and destroyed at end-of-run. Concrete agents stash intermediate data
 * here instead of on the agent struct. */
type Scratchpad struct {
	values map[string]interface{}
}

/* NewScratchpad creates an empty scratchpad */
func NewScratchpad() *Scratchpad {
	return &Scratchpad{values: make(map[string]interface{})}
}

/* Put stores a value in the scratchpad */
func (s *Scratchpad) Put(key string, value interface{}) {
	s.values[key] = value
}

/* Get retrieves a value from the scratchpad */
func (s *Scratchpad) Get(key string) (interface{}, bool) {
	value, ok := s.values[key]
	return value, ok
}

/* Len returns the number of stored values */
func (s *Scratchpad) Len() int {
	return len(s.values)
}

/* destroy clears the scratchpad so a reused instance cannot leak one
 * run's data into the next */
func (s *Scratchpad) destroy() {
	s.values = nil
}

/* Executor is the domain logic a concrete sub-agent provides */
type Executor interface {
	/* Name identifies the agent in results, events, and metrics */
	Name() string

	/* CheckEntryConditions may veto execution; the returned reason is
	 * surfaced in the failure notification */
	CheckEntryConditions(ctx context.Context, execCtx *execution.Context, req Request) (bool, string)

	/* Execute runs the domain logic. It must not manage lifecycle
	 * state. Expected failures come back as an error; the base layer
	 * converts them into a tagged failure result. */
	Execute(ctx context.Context, execCtx *execution.Context, req Request, scratch *Scratchpad, m *ExecutionMetrics) (interface{}, error)
}

/* BaseAgent wraps an Executor with lifecycle bookkeeping */
type BaseAgent struct {
	executor  Executor
	lifecycle *Lifecycle
	sink      EventSink
	scratch   *Scratchpad
}

/* NewBaseAgent creates a base agent around a concrete executor. One
 * instance serves one run; the router acquires a fresh instance per
 * message. */
func NewBaseAgent(executor Executor, sink EventSink) *BaseAgent {
	return &BaseAgent{
		executor:  executor,
		lifecycle: NewLifecycle(executor.Name()),
		sink:      sink,
	}
}

/* Lifecycle exposes the lifecycle for inspection */
func (b *BaseAgent) Lifecycle() *Lifecycle {
	return b.lifecycle
}

/* Name returns the wrapped executor's name */
func (b *BaseAgent) Name() string {
	return b.executor.Name()
}

/* Run orchestrates pre-run, Execute, and post-run. It always returns a
 * tagged result; domain failures never propagate as errors. The error
 * return is reserved for lifecycle violations, which indicate a
 * programming bug. */
func (b *BaseAgent) Run(ctx context.Context, execCtx *execution.Context, req Request) (*Result, error) {
	logCtx := execCtx.WithLogContext(ctx)
	m := ExecutionMetrics{
		RunID:     execCtx.RunID,
		StartedAt: time.Now(),
	}

	/* Pre-run: entry conditions, then PENDING -> RUNNING */
	if ok, reason := b.executor.CheckEntryConditions(ctx, execCtx, req); !ok {
		metrics.WarnWithContext(logCtx, "Entry conditions vetoed execution", map[string]interface{}{
			"agent":  b.executor.Name(),
			"reason": reason,
		})
		if err := b.lifecycle.TransitionTo(StateFailed); err != nil {
			return nil, err
		}
		b.notifyError(logCtx, execCtx, "entry_conditions_failed", reason)
		m.FinishedAt = time.Now()
		b.finish(logCtx, "vetoed", m)
		return FailureResult(b.executor.Name(), reason, m), nil
	}

	if err := b.lifecycle.TransitionTo(StateRunning); err != nil {
		return nil, fmt.Errorf("agent run rejected: agent='%s', error=%w", b.executor.Name(), err)
	}

	if err := b.sink.AgentStarted(logCtx, execCtx, b.executor.Name()); err != nil {
		metrics.WarnWithContext(logCtx, "Failed to deliver started notification", map[string]interface{}{
			"agent": b.executor.Name(),
			"error": err.Error(),
		})
	}

	b.scratch = NewScratchpad()
	defer b.cleanup()

	/* Execute domain logic, converting panics into tagged failures so
	 * a misbehaving agent cannot crash the serving loop */
	data, execErr := b.safeExecute(ctx, execCtx, req, &m)

	m.FinishedAt = time.Now()

	/* Post-run: transition, timing, notification */
	if execErr != nil {
		metrics.ErrorWithContext(logCtx, "Agent execution failed", execErr, map[string]interface{}{
			"agent": b.executor.Name(),
		})
		if err := b.lifecycle.TransitionTo(StateFailed); err != nil {
			return nil, err
		}
		b.notifyError(logCtx, execCtx, "execution_failed", userSafeMessage(execErr))
		b.finish(logCtx, "failed", m)
		return FailureResult(b.executor.Name(), userSafeMessage(execErr), m), nil
	}

	if err := b.lifecycle.TransitionTo(StateCompleted); err != nil {
		return nil, err
	}

	b.finish(logCtx, "completed", m)
	return SuccessResult(b.executor.Name(), data, m), nil
}

/* safeExecute invokes Execute with panic recovery */
func (b *BaseAgent) safeExecute(ctx context.Context, execCtx *execution.Context, req Request, m *ExecutionMetrics) (data interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("agent panicked: agent='%s', panic=%v", b.executor.Name(), r)
		}
	}()
	return b.executor.Execute(ctx, execCtx, req, b.scratch, m)
}

/* Shutdown moves the agent to its terminal state */
func (b *BaseAgent) Shutdown() error {
	return b.lifecycle.TransitionTo(StateShutdown)
}

/* finish records run metrics */
func (b *BaseAgent) finish(ctx context.Context, status string, m ExecutionMetrics) {
	duration := m.FinishedAt.Sub(m.StartedAt)
	metrics.RecordAgentRun(b.executor.Name(), status, duration)
	metrics.InfoWithContext(ctx, "Agent run finished", map[string]interface{}{
		"agent":       b.executor.Name(),
		"status":      status,
		"duration_ms": duration.Milliseconds(),
		"tool_calls":  m.ToolCalls,
	})
}

/* notifyError attempts a best-effort error notification */
func (b *BaseAgent) notifyError(ctx context.Context, execCtx *execution.Context, code, message string) {
	if err := b.sink.ErrorEvent(ctx, execCtx, code, message); err != nil {
		metrics.WarnWithContext(ctx, "Failed to deliver error notification", map[string]interface{}{
			"agent": b.executor.Name(),
			"code":  code,
			"error": err.Error(),
		})
	}
}

/* cleanup destroys per-run scratch state; invoked on every exit path */
func (b *BaseAgent) cleanup() {
	if b.scratch != nil {
		b.scratch.destroy()
		b.scratch = nil
	}
}

/* userSafeMessage strips internal detail from an error before it
 * reaches the client */
func userSafeMessage(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if len(msg) > 500 {
		msg = msg[:500]
	}
	return msg
}
