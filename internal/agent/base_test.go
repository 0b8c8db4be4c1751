/*-------------------------------------------------------------------------
 *
 * base_test.go
 *    Sub-agent base orchestration tests
 *
 * Copyright (c) 2024-2026, neurondb, Inc. <support@neurondb.ai>
 *
 * IDENTIFICATION
 *    NeuronSupervisor/internal/agent/base_test.go
 *
 *-------------------------------------------------------------------------
 */

package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/neurondb/NeuronSupervisor/internal/execution"
)

/* sinkRecorder records lifecycle notifications in order */
type sinkRecorder struct {
	mu     sync.Mutex
	events []string
}

func (s *sinkRecorder) record(event string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *sinkRecorder) AgentStarted(ctx context.Context, execCtx *execution.Context, agentName string) error {
	return s.record("agent_started")
}

func (s *sinkRecorder) AgentThinking(ctx context.Context, execCtx *execution.Context, thought string) error {
	return s.record("agent_thinking")
}

func (s *sinkRecorder) ToolExecuting(ctx context.Context, execCtx *execution.Context, tool string) error {
	return s.record("tool_executing")
}

func (s *sinkRecorder) ToolCompleted(ctx context.Context, execCtx *execution.Context, tool string, success bool, errorMessage string) error {
	return s.record("tool_completed")
}

func (s *sinkRecorder) AgentCompleted(ctx context.Context, execCtx *execution.Context, result *Result) error {
	return s.record("agent_completed")
}

func (s *sinkRecorder) ErrorEvent(ctx context.Context, execCtx *execution.Context, code, message string) error {
	return s.record("error:" + code)
}

func (s *sinkRecorder) recorded() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.events))
	copy(out, s.events)
	return out
}

/* fakeExecutor is a scripted domain executor */
type fakeExecutor struct {
	name       string
	veto       bool
	vetoReason string
	execErr    error
	panicValue interface{}
	result     interface{}
	usedScratch bool
}

func (f *fakeExecutor) Name() string {
	return f.name
}

func (f *fakeExecutor) CheckEntryConditions(ctx context.Context, execCtx *execution.Context, req Request) (bool, string) {
	if f.veto {
		return false, f.vetoReason
	}
	return true, ""
}

func (f *fakeExecutor) Execute(ctx context.Context, execCtx *execution.Context, req Request, scratch *Scratchpad, m *ExecutionMetrics) (interface{}, error) {
	if f.panicValue != nil {
		panic(f.panicValue)
	}
	if f.execErr != nil {
		return nil, f.execErr
	}
	scratch.Put("intermediate", "state")
	if _, ok := scratch.Get("intermediate"); ok {
		f.usedScratch = true
	}
	return f.result, nil
}

func testExecCtx(t *testing.T) *execution.Context {
	t.Helper()
	execCtx, err := execution.NewContext("user-1", "conn-1")
	if err != nil {
		t.Fatal(err)
	}
	return execCtx
}

/* TestBaseAgentSuccessfulRun tests the full success path */
func TestBaseAgentSuccessfulRun(t *testing.T) {
	sink := &sinkRecorder{}
	executor := &fakeExecutor{name: "data_analysis", result: map[string]interface{}{"summary": "ok"}}
	baseAgent := NewBaseAgent(executor, sink)

	result, err := baseAgent.Run(context.Background(), testExecCtx(t), Request{Text: "analyze"})
	if err != nil {
		t.Fatalf("unexpected lifecycle fault: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got %q", result.ErrorMessage)
	}
	if result.AgentName != "data_analysis" {
		t.Fatalf("expected agent name in result, got %q", result.AgentName)
	}
	if baseAgent.Lifecycle().State() != StateCompleted {
		t.Fatalf("expected completed, got %s", baseAgent.Lifecycle().State())
	}
	if !executor.usedScratch {
		t.Fatal("expected scratchpad to be usable during the run")
	}

	events := sink.recorded()
	if len(events) != 1 || events[0] != "agent_started" {
		t.Fatalf("expected exactly the started notification, got %v", events)
	}
}

/* TestBaseAgentEntryConditionVeto tests that a veto produces a tagged
 * failure without running domain logic */
func TestBaseAgentEntryConditionVeto(t *testing.T) {
	sink := &sinkRecorder{}
	executor := &fakeExecutor{name: "data_analysis", veto: true, vetoReason: "request text is empty"}
	baseAgent := NewBaseAgent(executor, sink)

	result, err := baseAgent.Run(context.Background(), testExecCtx(t), Request{})
	if err != nil {
		t.Fatalf("veto must not be a lifecycle fault: %v", err)
	}
	if result.Success {
		t.Fatal("expected failure result")
	}
	if result.ErrorMessage != "request text is empty" {
		t.Fatalf("expected veto reason in result, got %q", result.ErrorMessage)
	}
	if baseAgent.Lifecycle().State() != StateFailed {
		t.Fatalf("expected failed, got %s", baseAgent.Lifecycle().State())
	}

	events := sink.recorded()
	for _, event := range events {
		if event == "agent_started" {
			t.Fatal("vetoed run must not emit agent_started")
		}
	}
	if len(events) != 1 || !strings.HasPrefix(events[0], "error:entry_conditions_failed") {
		t.Fatalf("expected failure notification, got %v", events)
	}
}

/* TestBaseAgentExecutionFailure tests that an expected domain failure
 * comes back as a tagged result, never an error */
func TestBaseAgentExecutionFailure(t *testing.T) {
	sink := &sinkRecorder{}
	executor := &fakeExecutor{name: "data_analysis", execErr: fmt.Errorf("schema introspection failed: table='orders'")}
	baseAgent := NewBaseAgent(executor, sink)

	result, err := baseAgent.Run(context.Background(), testExecCtx(t), Request{Text: "analyze"})
	if err != nil {
		t.Fatalf("domain failure must not be a lifecycle fault: %v", err)
	}
	if result.Success {
		t.Fatal("expected failure result")
	}
	if baseAgent.Lifecycle().State() != StateFailed {
		t.Fatalf("expected failed, got %s", baseAgent.Lifecycle().State())
	}
}

/* TestBaseAgentPanicRecovery tests that a panicking agent is converted
 * into a tagged failure instead of crashing the caller */
func TestBaseAgentPanicRecovery(t *testing.T) {
	sink := &sinkRecorder{}
	executor := &fakeExecutor{name: "triage", panicValue: "nil map write"}
	baseAgent := NewBaseAgent(executor, sink)

	result, err := baseAgent.Run(context.Background(), testExecCtx(t), Request{Text: "triage"})
	if err != nil {
		t.Fatalf("panic must be recovered, got fault: %v", err)
	}
	if result.Success {
		t.Fatal("expected failure result from panic")
	}
	if !strings.Contains(result.ErrorMessage, "panicked") {
		t.Fatalf("expected panic detail in message, got %q", result.ErrorMessage)
	}
	if baseAgent.Lifecycle().State() != StateFailed {
		t.Fatalf("expected failed, got %s", baseAgent.Lifecycle().State())
	}
}

/* TestBaseAgentInstancePerRun tests that a completed instance rejects a
 * second run: instances are per-run by construction */
func TestBaseAgentInstancePerRun(t *testing.T) {
	sink := &sinkRecorder{}
	executor := &fakeExecutor{name: "data_analysis", result: "ok"}
	baseAgent := NewBaseAgent(executor, sink)

	if _, err := baseAgent.Run(context.Background(), testExecCtx(t), Request{Text: "first"}); err != nil {
		t.Fatal(err)
	}

	_, err := baseAgent.Run(context.Background(), testExecCtx(t), Request{Text: "second"})
	if err == nil {
		t.Fatal("expected second run on the same instance to be rejected")
	}
}

/* TestBaseAgentShutdown tests the terminal transition after a run */
func TestBaseAgentShutdown(t *testing.T) {
	sink := &sinkRecorder{}
	executor := &fakeExecutor{name: "data_analysis", result: "ok"}
	baseAgent := NewBaseAgent(executor, sink)

	if _, err := baseAgent.Run(context.Background(), testExecCtx(t), Request{Text: "go"}); err != nil {
		t.Fatal(err)
	}
	if err := baseAgent.Shutdown(); err != nil {
		t.Fatalf("expected shutdown after completion: %v", err)
	}
	if !baseAgent.Lifecycle().IsTerminal() {
		t.Fatal("expected terminal state after shutdown")
	}
}

/* TestScratchpad tests per-run scratch state */
func TestScratchpad(t *testing.T) {
	scratch := NewScratchpad()

	scratch.Put("rows", 42)
	value, ok := scratch.Get("rows")
	if !ok || value != 42 {
		t.Fatalf("expected stored value, got %v (ok=%v)", value, ok)
	}
	if scratch.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", scratch.Len())
	}

	if _, ok := scratch.Get("missing"); ok {
		t.Fatal("expected miss for absent key")
	}
}
