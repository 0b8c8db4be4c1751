/*-------------------------------------------------------------------------
 *
 * triage.go
 *    Triage sub-agent
 *
 * Classifies an incoming user request into a category and priority via
 * the LLM boundary so the supervisor can route follow-up work.
 *
 * Copyright (c) 2024-2026, neurondb, Inc. <support@neurondb.ai>
 *
 * IDENTIFICATION
 *    NeuronSupervisor/internal/agent/triage.go
 *
 *-------------------------------------------------------------------------
 */

package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/neurondb/NeuronSupervisor/internal/execution"
	"github.com/neurondb/NeuronSupervisor/internal/metrics"
	"github.com/neurondb/NeuronSupervisor/internal/reliability"
)

/* TriageAgent classifies user requests */
type TriageAgent struct {
	llm      LLMClient
	executor *reliability.Executor
	sink     EventSink
}

/* NewTriageAgent creates a triage agent */
func NewTriageAgent(llm LLMClient, executor *reliability.Executor, sink EventSink) *TriageAgent {
	return &TriageAgent{
		llm:      llm,
		executor: executor,
		sink:     sink,
	}
}

/* Name identifies the agent */
func (a *TriageAgent) Name() string {
	return "triage"
}

/* CheckEntryConditions vetoes execution on empty input */
func (a *TriageAgent) CheckEntryConditions(ctx context.Context, execCtx *execution.Context, req Request) (bool, string) {
	if strings.TrimSpace(req.Text) == "" {
		return false, "triage request text is empty"
	}
	if a.llm == nil {
		return false, "llm client is unavailable"
	}
	return true, ""
}

/* Execute classifies the request */
func (a *TriageAgent) Execute(ctx context.Context, execCtx *execution.Context, req Request, scratch *Scratchpad, m *ExecutionMetrics) (interface{}, error) {
	logCtx := execCtx.WithLogContext(ctx)

	m.ThinkingEvents++
	if err := a.sink.AgentThinking(logCtx, execCtx, "Classifying request"); err != nil {
		metrics.WarnWithContext(logCtx, "Failed to deliver agent_thinking event", map[string]interface{}{
			"error": err.Error(),
		})
	}

	if err := a.sink.ToolExecuting(logCtx, execCtx, "classify"); err != nil {
		metrics.WarnWithContext(logCtx, "Failed to deliver tool_executing event", map[string]interface{}{
			"tool":  "classify",
			"error": err.Error(),
		})
	}
	m.ToolCalls++

	result := a.executor.ExecuteWithReliability(logCtx, "llm.complete", func(opCtx context.Context) (interface{}, error) {
		return a.llm.Complete(opCtx, fmt.Sprintf("triage request: %s", req.Text))
	})
	m.RetryAttempts += result.Retries()

	if !result.Success {
		m.ToolFailures++
		if err := a.sink.ToolCompleted(logCtx, execCtx, "classify", false, userSafeMessage(result.Err)); err != nil {
			metrics.WarnWithContext(logCtx, "Failed to deliver tool_completed event", map[string]interface{}{
				"tool":  "classify",
				"error": err.Error(),
			})
		}
		return nil, fmt.Errorf("triage failed: classification_error=%w", result.Err)
	}

	if err := a.sink.ToolCompleted(logCtx, execCtx, "classify", true, ""); err != nil {
		metrics.WarnWithContext(logCtx, "Failed to deliver tool_completed event", map[string]interface{}{
			"tool":  "classify",
			"error": err.Error(),
		})
	}

	parsed := ParseLLMResponse(result.Result.(string))
	if parsed.Kind == KindTriage {
		scratch.Put("category", parsed.Triage.Category)
		return parsed.Triage, nil
	}

	/* Degrade to a default classification rather than failing */
	return &TriageResponse{
		Kind:     KindTriage,
		Category: "general",
		Priority: "normal",
		Reason:   "classification output unrecognized, defaulted",
	}, nil
}
