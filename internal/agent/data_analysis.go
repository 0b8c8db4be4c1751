/*-------------------------------------------------------------------------
 *
 * data_analysis.go
 *    Data analysis sub-agent
 *
 * Runs schema introspection and an analytical query against the data
 * store, then asks the LLM boundary to interpret the rows. Store and
 * LLM calls go through the reliability executor; schema and result
 * lookups consult the user-scoped caches first. Every external step is
 * bracketed by tool_executing/tool_completed events, cache-served
 * lookups included, so clients always see the full event sequence.
 *
 * Copyright (c) 2024-2026, neurondb, Inc. <support@neurondb.ai>
 *
 * IDENTIFICATION
 *    NeuronSupervisor/internal/agent/data_analysis.go
 *
 *-------------------------------------------------------------------------
 */

package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/neurondb/NeuronSupervisor/internal/cache"
	"github.com/neurondb/NeuronSupervisor/internal/execution"
	"github.com/neurondb/NeuronSupervisor/internal/metrics"
	"github.com/neurondb/NeuronSupervisor/internal/reliability"
)

/* TableSchema describes one introspected table */
type TableSchema struct {
	Table   string   `json:"table"`
	Columns []Column `json:"columns"`
}

/* Column describes one table column */
type Column struct {
	Name     string `json:"name"`
	DataType string `json:"data_type"`
	Nullable bool   `json:"nullable"`
}

/* DataStore is the persistent-store collaborator boundary */
type DataStore interface {
	IntrospectSchema(ctx context.Context, tableName string) (*TableSchema, error)
	RunQuery(ctx context.Context, query string, args map[string]interface{}) ([]map[string]interface{}, error)
}

/* LLMClient is the LLM collaborator boundary. How the completion is
 * produced (prompts, models) is outside this package. */
type LLMClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

/* DataAnalysisAgent analyzes a dataset in response to a user request */
type DataAnalysisAgent struct {
	store       DataStore
	llm         LLMClient
	schemaCache *cache.SchemaCache
	resultCache *cache.ResultCache
	executor    *reliability.Executor
	sink        EventSink
	table       string
}

/* NewDataAnalysisAgent creates a data analysis agent */
func NewDataAnalysisAgent(store DataStore, llm LLMClient, schemaCache *cache.SchemaCache, resultCache *cache.ResultCache, executor *reliability.Executor, sink EventSink, table string) *DataAnalysisAgent {
	return &DataAnalysisAgent{
		store:       store,
		llm:         llm,
		schemaCache: schemaCache,
		resultCache: resultCache,
		executor:    executor,
		sink:        sink,
		table:       table,
	}
}

/* Name identifies the agent */
func (a *DataAnalysisAgent) Name() string {
	return "data_analysis"
}

/* CheckEntryConditions vetoes execution when collaborators are missing
 * or the request is empty */
func (a *DataAnalysisAgent) CheckEntryConditions(ctx context.Context, execCtx *execution.Context, req Request) (bool, string) {
	if req.Text == "" {
		return false, "analysis request text is empty"
	}
	if a.store == nil {
		return false, "data store is unavailable"
	}
	if a.llm == nil {
		return false, "llm client is unavailable"
	}
	return true, ""
}

/* Execute runs the analysis pipeline */
func (a *DataAnalysisAgent) Execute(ctx context.Context, execCtx *execution.Context, req Request, scratch *Scratchpad, m *ExecutionMetrics) (interface{}, error) {
	logCtx := execCtx.WithLogContext(ctx)

	a.thinking(logCtx, execCtx, m, fmt.Sprintf("Analyzing request against table %s", a.table))

	/* Step 1: table schema, cache first */
	schema, err := a.loadSchema(logCtx, execCtx, m)
	if err != nil {
		return nil, fmt.Errorf("data analysis failed at step 1 (load schema): table='%s', error=%w", a.table, err)
	}
	scratch.Put("schema", schema)

	/* Step 2: analytical query under tool events */
	rows, err := a.runAnalysisQuery(logCtx, execCtx, req, m)
	if err != nil {
		return nil, fmt.Errorf("data analysis failed at step 2 (run query): table='%s', error=%w", a.table, err)
	}
	scratch.Put("rows", rows)

	a.thinking(logCtx, execCtx, m, fmt.Sprintf("Interpreting %d result rows", len(rows)))

	/* Step 3: LLM interpretation */
	parsed, err := a.interpret(logCtx, execCtx, req, schema, rows, m)
	if err != nil {
		return nil, fmt.Errorf("data analysis failed at step 3 (interpret): table='%s', error=%w", a.table, err)
	}

	if parsed.Kind == KindError {
		/* Parsing degraded; surface a result that carries the error
		 * rather than failing the run */
		return &DataAnalysisResponse{
			Kind:    KindDataAnalysis,
			Summary: parsed.ErrorMessage,
			Rows:    rows,
		}, nil
	}

	if parsed.Kind == KindAnomalyDetection {
		return parsed.AnomalyDetection, nil
	}

	response := parsed.DataAnalysis
	if response.Rows == nil {
		response.Rows = rows
	}
	return response, nil
}

/* loadSchema fetches the table schema through the cache, bracketed by
 * tool events */
func (a *DataAnalysisAgent) loadSchema(ctx context.Context, execCtx *execution.Context, m *ExecutionMetrics) (*TableSchema, error) {
	a.toolExecuting(ctx, execCtx, "introspect_schema", m)

	if cached, ok := a.schemaCache.Get(execCtx.UserID, a.table); ok {
		m.CacheHits++
		if schema, ok := cached.(*TableSchema); ok {
			a.toolCompleted(ctx, execCtx, "introspect_schema", true, "")
			return schema, nil
		}
	}
	m.CacheMisses++

	result := a.executor.ExecuteWithReliability(ctx, "store.introspect_schema", func(opCtx context.Context) (interface{}, error) {
		return a.store.IntrospectSchema(opCtx, a.table)
	})
	m.RetryAttempts += result.Retries()
	if !result.Success {
		m.ToolFailures++
		a.toolCompleted(ctx, execCtx, "introspect_schema", false, userSafeMessage(result.Err))
		return nil, result.Err
	}

	schema := result.Result.(*TableSchema)
	a.schemaCache.Set(execCtx.UserID, a.table, schema)
	a.toolCompleted(ctx, execCtx, "introspect_schema", true, "")
	return schema, nil
}

/* runAnalysisQuery executes the analytical query bracketed by tool
 * events, consulting the result cache first */
func (a *DataAnalysisAgent) runAnalysisQuery(ctx context.Context, execCtx *execution.Context, req Request, m *ExecutionMetrics) ([]map[string]interface{}, error) {
	query := fmt.Sprintf("SELECT * FROM %s ORDER BY created_at DESC LIMIT 100", a.table)
	args := map[string]interface{}{"request": req.Text}

	a.toolExecuting(ctx, execCtx, "analysis_query", m)

	if cached, ok := a.resultCache.Get(execCtx.UserID, query, args); ok {
		m.CacheHits++
		if rows, ok := cached.([]map[string]interface{}); ok {
			a.toolCompleted(ctx, execCtx, "analysis_query", true, "")
			return rows, nil
		}
	}
	m.CacheMisses++

	result := a.executor.ExecuteWithReliability(ctx, "store.run_query", func(opCtx context.Context) (interface{}, error) {
		return a.store.RunQuery(opCtx, query, args)
	})
	m.RetryAttempts += result.Retries()

	if !result.Success {
		m.ToolFailures++
		a.toolCompleted(ctx, execCtx, "analysis_query", false, userSafeMessage(result.Err))
		return nil, result.Err
	}

	rows := result.Result.([]map[string]interface{})
	a.toolCompleted(ctx, execCtx, "analysis_query", true, "")

	a.resultCache.Set(execCtx.UserID, query, args, rows)
	return rows, nil
}

/* interpret asks the LLM boundary to interpret the rows, bracketed by
 * tool events */
func (a *DataAnalysisAgent) interpret(ctx context.Context, execCtx *execution.Context, req Request, schema *TableSchema, rows []map[string]interface{}, m *ExecutionMetrics) (*ParsedResponse, error) {
	prompt := buildAnalysisPrompt(req.Text, schema, rows)

	a.toolExecuting(ctx, execCtx, "interpret_results", m)

	result := a.executor.ExecuteWithReliability(ctx, "llm.complete", func(opCtx context.Context) (interface{}, error) {
		return a.llm.Complete(opCtx, prompt)
	})
	m.RetryAttempts += result.Retries()
	if !result.Success {
		m.ToolFailures++
		a.toolCompleted(ctx, execCtx, "interpret_results", false, userSafeMessage(result.Err))
		return nil, result.Err
	}

	a.toolCompleted(ctx, execCtx, "interpret_results", true, "")
	return ParseLLMResponse(result.Result.(string)), nil
}

/* thinking emits an agent_thinking event and counts it */
func (a *DataAnalysisAgent) thinking(ctx context.Context, execCtx *execution.Context, m *ExecutionMetrics, thought string) {
	m.ThinkingEvents++
	if err := a.sink.AgentThinking(ctx, execCtx, thought); err != nil {
		metrics.WarnWithContext(ctx, "Failed to deliver agent_thinking event", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

/* toolExecuting emits a tool_executing event and counts the call */
func (a *DataAnalysisAgent) toolExecuting(ctx context.Context, execCtx *execution.Context, tool string, m *ExecutionMetrics) {
	m.ToolCalls++
	if err := a.sink.ToolExecuting(ctx, execCtx, tool); err != nil {
		metrics.WarnWithContext(ctx, "Failed to deliver tool_executing event", map[string]interface{}{
			"tool":  tool,
			"error": err.Error(),
		})
	}
}

/* toolCompleted emits a tool_completed event */
func (a *DataAnalysisAgent) toolCompleted(ctx context.Context, execCtx *execution.Context, tool string, success bool, errorMessage string) {
	if err := a.sink.ToolCompleted(ctx, execCtx, tool, success, errorMessage); err != nil {
		metrics.WarnWithContext(ctx, "Failed to deliver tool_completed event", map[string]interface{}{
			"tool":  tool,
			"error": err.Error(),
		})
	}
}

/* buildAnalysisPrompt renders the interpretation prompt. The concrete
 * prompt wording lives at the LLM boundary; this only packages inputs. */
func buildAnalysisPrompt(request string, schema *TableSchema, rows []map[string]interface{}) string {
	schemaJSON, _ := json.Marshal(schema)

	sample := rows
	if len(sample) > 20 {
		sample = sample[:20]
	}
	rowsJSON, _ := json.Marshal(sample)

	return fmt.Sprintf("request: %s\nschema: %s\nrows: %s", request, schemaJSON, rowsJSON)
}
