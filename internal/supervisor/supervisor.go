/*-------------------------------------------------------------------------
 *
 * supervisor.go
 *    Supervisor composition root
 *
 * Owns the sub-agent fleet and the shared reliability and cache
 * infrastructure. The router asks the supervisor for a fresh sub-agent
 * instance scoped to each execution context; instances are per-run, so
 * lifecycle state never carries across runs.
 *
 * Copyright (c) 2024-2026, neurondb, Inc. <support@neurondb.ai>
 *
 * IDENTIFICATION
 *    NeuronSupervisor/internal/supervisor/supervisor.go
 *
 *-------------------------------------------------------------------------
 */

package supervisor

import (
	"fmt"
	"sync"

	"github.com/neurondb/NeuronSupervisor/internal/agent"
	"github.com/neurondb/NeuronSupervisor/internal/cache"
	"github.com/neurondb/NeuronSupervisor/internal/config"
	"github.com/neurondb/NeuronSupervisor/internal/execution"
	"github.com/neurondb/NeuronSupervisor/internal/reliability"
	"github.com/neurondb/NeuronSupervisor/internal/ws"
)

/* Supervisor composes sub-agents over shared infrastructure */
type Supervisor struct {
	cfg         *config.Config
	store       agent.DataStore
	llm         agent.LLMClient
	sink        agent.EventSink
	executor    *reliability.Executor
	schemaCache *cache.SchemaCache
	resultCache *cache.ResultCache
	table       string

	mu          sync.Mutex
	activeRuns  int
	acquiredAll int64
}

/* New creates a supervisor */
func New(cfg *config.Config, store agent.DataStore, llm agent.LLMClient, sink agent.EventSink, table string) *Supervisor {
	return &Supervisor{
		cfg:         cfg,
		store:       store,
		llm:         llm,
		sink:        sink,
		executor:    reliability.NewExecutor(cfg.Reliability, cfg.Agent.OperationTimeout),
		schemaCache: cache.NewSchemaCache(cfg.Cache),
		resultCache: cache.NewResultCache(cfg.Cache),
		table:       table,
	}
}

/* AcquireAgent returns a fresh sub-agent instance for one run plus a
 * release function invoked on every exit path. start_agent requests go
 * to the data analysis pipeline; conversational messages are triaged. */
func (s *Supervisor) AcquireAgent(execCtx *execution.Context, messageType ws.MessageType) (*agent.BaseAgent, func(), error) {
	var executor agent.Executor

	switch messageType {
	case ws.MessageTypeStartAgent:
		executor = agent.NewDataAnalysisAgent(s.store, s.llm, s.schemaCache, s.resultCache, s.executor, s.sink, s.table)
	case ws.MessageTypeUserMessage, ws.MessageTypeChat:
		executor = agent.NewTriageAgent(s.llm, s.executor, s.sink)
	default:
		return nil, nil, fmt.Errorf("agent acquisition failed: unsupported_message_type='%s'", messageType)
	}

	baseAgent := agent.NewBaseAgent(executor, s.sink)

	s.mu.Lock()
	s.activeRuns++
	s.acquiredAll++
	s.mu.Unlock()

	release := func() {
		/* Shutdown is best-effort: a completed or failed agent moves
		 * to its terminal state; anything else is already terminal */
		_ = baseAgent.Shutdown()

		s.mu.Lock()
		s.activeRuns--
		s.mu.Unlock()
	}

	return baseAgent, release, nil
}

/* Executor exposes the shared reliability executor for health checks */
func (s *Supervisor) Executor() *reliability.Executor {
	return s.executor
}

/* SchemaCache exposes the schema cache */
func (s *Supervisor) SchemaCache() *cache.SchemaCache {
	return s.schemaCache
}

/* ResultCache exposes the result cache */
func (s *Supervisor) ResultCache() *cache.ResultCache {
	return s.resultCache
}

/* Health is a snapshot of supervisor state */
type Health struct {
	ActiveRuns      int                  `json:"active_runs"`
	TotalAcquired   int64                `json:"total_acquired"`
	SchemaCacheSize int                  `json:"schema_cache_size"`
	ResultCacheSize int                  `json:"result_cache_size"`
	Breakers        []reliability.Status `json:"breakers"`
}

/* GetHealth returns the supervisor health snapshot */
func (s *Supervisor) GetHealth() Health {
	s.mu.Lock()
	activeRuns := s.activeRuns
	acquired := s.acquiredAll
	s.mu.Unlock()

	return Health{
		ActiveRuns:      activeRuns,
		TotalAcquired:   acquired,
		SchemaCacheSize: s.schemaCache.Size(),
		ResultCacheSize: s.resultCache.Size(),
		Breakers:        s.executor.Statuses(),
	}
}
