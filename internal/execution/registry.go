/*-------------------------------------------------------------------------
 *
 * registry.go
 *    Execution context registry with per-user isolation
 *
 * Resolves and caches execution contexts per (user, connection) pair.
 * State is sharded by user so concurrent resolution for unrelated users
 * never serializes on a shared lock.
 *
 * Copyright (c) 2024-2026, neurondb, Inc. <support@neurondb.ai>
 *
 * IDENTIFICATION
 *    NeuronSupervisor/internal/execution/registry.go
 *
 *-------------------------------------------------------------------------
 */

package execution

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/neurondb/NeuronSupervisor/internal/metrics"
	"github.com/neurondb/NeuronSupervisor/internal/validation"
)

const registryShards = 32

/* userState tracks per-user conversational state. Pinned threads give
 * session continuity: a message without an explicit thread_id attaches
 * to the thread already pinned to its connection. */
type userState struct {
	pinnedThreads map[string]uuid.UUID    /* connection id -> thread id */
	currentRuns   map[uuid.UUID]uuid.UUID /* thread id -> run id */
}

/* registryShard holds the users hashed to one shard */
type registryShard struct {
	mu    sync.Mutex
	users map[string]*userState
}

/* Registry resolves execution contexts with per-user isolation */
type Registry struct {
	shards [registryShards]*registryShard
	active sync.Map /* run id -> *Context */
	count  int64
	mu     sync.Mutex /* guards count only */
}

/* NewRegistry creates a new context registry */
func NewRegistry() *Registry {
	r := &Registry{}
	for i := range r.shards {
		r.shards[i] = &registryShard{users: make(map[string]*userState)}
	}
	return r
}

/* shardFor returns the shard owning a user */
func (r *Registry) shardFor(userID string) *registryShard {
	h := fnv.New32a()
	h.Write([]byte(userID))
	return r.shards[h.Sum32()%registryShards]
}

/* GetOrCreate resolves an execution context.
 *
 * Explicit thread/run ids from the payload are honored verbatim. A
 * missing thread id reuses the thread pinned to (user, connection) when
 * one exists; a missing run id reuses the current run of that thread
 * unless freshRun forces a new one. Existing pins are never invalidated
 * without an explicit signal. */
func (r *Registry) GetOrCreate(ctx context.Context, userID, connectionID, threadID, runID string, freshRun bool) (*Context, error) {
	if userID == "" {
		return nil, fmt.Errorf("context resolution failed: user_id_empty=true")
	}
	if connectionID == "" {
		return nil, fmt.Errorf("context resolution failed: user_id='%s', connection_id_empty=true",
			metrics.TruncateUserID(userID))
	}

	var explicitThread, explicitRun uuid.UUID
	var err error
	if threadID != "" {
		explicitThread, err = validation.ParseUUID(threadID)
		if err != nil {
			return nil, fmt.Errorf("context resolution failed: thread_id_malformed=true, thread_id='%s', error=%w", threadID, err)
		}
	}
	if runID != "" {
		explicitRun, err = validation.ParseUUID(runID)
		if err != nil {
			return nil, fmt.Errorf("context resolution failed: run_id_malformed=true, run_id='%s', error=%w", runID, err)
		}
	}

	shard := r.shardFor(userID)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	state, ok := shard.users[userID]
	if !ok {
		state = &userState{
			pinnedThreads: make(map[string]uuid.UUID),
			currentRuns:   make(map[uuid.UUID]uuid.UUID),
		}
		shard.users[userID] = state
	}

	/* Resolve thread: explicit id wins, then the pinned thread, then a
	 * fresh one */
	thread := explicitThread
	if thread == uuid.Nil {
		if pinned, ok := state.pinnedThreads[connectionID]; ok {
			thread = pinned
		} else {
			thread = uuid.New()
		}
	}
	state.pinnedThreads[connectionID] = thread

	/* Resolve run within the thread */
	run := explicitRun
	if run == uuid.Nil {
		if current, ok := state.currentRuns[thread]; ok && !freshRun {
			run = current
		} else {
			run = uuid.New()
		}
	}
	state.currentRuns[thread] = run

	execCtx := &Context{
		UserID:       userID,
		ThreadID:     thread,
		RunID:        run,
		ConnectionID: connectionID,
		CreatedAt:    time.Now(),
	}

	if _, loaded := r.active.LoadOrStore(run, execCtx); !loaded {
		r.mu.Lock()
		r.count++
		metrics.SetActiveContexts(int(r.count))
		r.mu.Unlock()
	}

	metrics.DebugWithContext(execCtx.WithLogContext(ctx), "Execution context resolved", map[string]interface{}{
		"fresh_run":       freshRun,
		"explicit_thread": explicitThread != uuid.Nil,
	})

	return execCtx, nil
}

/* Lookup returns the live context for a run, if any */
func (r *Registry) Lookup(runID uuid.UUID) (*Context, bool) {
	value, ok := r.active.Load(runID)
	if !ok {
		return nil, false
	}
	return value.(*Context), true
}

/* ReleaseRun releases a completed run. The thread pin survives so the
 * next message in the conversation reuses the thread. */
func (r *Registry) ReleaseRun(runID uuid.UUID) {
	if _, loaded := r.active.LoadAndDelete(runID); loaded {
		r.mu.Lock()
		r.count--
		metrics.SetActiveContexts(int(r.count))
		r.mu.Unlock()
	}
}

/* ReleaseConnection drops the thread pinned to a closed connection.
 * Thread state for other connections of the same user is untouched. */
func (r *Registry) ReleaseConnection(userID, connectionID string) {
	if userID == "" {
		return
	}
	shard := r.shardFor(userID)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	state, ok := shard.users[userID]
	if !ok {
		return
	}

	thread, pinned := state.pinnedThreads[connectionID]
	delete(state.pinnedThreads, connectionID)

	/* Drop run state for the thread once no connection pins it */
	if pinned {
		stillPinned := false
		for _, other := range state.pinnedThreads {
			if other == thread {
				stillPinned = true
				break
			}
		}
		if !stillPinned {
			delete(state.currentRuns, thread)
		}
	}

	if len(state.pinnedThreads) == 0 && len(state.currentRuns) == 0 {
		delete(shard.users, userID)
	}
}

/* ActiveContexts returns the number of live execution contexts */
func (r *Registry) ActiveContexts() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int(r.count)
}
