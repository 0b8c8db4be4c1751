/*-------------------------------------------------------------------------
 *
 * registry_test.go
 *    Execution context isolation and continuity tests
 *
 * Copyright (c) 2024-2026, neurondb, Inc. <support@neurondb.ai>
 *
 * IDENTIFICATION
 *    NeuronSupervisor/internal/execution/registry_test.go
 *
 *-------------------------------------------------------------------------
 */

package execution

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
)

/* TestRegistryConcurrentUserIsolation tests that concurrent resolution
 * for distinct users never crosses user boundaries */
func TestRegistryConcurrentUserIsolation(t *testing.T) {
	registry := NewRegistry()
	ctx := context.Background()

	const users = 8
	const runsPerUser = 25

	var wg sync.WaitGroup
	results := make([][]*Context, users)

	for u := 0; u < users; u++ {
		wg.Add(1)
		go func(u int) {
			defer wg.Done()
			userID := fmt.Sprintf("user-%d", u)
			connectionID := fmt.Sprintf("conn-%d", u)
			for i := 0; i < runsPerUser; i++ {
				execCtx, err := registry.GetOrCreate(ctx, userID, connectionID, "", "", true)
				if err != nil {
					t.Errorf("resolution failed for %s: %v", userID, err)
					return
				}
				results[u] = append(results[u], execCtx)
			}
		}(u)
	}
	wg.Wait()

	seenRuns := make(map[uuid.UUID]string)
	for u := 0; u < users; u++ {
		userID := fmt.Sprintf("user-%d", u)
		for _, execCtx := range results[u] {
			if execCtx.UserID != userID {
				t.Fatalf("context attributed to wrong user: want %s, got %s", userID, execCtx.UserID)
			}
			if owner, dup := seenRuns[execCtx.RunID]; dup {
				t.Fatalf("run id shared across users: %s and %s", owner, userID)
			}
			seenRuns[execCtx.RunID] = userID
		}
	}
}

/* TestRegistryCacheKeysNeverCollideAcrossUsers tests that equivalent
 * lookups by different users derive distinct cache keys */
func TestRegistryCacheKeysNeverCollideAcrossUsers(t *testing.T) {
	registry := NewRegistry()
	ctx := context.Background()

	alice, err := registry.GetOrCreate(ctx, "alice", "conn-a", "", "", true)
	if err != nil {
		t.Fatal(err)
	}
	bob, err := registry.GetOrCreate(ctx, "bob", "conn-b", "", "", true)
	if err != nil {
		t.Fatal(err)
	}

	if alice.CacheKey("schema", "orders") == bob.CacheKey("schema", "orders") {
		t.Fatal("cache keys collided across users")
	}
}

/* TestRegistrySessionContinuity tests that messages on the same
 * connection share the pinned thread */
func TestRegistrySessionContinuity(t *testing.T) {
	registry := NewRegistry()
	ctx := context.Background()

	first, err := registry.GetOrCreate(ctx, "alice", "conn-1", "", "", true)
	if err != nil {
		t.Fatal(err)
	}
	second, err := registry.GetOrCreate(ctx, "alice", "conn-1", "", "", false)
	if err != nil {
		t.Fatal(err)
	}

	if first.ThreadID != second.ThreadID {
		t.Fatalf("expected pinned thread reuse: %s vs %s", first.ThreadID, second.ThreadID)
	}
	if first.RunID != second.RunID {
		t.Fatal("expected follow-up message to join the current run")
	}

	/* A fresh run stays on the thread but mints a new run */
	third, err := registry.GetOrCreate(ctx, "alice", "conn-1", "", "", true)
	if err != nil {
		t.Fatal(err)
	}
	if third.ThreadID != first.ThreadID {
		t.Fatal("expected fresh run to stay on the pinned thread")
	}
	if third.RunID == first.RunID {
		t.Fatal("expected fresh run to mint a new run id")
	}
}

/* TestRegistryExplicitIdsHonored tests that explicit thread and run ids
 * from the payload win over pins */
func TestRegistryExplicitIdsHonored(t *testing.T) {
	registry := NewRegistry()
	ctx := context.Background()

	thread := uuid.New()
	run := uuid.New()

	execCtx, err := registry.GetOrCreate(ctx, "alice", "conn-1", thread.String(), run.String(), false)
	if err != nil {
		t.Fatal(err)
	}
	if execCtx.ThreadID != thread || execCtx.RunID != run {
		t.Fatalf("explicit ids not honored: %s/%s", execCtx.ThreadID, execCtx.RunID)
	}

	/* Malformed ids are rejected before any state changes */
	if _, err := registry.GetOrCreate(ctx, "alice", "conn-1", "not-a-uuid", "", false); err == nil {
		t.Fatal("expected malformed thread id rejection")
	}
	if _, err := registry.GetOrCreate(ctx, "alice", "conn-1", "", "also-not-a-uuid", false); err == nil {
		t.Fatal("expected malformed run id rejection")
	}
}

/* TestRegistryConnectionsDoNotShareThreads tests that two connections
 * of the same user pin independent threads */
func TestRegistryConnectionsDoNotShareThreads(t *testing.T) {
	registry := NewRegistry()
	ctx := context.Background()

	first, err := registry.GetOrCreate(ctx, "alice", "conn-1", "", "", true)
	if err != nil {
		t.Fatal(err)
	}
	second, err := registry.GetOrCreate(ctx, "alice", "conn-2", "", "", true)
	if err != nil {
		t.Fatal(err)
	}

	if first.ThreadID == second.ThreadID {
		t.Fatal("expected independent threads per connection")
	}
}

/* TestRegistryReleaseConnection tests that closing a connection unpins
 * its thread so a reconnect starts fresh */
func TestRegistryReleaseConnection(t *testing.T) {
	registry := NewRegistry()
	ctx := context.Background()

	before, err := registry.GetOrCreate(ctx, "alice", "conn-1", "", "", true)
	if err != nil {
		t.Fatal(err)
	}

	registry.ReleaseConnection("alice", "conn-1")

	after, err := registry.GetOrCreate(ctx, "alice", "conn-1", "", "", true)
	if err != nil {
		t.Fatal(err)
	}
	if before.ThreadID == after.ThreadID {
		t.Fatal("expected a fresh thread after the connection was released")
	}
}

/* TestRegistryActiveContextAccounting tests run registration and
 * release */
func TestRegistryActiveContextAccounting(t *testing.T) {
	registry := NewRegistry()
	ctx := context.Background()

	execCtx, err := registry.GetOrCreate(ctx, "alice", "conn-1", "", "", true)
	if err != nil {
		t.Fatal(err)
	}
	if registry.ActiveContexts() != 1 {
		t.Fatalf("expected 1 active context, got %d", registry.ActiveContexts())
	}

	if _, ok := registry.Lookup(execCtx.RunID); !ok {
		t.Fatal("expected lookup to find the live run")
	}

	registry.ReleaseRun(execCtx.RunID)
	if registry.ActiveContexts() != 0 {
		t.Fatalf("expected 0 active contexts after release, got %d", registry.ActiveContexts())
	}
	if _, ok := registry.Lookup(execCtx.RunID); ok {
		t.Fatal("expected released run to be gone")
	}
}

/* TestRegistryRejectsEmptyIdentity tests input validation */
func TestRegistryRejectsEmptyIdentity(t *testing.T) {
	registry := NewRegistry()
	ctx := context.Background()

	if _, err := registry.GetOrCreate(ctx, "", "conn-1", "", "", true); err == nil {
		t.Fatal("expected empty user id rejection")
	}
	if _, err := registry.GetOrCreate(ctx, "alice", "", "", "", true); err == nil {
		t.Fatal("expected empty connection id rejection")
	}
}
