/*-------------------------------------------------------------------------
 *
 * context.go
 *    Execution context identity bundle for NeuronSupervisor
 *
 * An ExecutionContext attributes every unit of work to exactly one
 * user, thread, run, and transport connection. All derived resources
 * (cache keys, log fields, event payloads) are tagged with the owning
 * user so cross-user leakage is structurally prevented.
 *
 * Copyright (c) 2024-2026, neurondb, Inc. <support@neurondb.ai>
 *
 * IDENTIFICATION
 *    NeuronSupervisor/internal/execution/context.go
 *
 *-------------------------------------------------------------------------
 */

package execution

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/neurondb/NeuronSupervisor/internal/metrics"
)

/* Context is the per-request identity bundle. Fields are set at
 * creation and never mutated afterwards. */
type Context struct {
	UserID       string
	ThreadID     uuid.UUID
	RunID        uuid.UUID
	ConnectionID string
	CreatedAt    time.Time
}

/* NewContext creates an execution context with freshly minted thread
 * and run identifiers */
func NewContext(userID, connectionID string) (*Context, error) {
	if userID == "" {
		return nil, fmt.Errorf("context creation failed: user_id_empty=true")
	}
	return &Context{
		UserID:       userID,
		ThreadID:     uuid.New(),
		RunID:        uuid.New(),
		ConnectionID: connectionID,
		CreatedAt:    time.Now(),
	}, nil
}

/* CacheKey derives a user-scoped cache key. The user ID is always part
 * of the key so equivalent lookups by different users never collide. */
func (c *Context) CacheKey(parts ...string) string {
	all := append([]string{c.UserID}, parts...)
	hash := sha256.Sum256([]byte(strings.Join(all, "\x00")))
	return hex.EncodeToString(hash[:])
}

/* WithLogContext attaches the context identity to a logging context */
func (c *Context) WithLogContext(ctx context.Context) context.Context {
	return metrics.WithLogContext(ctx, "", c.UserID, c.ThreadID.String(), c.RunID.String(), c.ConnectionID)
}

/* String returns a log-safe description of the context */
func (c *Context) String() string {
	return fmt.Sprintf("user=%s thread=%s run=%s conn=%s",
		metrics.TruncateUserID(c.UserID), c.ThreadID.String(), c.RunID.String(), c.ConnectionID)
}
