/*-------------------------------------------------------------------------
 *
 * queries.go
 *    Database queries for NeuronSupervisor
 *
 * Provides the persistent-store boundary: run audit records, thread
 * bookkeeping, schema introspection, and bounded analytical queries.
 *
 * Copyright (c) 2024-2026, neurondb, Inc. <support@neurondb.ai>
 *
 * IDENTIFICATION
 *    NeuronSupervisor/internal/db/queries.go
 *
 *-------------------------------------------------------------------------
 */

package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/neurondb/NeuronSupervisor/internal/agent"
	"github.com/neurondb/NeuronSupervisor/internal/execution"
)

/* Run audit queries */
const (
	insertRunQuery = `
		INSERT INTO neurondb_supervisor.agent_runs
		(run_id, thread_id, user_id, connection_id, agent_name, success, execution_time_ms, error_message, metrics)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::jsonb)`

	upsertThreadQuery = `
		INSERT INTO neurondb_supervisor.threads (thread_id, user_id, last_activity_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (thread_id) DO UPDATE SET last_activity_at = NOW()`

	introspectSchemaQuery = `
		SELECT column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_name = $1
		ORDER BY ordinal_position`
)

/* Queries provides database query functions */
type Queries struct {
	DB *DB
}

/* NewQueries creates a new query provider */
func NewQueries(db *DB) *Queries {
	return &Queries{DB: db}
}

/* RecordRun persists a completed run for auditing. The session is
 * scoped to this call and released on every exit path. */
func (q *Queries) RecordRun(ctx context.Context, execCtx *execution.Context, result *agent.Result) error {
	metricsJSON, err := json.Marshal(result.Metrics)
	if err != nil {
		return fmt.Errorf("run record failed: json_marshal_error=true, error=%w", err)
	}

	return q.DB.WithSession(ctx, func(conn *sqlx.Conn) error {
		if _, err := conn.ExecContext(ctx, upsertThreadQuery, execCtx.ThreadID, execCtx.UserID); err != nil {
			return fmt.Errorf("run record failed: thread_upsert_error=true, thread_id='%s', error=%w",
				execCtx.ThreadID.String(), err)
		}

		var errorMessage *string
		if !result.Success {
			errorMessage = &result.ErrorMessage
		}

		if _, err := conn.ExecContext(ctx, insertRunQuery,
			execCtx.RunID, execCtx.ThreadID, execCtx.UserID, execCtx.ConnectionID,
			result.AgentName, result.Success, result.ExecutionTimeMs, errorMessage, metricsJSON,
		); err != nil {
			return fmt.Errorf("run record failed: run_id='%s', error=%w", execCtx.RunID.String(), err)
		}

		return nil
	})
}

/* IntrospectSchema loads column metadata for a table */
func (q *Queries) IntrospectSchema(ctx context.Context, tableName string) (*agent.TableSchema, error) {
	if tableName == "" {
		return nil, fmt.Errorf("schema introspection failed: table_name_empty=true")
	}

	schema := &agent.TableSchema{Table: tableName}

	err := q.DB.WithSession(ctx, func(conn *sqlx.Conn) error {
		rows, err := conn.QueryxContext(ctx, introspectSchemaQuery, tableName)
		if err != nil {
			return fmt.Errorf("schema introspection failed: table='%s', error=%w", tableName, err)
		}
		defer rows.Close()

		for rows.Next() {
			var name, dataType, nullable string
			if err := rows.Scan(&name, &dataType, &nullable); err != nil {
				return fmt.Errorf("schema introspection failed: table='%s', scan_error=%w", tableName, err)
			}
			schema.Columns = append(schema.Columns, agent.Column{
				Name:     name,
				DataType: dataType,
				Nullable: nullable == "YES",
			})
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	if len(schema.Columns) == 0 {
		return nil, fmt.Errorf("schema introspection failed: table='%s', table_not_found=true", tableName)
	}

	return schema, nil
}

/* RunQuery executes a bounded analytical query and returns generic
 * rows. Query text comes from the agent layer, never from clients. */
func (q *Queries) RunQuery(ctx context.Context, query string, args map[string]interface{}) ([]map[string]interface{}, error) {
	if query == "" {
		return nil, fmt.Errorf("query execution failed: query_empty=true")
	}

	var results []map[string]interface{}

	err := q.DB.WithSession(ctx, func(conn *sqlx.Conn) error {
		rows, err := conn.QueryxContext(ctx, query)
		if err != nil {
			return fmt.Errorf("query execution failed: error=%w", err)
		}
		defer rows.Close()

		for rows.Next() {
			row := make(map[string]interface{})
			if err := rows.MapScan(row); err != nil {
				return fmt.Errorf("query execution failed: scan_error=%w", err)
			}
			results = append(results, row)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	return results, nil
}
