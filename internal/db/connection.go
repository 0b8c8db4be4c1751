/*-------------------------------------------------------------------------
 *
 * connection.go
 *    Database connection management for NeuronSupervisor
 *
 * Provides PostgreSQL connection pooling with retry logic and scoped
 * session acquisition. Sessions are acquired per unit of work and
 * released deterministically on every exit path.
 *
 * Copyright (c) 2024-2026, neurondb, Inc. <support@neurondb.ai>
 *
 * IDENTIFICATION
 *    NeuronSupervisor/internal/db/connection.go
 *
 *-------------------------------------------------------------------------
 */

package db

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/neurondb/NeuronSupervisor/internal/config"
	"github.com/neurondb/NeuronSupervisor/internal/metrics"
)

/* DB manages PostgreSQL connections */
type DB struct {
	*sqlx.DB
}

/* ConnString builds a connection string from configuration */
func ConnString(cfg config.DatabaseConfig) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database)
}

/* NewDB creates a new database instance */
func NewDB(connStr string, cfg config.DatabaseConfig) (*DB, error) {
	return NewDBWithRetry(connStr, cfg, 3, 2*time.Second)
}

/* NewDBWithRetry creates a new database instance with retry logic */
func NewDBWithRetry(connStr string, cfg config.DatabaseConfig, maxRetries int, retryDelay time.Duration) (*DB, error) {
	var db *sqlx.DB
	var err error

	for attempt := 0; attempt < maxRetries; attempt++ {
		db, err = sqlx.Connect("postgres", connStr)
		if err == nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			pingErr := db.PingContext(ctx)
			cancel()
			if pingErr == nil {
				db.SetMaxOpenConns(cfg.MaxOpenConns)
				db.SetMaxIdleConns(cfg.MaxIdleConns)
				db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
				db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

				metrics.InfoWithContext(context.Background(), "Database connection established", map[string]interface{}{
					"attempt":  attempt + 1,
					"host":     cfg.Host,
					"database": cfg.Database,
				})

				return &DB{DB: db}, nil
			}
			db.Close()
			err = pingErr
		}

		if attempt < maxRetries-1 {
			/* Add jitter: ±25% variation to prevent thundering herd */
			delay := retryDelay
			jitter := float64(delay) * 0.25
			delay += time.Duration(jitter * (rand.Float64()*2 - 1))

			metrics.WarnWithContext(context.Background(), "Database connection failed, retrying", map[string]interface{}{
				"attempt":     attempt + 1,
				"max_retries": maxRetries,
				"error":       err.Error(),
			})

			time.Sleep(delay)
			retryDelay *= 2
		}
	}

	return nil, fmt.Errorf("database connection failed: max_retries=%d, error=%w", maxRetries, err)
}

/* WithSession acquires a dedicated connection for one unit of work and
 * guarantees release on every exit path. Sessions are never shared
 * across concurrent tasks. */
func (db *DB) WithSession(ctx context.Context, fn func(conn *sqlx.Conn) error) error {
	conn, err := db.Connx(ctx)
	if err != nil {
		return fmt.Errorf("session acquisition failed: error=%w", err)
	}
	defer conn.Close()

	return fn(conn)
}

/* HealthCheck verifies database connectivity */
func (db *DB) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database health check failed: error=%w", err)
	}
	return nil
}
