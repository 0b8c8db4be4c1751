/*-------------------------------------------------------------------------
 *
 * executor.go
 *    Combined circuit breaker and retry execution
 *
 * Wraps calls to flaky dependencies (database, cache, downstream LLM)
 * with bounded retries inside a per-resource circuit breaker. Expected
 * failures come back as a tagged result instead of an error so callers
 * can branch without exception-driven control flow.
 *
 * Copyright (c) 2024-2026, neurondb, Inc. <support@neurondb.ai>
 *
 * IDENTIFICATION
 *    NeuronSupervisor/internal/reliability/executor.go
 *
 *-------------------------------------------------------------------------
 */

package reliability

import (
	"context"
	"time"

	"github.com/neurondb/NeuronSupervisor/internal/config"
	"github.com/neurondb/NeuronSupervisor/internal/metrics"
)

/* OperationResult carries the outcome of a guarded operation */
type OperationResult struct {
	Success  bool
	Result   interface{}
	Err      error
	Attempts int
	Duration time.Duration
}

/* Retries returns the attempts beyond the first. An open breaker
 * rejects the operation before any attempt runs, so the count clamps
 * at zero. */
func (r OperationResult) Retries() int {
	if r.Attempts <= 1 {
		return 0
	}
	return r.Attempts - 1
}

/* Executor guards operations with a circuit breaker and bounded retry */
type Executor struct {
	breakers *CircuitBreakerManager
	cfg      config.ReliabilityConfig
	timeout  time.Duration
}

/* NewExecutor creates a reliability executor from the unified config */
func NewExecutor(cfg config.ReliabilityConfig, timeout time.Duration) *Executor {
	return &Executor{
		breakers: NewCircuitBreakerManager(),
		cfg:      cfg,
		timeout:  timeout,
	}
}

/* retryConfig builds the retry policy from the unified config */
func (e *Executor) retryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  e.cfg.MaxRetries,
		InitialDelay: e.cfg.BaseDelay,
		MaxDelay:     e.cfg.MaxDelay,
		Multiplier:   e.cfg.Multiplier,
		IsRetryable:  IsRetryableError,
	}
}

/* ExecuteWithReliability runs an operation under the breaker named by
 * the logical resource, retrying transient failures with backoff. Each
 * attempt's failure counts toward the breaker; success resets it. A
 * timed-out attempt is a failure for breaker purposes. */
func (e *Executor) ExecuteWithReliability(ctx context.Context, name string, op func(ctx context.Context) (interface{}, error)) OperationResult {
	breaker := e.breakers.GetOrCreate(name, e.cfg.FailureThreshold, e.cfg.RecoveryTimeout)
	started := time.Now()
	attempts := 0

	result, err := RetryWithResult(ctx, e.retryConfig(), func() (interface{}, error) {
		if allowErr := breaker.Allow(); allowErr != nil {
			return nil, allowErr
		}
		attempts++

		attemptCtx := ctx
		var cancel context.CancelFunc
		if e.timeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, e.timeout)
			defer cancel()
		}

		value, opErr := op(attemptCtx)
		if opErr == nil && attemptCtx.Err() != nil {
			opErr = attemptCtx.Err()
		}
		if opErr != nil {
			breaker.RecordFailure()
			return nil, opErr
		}

		breaker.RecordSuccess()
		return value, nil
	})

	duration := time.Since(started)

	if err != nil {
		metrics.WarnWithContext(ctx, "Guarded operation failed", map[string]interface{}{
			"operation": name,
			"attempts":  attempts,
			"error":     err.Error(),
		})
		return OperationResult{Success: false, Err: err, Attempts: attempts, Duration: duration}
	}

	return OperationResult{Success: true, Result: result, Attempts: attempts, Duration: duration}
}

/* BreakerStatus returns the snapshot for one breaker, if it exists */
func (e *Executor) BreakerStatus(name string) (Status, bool) {
	breaker, ok := e.breakers.Get(name)
	if !ok {
		return Status{}, false
	}
	return breaker.GetStatus(), true
}

/* Statuses returns snapshots of every breaker the executor manages */
func (e *Executor) Statuses() []Status {
	return e.breakers.Statuses()
}
