/*-------------------------------------------------------------------------
 *
 * retry.go
 *    Retry logic with exponential backoff
 *
 * Provides retry mechanisms for transient failures with exponential
 * backoff, jitter, and configurable retry policies.
 *
 * Copyright (c) 2024-2026, neurondb, Inc. <support@neurondb.ai>
 *
 * IDENTIFICATION
 *    NeuronSupervisor/internal/reliability/retry.go
 *
 *-------------------------------------------------------------------------
 */

package reliability

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"
)

/* RetryConfig defines retry configuration */
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	IsRetryable  func(error) bool
}

/* DefaultRetryConfig returns default retry configuration */
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
		IsRetryable:  IsRetryableError,
	}
}

/* IsRetryableError checks if an error is retryable */
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	/* A fast-fail rejection must not be retried against the same
	 * breaker in a tight loop */
	if IsCircuitOpen(err) {
		return false
	}

	errStr := strings.ToLower(err.Error())

	retryablePatterns := []string{
		"timeout",
		"connection",
		"temporary",
		"network",
		"unavailable",
		"503",
		"502",
		"504",
		"429", /* Rate limit - might be retryable */
	}

	for _, pattern := range retryablePatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}

/* backoffDelay advances a delay by the multiplier with ±25% jitter,
 * capped at maxDelay */
func backoffDelay(delay, maxDelay time.Duration, multiplier float64) time.Duration {
	next := time.Duration(float64(delay) * multiplier)
	if next > maxDelay {
		next = maxDelay
	}
	jitter := float64(next) * 0.25
	next += time.Duration(jitter * (rand.Float64()*2 - 1))
	if next < 0 {
		next = 0
	}
	return next
}

/* Retry executes a function with retry logic */
func Retry(ctx context.Context, config RetryConfig, fn func() error) error {
	_, err := RetryWithResult(ctx, config, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

/* RetryWithResult executes a function with retry logic and returns result */
func RetryWithResult[T any](ctx context.Context, config RetryConfig, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error
	delay := config.InitialDelay

	isRetryable := config.IsRetryable
	if isRetryable == nil {
		isRetryable = IsRetryableError
	}

	for attempt := 0; attempt < config.MaxAttempts; attempt++ {
		/* Check context cancellation */
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}

		lastErr = err

		if !isRetryable(err) {
			return zero, err /* Not retryable, return immediately */
		}

		/* Don't sleep after last attempt */
		if attempt < config.MaxAttempts-1 {
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(delay):
				delay = backoffDelay(delay, config.MaxDelay, config.Multiplier)
			}
		}
	}

	return zero, fmt.Errorf("operation failed after %d attempts: %w", config.MaxAttempts, lastErr)
}
