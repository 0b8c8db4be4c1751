/*-------------------------------------------------------------------------
 *
 * retry_test.go
 *    Retry and backoff tests
 *
 * Copyright (c) 2024-2026, neurondb, Inc. <support@neurondb.ai>
 *
 * IDENTIFICATION
 *    NeuronSupervisor/internal/reliability/retry_test.go
 *
 *-------------------------------------------------------------------------
 */

package reliability

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func fastRetryConfig(maxAttempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:  maxAttempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
		IsRetryable:  IsRetryableError,
	}
}

/* TestRetryRecoversFromTransientFailure tests that an operation failing
 * twice with a transient error succeeds on the third attempt */
func TestRetryRecoversFromTransientFailure(t *testing.T) {
	attempts := 0

	value, err := RetryWithResult(context.Background(), fastRetryConfig(3), func() (string, error) {
		attempts++
		if attempts < 3 {
			return "", fmt.Errorf("connection reset by peer")
		}
		return "recovered", nil
	})
	if err != nil {
		t.Fatalf("expected recovery, got %v", err)
	}
	if value != "recovered" {
		t.Fatalf("expected recovered value, got %q", value)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

/* TestRetryStopsOnNonRetryableError tests that a permanent error is
 * returned immediately without further attempts */
func TestRetryStopsOnNonRetryableError(t *testing.T) {
	attempts := 0

	err := Retry(context.Background(), fastRetryConfig(5), func() error {
		attempts++
		return fmt.Errorf("syntax error at or near SELECT")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if attempts != 1 {
		t.Fatalf("expected 1 attempt for a permanent error, got %d", attempts)
	}
}

/* TestRetryDoesNotRetryCircuitOpen tests that a fast-fail rejection is
 * never retried against the same breaker */
func TestRetryDoesNotRetryCircuitOpen(t *testing.T) {
	attempts := 0

	err := Retry(context.Background(), fastRetryConfig(5), func() error {
		attempts++
		return &ErrCircuitOpen{Name: "database"}
	})
	if !IsCircuitOpen(err) {
		t.Fatalf("expected circuit-open error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected 1 attempt for circuit-open, got %d", attempts)
	}
}

/* TestRetryExhaustsAttempts tests that the attempt budget is respected
 * and the final error wraps the last failure */
func TestRetryExhaustsAttempts(t *testing.T) {
	attempts := 0
	cause := fmt.Errorf("network unreachable")

	err := Retry(context.Background(), fastRetryConfig(3), func() error {
		attempts++
		return cause
	})
	if err == nil {
		t.Fatal("expected exhaustion error")
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected final error to wrap the last failure, got %v", err)
	}
}

/* TestRetryRespectsContextCancellation tests that cancellation stops
 * the retry loop */
func TestRetryRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0

	err := Retry(ctx, fastRetryConfig(10), func() error {
		attempts++
		cancel()
		return fmt.Errorf("timeout waiting for response")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected retry loop to stop after cancellation, got %d attempts", attempts)
	}
}

/* TestIsRetryableError tests error classification */
func TestIsRetryableError(t *testing.T) {
	cases := []struct {
		err       error
		retryable bool
	}{
		{nil, false},
		{fmt.Errorf("dial tcp: connection refused"), true},
		{fmt.Errorf("request timeout exceeded"), true},
		{fmt.Errorf("service unavailable (503)"), true},
		{fmt.Errorf("temporary DNS failure"), true},
		{fmt.Errorf("permission denied"), false},
		{&ErrCircuitOpen{Name: "llm"}, false},
	}

	for _, tc := range cases {
		if got := IsRetryableError(tc.err); got != tc.retryable {
			t.Errorf("IsRetryableError(%v) = %v, want %v", tc.err, got, tc.retryable)
		}
	}
}

/* TestBackoffDelayBounds tests that backoff stays within the cap plus
 * jitter margin and never goes negative */
func TestBackoffDelayBounds(t *testing.T) {
	maxDelay := 100 * time.Millisecond
	delay := 10 * time.Millisecond

	for i := 0; i < 20; i++ {
		delay = backoffDelay(delay, maxDelay, 2.0)
		if delay < 0 {
			t.Fatal("backoff delay went negative")
		}
		/* Cap plus 25% jitter headroom */
		if delay > maxDelay+maxDelay/4 {
			t.Fatalf("backoff delay %s exceeded cap with jitter", delay)
		}
	}
}
