/*-------------------------------------------------------------------------
 *
 * circuit_breaker_test.go
 *    Circuit breaker state machine tests
 *
 * Copyright (c) 2024-2026, neurondb, Inc. <support@neurondb.ai>
 *
 * IDENTIFICATION
 *    NeuronSupervisor/internal/reliability/circuit_breaker_test.go
 *
 *-------------------------------------------------------------------------
 */

package reliability

import (
	"context"
	"fmt"
	"testing"
	"time"
)

/* TestCircuitBreakerTripsAtThreshold tests that the breaker opens after
 * the configured number of consecutive failures */
func TestCircuitBreakerTripsAtThreshold(t *testing.T) {
	cb := NewCircuitBreaker("database", 3, 5*time.Second)

	for i := 0; i < 3; i++ {
		if cb.GetState() != StateClosed {
			t.Fatalf("expected closed before failure %d, got %s", i+1, cb.GetState())
		}
		if err := cb.Allow(); err != nil {
			t.Fatalf("expected call %d to be admitted: %v", i+1, err)
		}
		cb.RecordFailure()
	}

	if cb.GetState() != StateOpen {
		t.Fatalf("expected open after threshold, got %s", cb.GetState())
	}
}

/* TestCircuitBreakerFastFailWhileOpen tests that calls are rejected
 * without being attempted while the breaker is open */
func TestCircuitBreakerFastFailWhileOpen(t *testing.T) {
	cb := NewCircuitBreaker("llm", 1, time.Minute)
	cb.RecordFailure()

	if cb.GetState() != StateOpen {
		t.Fatalf("expected open, got %s", cb.GetState())
	}

	err := cb.Allow()
	if err == nil {
		t.Fatal("expected fast-fail rejection while open")
	}
	if !IsCircuitOpen(err) {
		t.Fatalf("expected typed circuit-open error, got %v", err)
	}
}

/* TestCircuitBreakerHalfOpenSingleTrial tests that exactly one trial
 * call is admitted after the recovery timeout */
func TestCircuitBreakerHalfOpenSingleTrial(t *testing.T) {
	cb := NewCircuitBreaker("database", 1, 10*time.Millisecond)
	cb.RecordFailure()

	time.Sleep(15 * time.Millisecond)

	if err := cb.Allow(); err != nil {
		t.Fatalf("expected trial call to be admitted: %v", err)
	}
	if cb.GetState() != StateHalfOpen {
		t.Fatalf("expected half_open during trial, got %s", cb.GetState())
	}

	/* A second caller must not be admitted while the trial is in flight */
	if err := cb.Allow(); err == nil {
		t.Fatal("expected second caller to fast-fail during trial")
	}
}

/* TestCircuitBreakerRecoversOnTrialSuccess tests half_open -> closed */
func TestCircuitBreakerRecoversOnTrialSuccess(t *testing.T) {
	cb := NewCircuitBreaker("database", 1, 10*time.Millisecond)
	cb.RecordFailure()

	time.Sleep(15 * time.Millisecond)

	if err := cb.Allow(); err != nil {
		t.Fatalf("expected trial call to be admitted: %v", err)
	}
	cb.RecordSuccess()

	if cb.GetState() != StateClosed {
		t.Fatalf("expected closed after successful trial, got %s", cb.GetState())
	}
	if err := cb.Allow(); err != nil {
		t.Fatalf("expected normal operation after recovery: %v", err)
	}
}

/* TestCircuitBreakerReopensOnTrialFailure tests half_open -> open */
func TestCircuitBreakerReopensOnTrialFailure(t *testing.T) {
	cb := NewCircuitBreaker("database", 1, 10*time.Millisecond)
	cb.RecordFailure()

	time.Sleep(15 * time.Millisecond)

	if err := cb.Allow(); err != nil {
		t.Fatalf("expected trial call to be admitted: %v", err)
	}
	cb.RecordFailure()

	if cb.GetState() != StateOpen {
		t.Fatalf("expected open after failed trial, got %s", cb.GetState())
	}
	if err := cb.Allow(); err == nil {
		t.Fatal("expected fast-fail immediately after failed trial")
	}
}

/* TestCircuitBreakerSuccessResetsFailureCount tests that a success in
 * the closed state clears accumulated failures */
func TestCircuitBreakerSuccessResetsFailureCount(t *testing.T) {
	cb := NewCircuitBreaker("database", 3, time.Minute)

	cb.RecordFailure()
	cb.RecordFailure()
	cb.RecordSuccess()
	cb.RecordFailure()
	cb.RecordFailure()

	if cb.GetState() != StateClosed {
		t.Fatalf("expected closed, got %s", cb.GetState())
	}

	status := cb.GetStatus()
	if status.FailureCount != 2 {
		t.Fatalf("expected failure count 2 after reset, got %d", status.FailureCount)
	}
}

/* TestCircuitBreakerExecute tests the combined execute path */
func TestCircuitBreakerExecute(t *testing.T) {
	ctx := context.Background()
	cb := NewCircuitBreaker("database", 2, time.Minute)

	for i := 0; i < 2; i++ {
		err := cb.Execute(ctx, func() error {
			return fmt.Errorf("connection refused")
		})
		if err == nil {
			t.Fatal("expected failure to propagate")
		}
	}

	err := cb.Execute(ctx, func() error {
		t.Fatal("operation must not run while breaker is open")
		return nil
	})
	if !IsCircuitOpen(err) {
		t.Fatalf("expected circuit-open rejection, got %v", err)
	}
}

/* TestCircuitBreakerManager tests breaker reuse by name */
func TestCircuitBreakerManager(t *testing.T) {
	manager := NewCircuitBreakerManager()

	first := manager.GetOrCreate("database", 3, time.Minute)
	second := manager.GetOrCreate("database", 3, time.Minute)
	if first != second {
		t.Fatal("expected the same breaker instance for one name")
	}

	other := manager.GetOrCreate("llm", 3, time.Minute)
	if other == first {
		t.Fatal("expected distinct breakers per name")
	}

	if len(manager.Statuses()) != 2 {
		t.Fatalf("expected 2 breaker statuses, got %d", len(manager.Statuses()))
	}
}
