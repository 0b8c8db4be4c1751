/*-------------------------------------------------------------------------
 *
 * circuit_breaker.go
 *    Circuit breaker pattern for resilience
 *
 * Provides circuit breakers for sub-agent calls, database queries, and
 * WebSocket delivery with automatic recovery probing.
 *
 * Copyright (c) 2024-2026, neurondb, Inc. <support@neurondb.ai>
 *
 * IDENTIFICATION
 *    NeuronSupervisor/internal/reliability/circuit_breaker.go
 *
 *-------------------------------------------------------------------------
 */

package reliability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/neurondb/NeuronSupervisor/internal/metrics"
)

/* CircuitState represents circuit breaker state */
type CircuitState string

const (
	StateClosed   CircuitState = "closed"    /* Normal operation */
	StateOpen     CircuitState = "open"      /* Failing, reject requests */
	StateHalfOpen CircuitState = "half_open" /* Testing if service recovered */
)

/* ErrCircuitOpen is returned when a call is rejected without being
 * attempted because the breaker is open */
type ErrCircuitOpen struct {
	Name string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open: service=%s", e.Name)
}

/* IsCircuitOpen reports whether an error is a fast-fail rejection */
func IsCircuitOpen(err error) bool {
	_, ok := err.(*ErrCircuitOpen)
	return ok
}

/* CircuitBreaker implements the circuit breaker pattern */
type CircuitBreaker struct {
	name          string
	maxFailures   int
	resetTimeout  time.Duration
	state         CircuitState
	failureCount  int
	lastFailure   time.Time
	trialInFlight bool
	mu            sync.Mutex
	onStateChange func(name string, from, to CircuitState)
}

/* Status is an observability snapshot of a breaker */
type Status struct {
	Name         string       `json:"name"`
	State        CircuitState `json:"state"`
	FailureCount int          `json:"failure_count"`
	LastFailure  time.Time    `json:"last_failure,omitempty"`
}

/* NewCircuitBreaker creates a new circuit breaker */
func NewCircuitBreaker(name string, maxFailures int, resetTimeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		name:         name,
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
		state:        StateClosed,
	}
}

/* Allow reports whether a call may proceed. In the half-open state only
 * a single trial call is admitted; other callers fail fast until the
 * trial settles. */
func (cb *CircuitBreaker) Allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return nil
	case StateOpen:
		if time.Since(cb.lastFailure) >= cb.resetTimeout {
			cb.transition(StateOpen, StateHalfOpen)
			cb.trialInFlight = true
			return nil
		}
		return &ErrCircuitOpen{Name: cb.name}
	case StateHalfOpen:
		if cb.trialInFlight {
			return &ErrCircuitOpen{Name: cb.name}
		}
		cb.trialInFlight = true
		return nil
	}
	return nil
}

/* RecordSuccess records a successful call */
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateHalfOpen {
		cb.transition(StateHalfOpen, StateClosed)
	}
	cb.trialInFlight = false
	cb.failureCount = 0
}

/* RecordFailure records a failed call */
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failureCount++
	cb.lastFailure = time.Now()
	cb.trialInFlight = false

	if cb.state == StateHalfOpen {
		/* Failed trial, back to open */
		cb.transition(StateHalfOpen, StateOpen)
		return
	}

	if cb.state == StateClosed && cb.failureCount >= cb.maxFailures {
		cb.transition(StateClosed, StateOpen)
	}
}

/* Execute executes a function with circuit breaker protection */
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func() error) error {
	if err := cb.Allow(); err != nil {
		return err
	}

	err := fn()
	if err != nil {
		cb.RecordFailure()
		return err
	}

	cb.RecordSuccess()
	return nil
}

/* transition applies a state change while cb.mu is held */
func (cb *CircuitBreaker) transition(from, to CircuitState) {
	cb.state = to
	if to != StateOpen {
		cb.failureCount = 0
	}

	metrics.RecordCircuitBreakerState(cb.name, stateGaugeValue(to))
	if cb.onStateChange != nil {
		cb.onStateChange(cb.name, from, to)
	}

	metrics.InfoWithContext(context.Background(), "Circuit breaker state changed", map[string]interface{}{
		"circuit": cb.name,
		"from":    string(from),
		"to":      string(to),
	})
}

/* stateGaugeValue maps a state to its gauge encoding */
func stateGaugeValue(state CircuitState) int {
	switch state {
	case StateClosed:
		return 0
	case StateHalfOpen:
		return 1
	case StateOpen:
		return 2
	}
	return 0
}

/* GetState returns current circuit breaker state */
func (cb *CircuitBreaker) GetState() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

/* GetStatus returns an observability snapshot */
func (cb *CircuitBreaker) GetStatus() Status {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return Status{
		Name:         cb.name,
		State:        cb.state,
		FailureCount: cb.failureCount,
		LastFailure:  cb.lastFailure,
	}
}

/* SetStateChangeCallback sets callback for state changes */
func (cb *CircuitBreaker) SetStateChangeCallback(callback func(name string, from, to CircuitState)) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.onStateChange = callback
}

/* CircuitBreakerManager manages multiple circuit breakers keyed by
 * logical resource name */
type CircuitBreakerManager struct {
	breakers map[string]*CircuitBreaker
	mu       sync.RWMutex
}

/* NewCircuitBreakerManager creates a new circuit breaker manager */
func NewCircuitBreakerManager() *CircuitBreakerManager {
	return &CircuitBreakerManager{
		breakers: make(map[string]*CircuitBreaker),
	}
}

/* GetOrCreate gets or creates a circuit breaker */
func (cbm *CircuitBreakerManager) GetOrCreate(name string, maxFailures int, resetTimeout time.Duration) *CircuitBreaker {
	cbm.mu.Lock()
	defer cbm.mu.Unlock()

	if breaker, exists := cbm.breakers[name]; exists {
		return breaker
	}

	breaker := NewCircuitBreaker(name, maxFailures, resetTimeout)
	cbm.breakers[name] = breaker
	return breaker
}

/* Get gets a circuit breaker */
func (cbm *CircuitBreakerManager) Get(name string) (*CircuitBreaker, bool) {
	cbm.mu.RLock()
	defer cbm.mu.RUnlock()

	breaker, exists := cbm.breakers[name]
	return breaker, exists
}

/* Statuses returns snapshots of all managed breakers */
func (cbm *CircuitBreakerManager) Statuses() []Status {
	cbm.mu.RLock()
	defer cbm.mu.RUnlock()

	statuses := make([]Status, 0, len(cbm.breakers))
	for _, breaker := range cbm.breakers {
		statuses = append(statuses, breaker.GetStatus())
	}
	return statuses
}
