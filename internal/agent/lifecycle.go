/*-------------------------------------------------------------------------
 *
 * lifecycle.go
 *    Sub-agent lifecycle state machine
 *
 * Enforces the valid state transitions for a sub-agent instance. Any
 * transition outside the table is rejected with an explicit error and
 * leaves the state untouched; state corruption in a long-lived agent
 * instance is worse than a loud failure.
 *
 * Copyright (c) 2024-2026, neurondb, Inc. <support@neurondb.ai>
 *
 * IDENTIFICATION
 *    NeuronSupervisor/internal/agent/lifecycle.go
 *
 *-------------------------------------------------------------------------
 */

package agent

import (
	"fmt"
	"sync"
)

/* State represents sub-agent lifecycle state */
type State string

const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateShutdown  State = "shutdown" /* Terminal */
)

/* validTransitions is the authoritative transition table */
var validTransitions = map[State][]State{
	StatePending:   {StateRunning, StateFailed, StateShutdown},
	StateRunning:   {StateCompleted, StateFailed, StateShutdown},
	StateCompleted: {StateShutdown},
	StateFailed:    {StatePending, StateShutdown}, /* FAILED -> PENDING permits retry */
	StateShutdown:  {},
}

/* ErrInvalidTransition reports a rejected lifecycle transition */
type ErrInvalidTransition struct {
	AgentName string
	From      State
	To        State
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("invalid lifecycle transition: agent='%s', from='%s', to='%s'",
		e.AgentName, e.From, e.To)
}

/* Lifecycle tracks the state of one sub-agent instance */
type Lifecycle struct {
	agentName string
	state     State
	mu        sync.Mutex
}

/* NewLifecycle creates a lifecycle in the PENDING state */
func NewLifecycle(agentName string) *Lifecycle {
	return &Lifecycle{
		agentName: agentName,
		state:     StatePending,
	}
}

/* State returns the current state */
func (l *Lifecycle) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

/* TransitionTo applies a state transition, rejecting any transition not
 * in the table */
func (l *Lifecycle) TransitionTo(to State) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	allowed, ok := validTransitions[l.state]
	if !ok {
		return &ErrInvalidTransition{AgentName: l.agentName, From: l.state, To: to}
	}

	for _, candidate := range allowed {
		if candidate == to {
			l.state = to
			return nil
		}
	}

	return &ErrInvalidTransition{AgentName: l.agentName, From: l.state, To: to}
}

/* IsTerminal reports whether the lifecycle has reached SHUTDOWN */
func (l *Lifecycle) IsTerminal() bool {
	return l.State() == StateShutdown
}
