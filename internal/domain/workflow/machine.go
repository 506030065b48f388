package workflow

import (
	"context"
	"fmt"
)

// StateMachine tracks one entity's state and validates transitions
type StateMachine interface {
	// State returns the current state
	State() State

	// CanFire returns true if trigger has at least one transition from the current state.
	// Guards are not evaluated.
	CanFire(trigger Trigger) bool

	// Fire moves to the first transition whose guard passes
	Fire(ctx context.Context, trigger Trigger) error

	// PermittedTriggers lists triggers configured for the current state
	PermittedTriggers() []Trigger
}

type stateMachine struct {
	current State
	table   transitionTable
}

func (m *stateMachine) State() State {
	return m.current
}

func (m *stateMachine) CanFire(trigger Trigger) bool {
	return len(m.table[m.current][trigger]) > 0
}

func (m *stateMachine) Fire(ctx context.Context, trigger Trigger) error {
	transitions := m.table[m.current][trigger]
	if len(transitions) == 0 {
		return fmt.Errorf("%w: cannot %s from %s", ErrInvalidTransition, trigger, m.current)
	}

	for _, t := range transitions {
		if t.guard == nil || t.guard(ctx) {
			m.current = t.toState
			return nil
		}
	}

	return fmt.Errorf("%w: %s from %s", ErrGuardFailed, trigger, m.current)
}

func (m *stateMachine) PermittedTriggers() []Trigger {
	triggers := make([]Trigger, 0, len(m.table[m.current]))
	for trigger := range m.table[m.current] {
		triggers = append(triggers, trigger)
	}
	return triggers
}
