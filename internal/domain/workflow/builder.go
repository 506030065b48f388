package workflow

import (
	"context"
	"fmt"
)

// GuardFunc decides at fire time whether a transition may happen
type GuardFunc func(ctx context.Context) bool

// StateMachineBuilder collects transitions and stamps out machines
type StateMachineBuilder interface {
	// Configure returns the configuration for transitions leaving state
	Configure(state State) StateConfiguration

	// Build creates a machine positioned at initialState
	Build(initialState State) (StateMachine, error)
}

// StateConfiguration configures the transitions leaving one state
type StateConfiguration interface {
	// Permit allows trigger to move the machine to toState
	Permit(trigger Trigger, toState State) StateConfiguration

	// PermitIf allows trigger to move the machine to toState when guard passes
	PermitIf(trigger Trigger, toState State, guard GuardFunc) StateConfiguration
}

type transition struct {
	toState State
	guard   GuardFunc
}

type transitionTable map[State]map[Trigger][]transition

type stateConfig struct {
	from  State
	table transitionTable
}

type stateMachineBuilder struct {
	table transitionTable
}

// NewBuilder creates an empty builder
func NewBuilder() StateMachineBuilder {
	return &stateMachineBuilder{table: make(transitionTable)}
}

// Configure panics on an unknown state; configuration is programmer input
func (b *stateMachineBuilder) Configure(state State) StateConfiguration {
	if !state.IsValid() {
		panic(fmt.Sprintf("invalid state: %s", state))
	}
	if _, ok := b.table[state]; !ok {
		b.table[state] = make(map[Trigger][]transition)
	}
	return &stateConfig{from: state, table: b.table}
}

// Build copies the transition table so later Configure calls do not leak
// into machines that were already built.
func (b *stateMachineBuilder) Build(initialState State) (StateMachine, error) {
	if !initialState.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidState, initialState)
	}

	table := make(transitionTable, len(b.table))
	for from, triggers := range b.table {
		copied := make(map[Trigger][]transition, len(triggers))
		for trigger, ts := range triggers {
			copied[trigger] = append([]transition(nil), ts...)
		}
		table[from] = copied
	}

	return &stateMachine{current: initialState, table: table}, nil
}

func (c *stateConfig) Permit(trigger Trigger, toState State) StateConfiguration {
	return c.PermitIf(trigger, toState, nil)
}

func (c *stateConfig) PermitIf(trigger Trigger, toState State, guard GuardFunc) StateConfiguration {
	if !toState.IsValid() {
		panic(fmt.Sprintf("invalid target state: %s", toState))
	}
	if c.from.IsTerminal() {
		panic(fmt.Sprintf("terminal state %s cannot have transitions", c.from))
	}

	c.table[c.from][trigger] = append(c.table[c.from][trigger], transition{
		toState: toState,
		guard:   guard,
	})
	return c
}
