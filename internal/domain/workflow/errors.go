package workflow

import "errors"

var (
	// ErrInvalidTransition is returned when the trigger is not permitted from the current state
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrInvalidState is returned when a machine is positioned at an unknown state
	ErrInvalidState = errors.New("invalid state")

	// ErrGuardFailed is returned when every guarded transition for a trigger refused
	ErrGuardFailed = errors.New("guard condition failed")
)
