package workflow

import "errors"

var (
	// ErrInvalidTransition is returned when a trigger is not permitted from a state
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrInvalidState is returned when a state is not valid
	ErrInvalidState = errors.New("invalid state")

	// ErrGuardFailed is returned when every guarded transition for a trigger is rejected
	ErrGuardFailed = errors.New("guard condition failed")
)
