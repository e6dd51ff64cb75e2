package workflow

import "errors"

var (
	// ErrInvalidTransition is returned when a state transition is not allowed
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrInvalidState is returned when a state is not valid
	ErrInvalidState = errors.New("invalid state")

	// ErrGuardFailed is returned when a guard condition fails
	ErrGuardFailed = errors.New("guard condition failed")

	// ErrActorMismatch is joined with ErrGuardFailed when the caller does not
	// own the record the way the edge requires (reviewer or patient)
	ErrActorMismatch = errors.New("caller does not match record owner")
)
