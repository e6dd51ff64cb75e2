package workflow

import (
	"context"

	"github.com/medialert/reportflow/internal/domain/entity"
)

// StateMachine represents a state machine that tracks current state and validates transitions
type StateMachine interface {
	// State returns the current state
	State() State

	// Fire attempts to execute the trigger, transitioning to the new state if allowed
	Fire(ctx context.Context, trigger Trigger, in Input) error

	// PermittedTriggersFor returns the triggers role may fire in the current state
	PermittedTriggersFor(role entity.Role) []Trigger
}
