package workflow

import (
	"context"

	"github.com/medialert/reportflow/internal/domain/entity"
)

// Payload carries action-specific arguments
type Payload struct {
	ReviewerID   string
	ReviewerRole entity.Role
	Info         string
	Reason       string
	TargetStatus State
}

// Input is everything a guard may inspect when a trigger fires
type Input struct {
	Caller  entity.Caller
	Report  *entity.Report
	Payload Payload
}

// GuardFunc evaluates whether a transition is allowed. A nil error passes.
type GuardFunc func(ctx context.Context, in Input) error

// DestinationFunc picks the target state of a dynamic transition
type DestinationFunc func(ctx context.Context, in Input) (State, error)
