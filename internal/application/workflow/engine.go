package workflow

import (
	"context"

	"github.com/medialert/reportflow/internal/domain/entity"
	domainwf "github.com/medialert/reportflow/internal/domain/workflow"
)

// Transition is the outcome of applying one action to a report
type Transition struct {
	Report         *entity.Report
	PreviousStatus domainwf.State
	NewStatus      domainwf.State
	Trigger        domainwf.Trigger
}

// Changed reports whether the status moved
func (t *Transition) Changed() bool {
	return t.PreviousStatus != t.NewStatus
}

// ReportEngine evaluates the review table against a report
type ReportEngine interface {
	// Apply fires trigger for caller against report. On success it returns a
	// modified copy; report itself is never mutated.
	Apply(ctx context.Context, report *entity.Report, trigger domainwf.Trigger, caller entity.Caller, payload domainwf.Payload) (*Transition, error)

	// PermittedActions lists the triggers role may fire from the report's status
	PermittedActions(report *entity.Report, role entity.Role) ([]domainwf.Trigger, error)
}
