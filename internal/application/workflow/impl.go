package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/medialert/reportflow/internal/domain/entity"
	domainwf "github.com/medialert/reportflow/internal/domain/workflow"
)

// engineImpl is the concrete implementation of ReportEngine
type engineImpl struct {
	builder domainwf.StateMachineBuilder
	now     func() time.Time
}

// EngineOption configures the report engine
type EngineOption func(*engineImpl)

// WithClock overrides the time source used for UpdatedAt
func WithClock(now func() time.Time) EngineOption {
	return func(e *engineImpl) {
		e.now = now
	}
}

// NewEngine creates a new report engine over the review table
func NewEngine(opts ...EngineOption) ReportEngine {
	e := &engineImpl{
		builder: NewReportBuilder(),
		now:     func() time.Time { return time.Now().UTC() },
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

func (e *engineImpl) machineFor(report *entity.Report) (domainwf.StateMachine, error) {
	if report == nil {
		return nil, fmt.Errorf("report cannot be nil")
	}
	current, err := domainwf.ParseState(report.Status)
	if err != nil {
		return nil, fmt.Errorf("report %d: %w", report.ID, err)
	}
	return e.builder.Build(current), nil
}

// Apply fires trigger and applies the edge's side effects to a copy of report
func (e *engineImpl) Apply(ctx context.Context, report *entity.Report, trigger domainwf.Trigger, caller entity.Caller, payload domainwf.Payload) (*Transition, error) {
	machine, err := e.machineFor(report)
	if err != nil {
		return nil, err
	}
	previous := machine.State()

	if !trigger.IsValid() {
		return nil, fmt.Errorf("%w: unknown action %q", domainwf.ErrInvalidTransition, trigger)
	}

	in := domainwf.Input{Caller: caller, Report: report, Payload: payload}
	if err := machine.Fire(ctx, trigger, in); err != nil {
		return nil, err
	}

	next := report.Clone()
	applySideEffects(next, trigger, payload)
	next.Status = machine.State().String()
	next.UpdatedAt = e.now()
	if next.UpdatedAt.Before(next.CreatedAt) {
		next.UpdatedAt = next.CreatedAt
	}

	return &Transition{
		Report:         next,
		PreviousStatus: previous,
		NewStatus:      machine.State(),
		Trigger:        trigger,
	}, nil
}

// PermittedActions lists the triggers role may fire from the report's status
func (e *engineImpl) PermittedActions(report *entity.Report, role entity.Role) ([]domainwf.Trigger, error) {
	machine, err := e.machineFor(report)
	if err != nil {
		return nil, err
	}
	return machine.PermittedTriggersFor(role), nil
}

func applySideEffects(r *entity.Report, trigger domainwf.Trigger, payload domainwf.Payload) {
	switch trigger {
	case domainwf.TriggerAutoAssign, domainwf.TriggerAssignReviewer:
		r.ReviewerID = entity.StringPtr(payload.ReviewerID)
	case domainwf.TriggerRequestAdditionalInfo:
		r.ChatOpen = true
	case domainwf.TriggerProvideAdditionalInfo:
		r.AdditionalInfo = entity.StringPtr(strings.TrimSpace(payload.Info))
	case domainwf.TriggerStartReclamation:
		r.ReclamationReason = entity.StringPtr(strings.TrimSpace(payload.Reason))
	case domainwf.TriggerRevertStatus:
		r.RevertionReason = entity.StringPtr(strings.TrimSpace(payload.Reason))
	}
}
