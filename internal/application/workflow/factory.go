package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/medialert/reportflow/internal/domain/entity"
	domainwf "github.com/medialert/reportflow/internal/domain/workflow"
)

// NewReportBuilder returns a builder configured with the report review table.
// Machines are cut from it per report with Build(currentState).
func NewReportBuilder() domainwf.StateMachineBuilder {
	builder := domainwf.NewBuilder()

	// CREATED state transitions
	builder.Configure(domainwf.StateCreated).
		PermitIf(domainwf.TriggerAutoAssign, domainwf.StateAssigned, reviewerChosen, entity.RoleSystem)

	// ASSIGNED state transitions
	builder.Configure(domainwf.StateAssigned).
		PermitIf(domainwf.TriggerAssignReviewer, domainwf.StateAssigned, reviewerIsProfessional, entity.RoleSupervisor).
		PermitIf(domainwf.TriggerStartReview, domainwf.StateInRevision, callerIsReviewer, entity.RoleProfessional)

	// IN_REVISION state transitions
	builder.Configure(domainwf.StateInRevision).
		PermitIf(domainwf.TriggerRequestAdditionalInfo, domainwf.StatePendingInformation, callerIsReviewer, entity.RoleProfessional).
		PermitIf(domainwf.TriggerApproveReport, domainwf.StateApproved, callerIsReviewer, entity.RoleProfessional).
		PermitIf(domainwf.TriggerRejectReport, domainwf.StateRejected, callerIsReviewer, entity.RoleProfessional)

	// PENDING_INFORMATION state transitions
	builder.Configure(domainwf.StatePendingInformation).
		PermitIf(domainwf.TriggerProvideAdditionalInfo, domainwf.StateInRevision,
			all(callerIsPatient, required("info", func(p domainwf.Payload) string { return p.Info })),
			entity.RolePatient)

	// REJECTED state transitions
	builder.Configure(domainwf.StateRejected).
		PermitIf(domainwf.TriggerStartReclamation, domainwf.StateReclaimed,
			all(callerIsPatient, required("reason", func(p domainwf.Payload) string { return p.Reason })),
			entity.RolePatient)

	// RECLAIMED state transitions
	builder.Configure(domainwf.StateReclaimed).
		Permit(domainwf.TriggerApproveReclamation, domainwf.StateApproved, entity.RoleSupervisor).
		Permit(domainwf.TriggerRejectReclamation, domainwf.StateRejected, entity.RoleSupervisor)

	// APPROVED state transitions
	builder.Configure(domainwf.StateApproved).
		PermitIf(domainwf.TriggerRevertStatus, domainwf.StateInRevision,
			required("reason", func(p domainwf.Payload) string { return p.Reason }),
			entity.RoleSupervisor)

	// update_status overrides the table from every state
	for _, state := range domainwf.AllStates() {
		builder.Configure(state).
			PermitDynamic(domainwf.TriggerUpdateStatus, targetStatus, entity.RoleSupervisor, entity.RoleAdmin)
	}

	return builder
}

// FieldError is a guard failure caused by a missing or bad payload field
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is match ErrGuardFailed
func (e *FieldError) Unwrap() error {
	return domainwf.ErrGuardFailed
}

func actorMismatch(msg string) error {
	return fmt.Errorf("%w: %w: %s", domainwf.ErrGuardFailed, domainwf.ErrActorMismatch, msg)
}

func all(guards ...domainwf.GuardFunc) domainwf.GuardFunc {
	return func(ctx context.Context, in domainwf.Input) error {
		for _, g := range guards {
			if err := g(ctx, in); err != nil {
				return err
			}
		}
		return nil
	}
}

func required(field string, get func(domainwf.Payload) string) domainwf.GuardFunc {
	return func(ctx context.Context, in domainwf.Input) error {
		if strings.TrimSpace(get(in.Payload)) == "" {
			return &FieldError{Field: field, Message: "must not be empty"}
		}
		return nil
	}
}

func callerIsReviewer(ctx context.Context, in domainwf.Input) error {
	if in.Report == nil || !in.Report.ReviewerIs(in.Caller.ID) {
		return actorMismatch("caller is not the assigned reviewer")
	}
	return nil
}

func callerIsPatient(ctx context.Context, in domainwf.Input) error {
	if in.Report == nil || in.Report.PatientID != in.Caller.ID {
		return actorMismatch("caller is not the reporting patient")
	}
	return nil
}

func reviewerChosen(ctx context.Context, in domainwf.Input) error {
	if in.Payload.ReviewerID == "" {
		return &FieldError{Field: "reviewer_id", Message: "no reviewer selected"}
	}
	return nil
}

func reviewerIsProfessional(ctx context.Context, in domainwf.Input) error {
	if err := reviewerChosen(ctx, in); err != nil {
		return err
	}
	if in.Payload.ReviewerRole != entity.RoleProfessional {
		return &FieldError{Field: "reviewer_id", Message: "reviewer must be a PROFESSIONAL"}
	}
	return nil
}

func targetStatus(ctx context.Context, in domainwf.Input) (domainwf.State, error) {
	if !in.Payload.TargetStatus.IsValid() {
		return "", &FieldError{Field: "target_status", Message: fmt.Sprintf("unknown status %q", in.Payload.TargetStatus)}
	}
	return in.Payload.TargetStatus, nil
}
