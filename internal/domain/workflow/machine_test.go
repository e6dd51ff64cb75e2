package workflow

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/medialert/reportflow/internal/domain/entity"
)

func supervisorInput() Input {
	return Input{Caller: entity.Caller{ID: "sup-1", Role: entity.RoleSupervisor}}
}

func TestState_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		state    State
		expected bool
	}{
		{"valid state", StateCreated, true},
		{"valid state", StatePendingInformation, true},
		{"lowercase is not valid", State("created"), false},
		{"invalid state", State("INVALID"), false},
		{"empty state", State(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.IsValid(); got != tt.expected {
				t.Errorf("State.IsValid() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestAllStates(t *testing.T) {
	states := AllStates()
	if len(states) != 7 {
		t.Fatalf("AllStates() returned %d states, want 7", len(states))
	}
	for _, s := range states {
		if !s.IsValid() {
			t.Errorf("AllStates() contains invalid state %q", s)
		}
	}

	// The returned slice is a copy
	states[0] = State("MUTATED")
	if AllStates()[0] != StateCreated {
		t.Error("AllStates() should return a copy")
	}
}

func TestParseState(t *testing.T) {
	s, err := ParseState("RECLAIMED")
	if err != nil || s != StateReclaimed {
		t.Errorf("ParseState(RECLAIMED) = %v, %v", s, err)
	}

	if _, err := ParseState("CLOSED"); !errors.Is(err, ErrInvalidState) {
		t.Errorf("ParseState(CLOSED) error = %v, want %v", err, ErrInvalidState)
	}
}

func TestTrigger_IsValid(t *testing.T) {
	if !TriggerApproveReport.IsValid() {
		t.Error("approve_report should be valid")
	}
	if Trigger("delete_report").IsValid() {
		t.Error("delete_report should not be valid")
	}
	if got := TriggerStartReview.String(); got != "start_review" {
		t.Errorf("Trigger.String() = %v, want %v", got, "start_review")
	}
}

func TestBuilder_Configure(t *testing.T) {
	builder := NewBuilder()

	config := builder.Configure(StateCreated)
	if config == nil {
		t.Fatal("Configure() returned nil")
	}

	// Configure same state again should return same config
	config2 := builder.Configure(StateCreated)
	if config != config2 {
		t.Error("Configure() should return same config for same state")
	}
}

func TestBuilder_ConfigurePanicsOnInvalidState(t *testing.T) {
	builder := NewBuilder()

	defer func() {
		if r := recover(); r == nil {
			t.Error("Configure() should panic on invalid state")
		}
	}()

	builder.Configure(State("INVALID"))
}

func TestBuilder_BuildPanicsOnInvalidInitialState(t *testing.T) {
	builder := NewBuilder()

	defer func() {
		if r := recover(); r == nil {
			t.Error("Build() should panic on invalid initial state")
		}
	}()

	builder.Build(State("INVALID"))
}

func TestStateConfiguration_Permit(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StateReclaimed).
		Permit(TriggerApproveReclamation, StateApproved, entity.RoleSupervisor)

	machine := builder.Build(StateReclaimed)

	if got := machine.PermittedTriggersFor(entity.RoleSupervisor); len(got) != 1 || got[0] != TriggerApproveReclamation {
		t.Errorf("PermittedTriggersFor(SUPERVISOR) = %v, want [%s]", got, TriggerApproveReclamation)
	}

	if err := machine.Fire(context.Background(), TriggerApproveReclamation, supervisorInput()); err != nil {
		t.Errorf("Fire() failed: %v", err)
	}

	if machine.State() != StateApproved {
		t.Errorf("State after Fire() = %v, want %v", machine.State(), StateApproved)
	}
}

func TestStateConfiguration_Permit_RoleNotAllowed(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StateReclaimed).
		Permit(TriggerApproveReclamation, StateApproved, entity.RoleSupervisor)

	machine := builder.Build(StateReclaimed)

	in := Input{Caller: entity.Caller{ID: "pat-1", Role: entity.RolePatient}}
	err := machine.Fire(context.Background(), TriggerApproveReclamation, in)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("Fire() error = %v, want %v", err, ErrInvalidTransition)
	}

	if machine.State() != StateReclaimed {
		t.Errorf("State should remain %v after failed Fire(), got %v", StateReclaimed, machine.State())
	}

	if got := machine.PermittedTriggersFor(entity.RolePatient); len(got) != 0 {
		t.Errorf("PermittedTriggersFor(PATIENT) = %v, want none", got)
	}
	if got := machine.PermittedTriggersFor(entity.RoleSupervisor); len(got) != 1 || got[0] != TriggerApproveReclamation {
		t.Errorf("PermittedTriggersFor(SUPERVISOR) = %v, want [%s]", got, TriggerApproveReclamation)
	}
}

func TestStateConfiguration_Permit_NoRolesIsOpen(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StateCreated).Permit(TriggerAutoAssign, StateAssigned)

	machine := builder.Build(StateCreated)
	in := Input{Caller: entity.Caller{ID: "pat-1", Role: entity.RolePatient}}
	if err := machine.Fire(context.Background(), TriggerAutoAssign, in); err != nil {
		t.Fatalf("Fire() failed: %v", err)
	}
}

func TestStateConfiguration_PermitIf_GuardPasses(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StateApproved).
		PermitIf(TriggerRevertStatus, StateInRevision, func(ctx context.Context, in Input) error {
			return nil
		}, entity.RoleSupervisor)

	machine := builder.Build(StateApproved)

	if err := machine.Fire(context.Background(), TriggerRevertStatus, supervisorInput()); err != nil {
		t.Errorf("Fire() failed: %v", err)
	}

	if machine.State() != StateInRevision {
		t.Errorf("State after Fire() = %v, want %v", machine.State(), StateInRevision)
	}
}

func TestStateConfiguration_PermitIf_GuardFails(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StateApproved).
		PermitIf(TriggerRevertStatus, StateInRevision, func(ctx context.Context, in Input) error {
			return fmt.Errorf("%w: reason is empty", ErrGuardFailed)
		}, entity.RoleSupervisor)

	machine := builder.Build(StateApproved)

	err := machine.Fire(context.Background(), TriggerRevertStatus, supervisorInput())
	if err == nil {
		t.Fatal("Fire() should fail when guard fails")
	}

	if !errors.Is(err, ErrGuardFailed) {
		t.Errorf("Fire() error = %v, want %v", err, ErrGuardFailed)
	}

	if machine.State() != StateApproved {
		t.Errorf("State should remain %v after failed Fire(), got %v", StateApproved, machine.State())
	}
}

func TestStateConfiguration_PermitIf_MultipleTransitions(t *testing.T) {
	type ctxKey string
	builder := NewBuilder()
	builder.Configure(StateInRevision).
		PermitIf(TriggerRejectReport, StateRejected, func(ctx context.Context, in Input) error {
			if ctx.Value(ctxKey("first")).(bool) {
				return nil
			}
			return ErrGuardFailed
		}).
		PermitIf(TriggerRejectReport, StateReclaimed, func(ctx context.Context, in Input) error {
			return nil
		})

	machine1 := builder.Build(StateInRevision)
	ctx1 := context.WithValue(context.Background(), ctxKey("first"), true)
	if err := machine1.Fire(ctx1, TriggerRejectReport, supervisorInput()); err != nil {
		t.Errorf("Fire() failed: %v", err)
	}
	if machine1.State() != StateRejected {
		t.Errorf("State after Fire() = %v, want %v", machine1.State(), StateRejected)
	}

	// First guard fails, second passes
	machine2 := builder.Build(StateInRevision)
	ctx2 := context.WithValue(context.Background(), ctxKey("first"), false)
	if err := machine2.Fire(ctx2, TriggerRejectReport, supervisorInput()); err != nil {
		t.Errorf("Fire() failed: %v", err)
	}
	if machine2.State() != StateReclaimed {
		t.Errorf("State after Fire() = %v, want %v", machine2.State(), StateReclaimed)
	}
}

func TestStateConfiguration_PermitDynamic(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StateCreated).
		PermitDynamic(TriggerUpdateStatus, func(ctx context.Context, in Input) (State, error) {
			return in.Payload.TargetStatus, nil
		}, entity.RoleSupervisor)

	machine := builder.Build(StateCreated)
	in := supervisorInput()
	in.Payload.TargetStatus = StateApproved

	if err := machine.Fire(context.Background(), TriggerUpdateStatus, in); err != nil {
		t.Fatalf("Fire() failed: %v", err)
	}
	if machine.State() != StateApproved {
		t.Errorf("State after Fire() = %v, want %v", machine.State(), StateApproved)
	}
}

func TestStateConfiguration_PermitDynamic_InvalidSelection(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StateCreated).
		PermitDynamic(TriggerUpdateStatus, func(ctx context.Context, in Input) (State, error) {
			return in.Payload.TargetStatus, nil
		})

	machine := builder.Build(StateCreated)
	in := supervisorInput()
	in.Payload.TargetStatus = State("ARCHIVED")

	err := machine.Fire(context.Background(), TriggerUpdateStatus, in)
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("Fire() error = %v, want %v", err, ErrInvalidState)
	}
	if machine.State() != StateCreated {
		t.Errorf("State should remain %v, got %v", StateCreated, machine.State())
	}
}

func TestStateConfiguration_PermitPanicsOnInvalidState(t *testing.T) {
	builder := NewBuilder()

	defer func() {
		if r := recover(); r == nil {
			t.Error("Permit() should panic on invalid target state")
		}
	}()

	builder.Configure(StateCreated).Permit(TriggerAutoAssign, State("INVALID"))
}

func TestStateMachine_Fire_InvalidTransition(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StateAssigned).
		Permit(TriggerStartReview, StateInRevision)

	machine := builder.Build(StateAssigned)

	err := machine.Fire(context.Background(), TriggerApproveReport, supervisorInput())
	if err == nil {
		t.Fatal("Fire() should fail for invalid transition")
	}

	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Fire() error = %v, want %v", err, ErrInvalidTransition)
	}

	if machine.State() != StateAssigned {
		t.Errorf("State should remain %v after failed Fire(), got %v", StateAssigned, machine.State())
	}
}

func TestStateMachine_Fire_NoConfiguration(t *testing.T) {
	builder := NewBuilder()
	machine := builder.Build(StateCreated)

	err := machine.Fire(context.Background(), TriggerAutoAssign, supervisorInput())
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Fire() error = %v, want %v", err, ErrInvalidTransition)
	}
}

func TestStateMachine_PermittedTriggers(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StateInRevision).
		Permit(TriggerApproveReport, StateApproved, entity.RoleProfessional).
		Permit(TriggerRejectReport, StateRejected, entity.RoleProfessional).
		Permit(TriggerUpdateStatus, StateCreated, entity.RoleSupervisor)

	machine := builder.Build(StateInRevision)

	forProfessional := machine.PermittedTriggersFor(entity.RoleProfessional)
	if len(forProfessional) != 2 {
		t.Fatalf("PermittedTriggersFor(PROFESSIONAL) = %v, want 2 triggers", forProfessional)
	}
	if forProfessional[0] != TriggerApproveReport || forProfessional[1] != TriggerRejectReport {
		t.Errorf("PermittedTriggersFor(PROFESSIONAL) = %v", forProfessional)
	}

	if got := machine.PermittedTriggersFor(entity.RolePatient); len(got) != 0 {
		t.Errorf("PermittedTriggersFor(PATIENT) = %v, want none", got)
	}

	forSupervisor := machine.PermittedTriggersFor(entity.RoleSupervisor)
	if len(forSupervisor) != 1 || forSupervisor[0] != TriggerUpdateStatus {
		t.Errorf("PermittedTriggersFor(SUPERVISOR) = %v", forSupervisor)
	}
}

func TestStateMachine_PermittedTriggers_NoConfiguration(t *testing.T) {
	builder := NewBuilder()
	machine := builder.Build(StateCreated)

	if triggers := machine.PermittedTriggersFor(entity.RoleAdmin); len(triggers) != 0 {
		t.Errorf("PermittedTriggersFor() returned %d triggers, want 0", len(triggers))
	}
}

func TestStateMachine_Immutability(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StateAssigned).
		Permit(TriggerStartReview, StateInRevision)

	machine1 := builder.Build(StateAssigned)
	machine2 := builder.Build(StateAssigned)

	if err := machine1.Fire(context.Background(), TriggerStartReview, supervisorInput()); err != nil {
		t.Errorf("Fire() failed: %v", err)
	}

	if machine2.State() != StateAssigned {
		t.Errorf("machine2 state = %v, want %v (machines should be independent)", machine2.State(), StateAssigned)
	}

	// Configuring after Build does not leak into built machines
	builder.Configure(StateAssigned).Permit(TriggerApproveReport, StateApproved)
	if got := machine2.PermittedTriggersFor(entity.RoleSupervisor); len(got) != 1 {
		t.Error("machine2 should not see transitions configured after Build()")
	}
}
