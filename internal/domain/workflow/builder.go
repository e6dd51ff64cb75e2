package workflow

import (
	"context"
	"fmt"
	"sort"

	"github.com/medialert/reportflow/internal/domain/entity"
)

// StateMachineBuilder builds a configured state machine
type StateMachineBuilder interface {
	// Configure returns a state configuration for the given state
	Configure(state State) StateConfiguration

	// Build creates a new state machine instance with the given initial state
	Build(initialState State) StateMachine
}

// StateConfiguration configures transitions for a specific state.
// Roles restrict who may fire the edge; an edge with no roles is open to every role.
type StateConfiguration interface {
	// Permit allows a trigger to transition to the target state
	Permit(trigger Trigger, toState State, roles ...entity.Role) StateConfiguration

	// PermitIf allows a trigger to transition to the target state if the guard condition passes
	PermitIf(trigger Trigger, toState State, guard GuardFunc, roles ...entity.Role) StateConfiguration

	// PermitDynamic allows a trigger whose target state is chosen when it fires
	PermitDynamic(trigger Trigger, selector DestinationFunc, roles ...entity.Role) StateConfiguration
}

// transition represents a state transition with optional guard
type transition struct {
	toState  State
	selector DestinationFunc
	guard    GuardFunc
	roles    map[entity.Role]bool
}

func (t transition) allows(role entity.Role) bool {
	return len(t.roles) == 0 || t.roles[role]
}

// stateConfig implements StateConfiguration
type stateConfig struct {
	builder     *stateMachineBuilder
	fromState   State
	transitions map[Trigger][]transition
}

// stateMachineBuilder implements StateMachineBuilder
type stateMachineBuilder struct {
	configurations map[State]*stateConfig
}

// stateMachine implements StateMachine
type stateMachine struct {
	currentState   State
	configurations map[State]*stateConfig
}

// NewBuilder creates a new state machine builder
func NewBuilder() StateMachineBuilder {
	return &stateMachineBuilder{
		configurations: make(map[State]*stateConfig),
	}
}

// Configure returns a state configuration for the given state
func (b *stateMachineBuilder) Configure(state State) StateConfiguration {
	if !state.IsValid() {
		panic(fmt.Sprintf("invalid state: %s", state))
	}

	config, exists := b.configurations[state]
	if !exists {
		config = &stateConfig{
			builder:     b,
			fromState:   state,
			transitions: make(map[Trigger][]transition),
		}
		b.configurations[state] = config
	}

	return config
}

// Build creates a new state machine instance with the given initial state
func (b *stateMachineBuilder) Build(initialState State) StateMachine {
	if !initialState.IsValid() {
		panic(fmt.Sprintf("invalid initial state: %s", initialState))
	}

	// Deep copy configurations so machines stay independent of later Configure calls
	configsCopy := make(map[State]*stateConfig)
	for state, config := range b.configurations {
		transitionsCopy := make(map[Trigger][]transition)
		for trigger, transitions := range config.transitions {
			transitionsCopy[trigger] = append([]transition{}, transitions...)
		}
		configsCopy[state] = &stateConfig{
			fromState:   state,
			transitions: transitionsCopy,
		}
	}

	return &stateMachine{
		currentState:   initialState,
		configurations: configsCopy,
	}
}

// Permit allows a trigger to transition to the target state
func (c *stateConfig) Permit(trigger Trigger, toState State, roles ...entity.Role) StateConfiguration {
	return c.PermitIf(trigger, toState, nil, roles...)
}

// PermitIf allows a trigger to transition to the target state if the guard condition passes
func (c *stateConfig) PermitIf(trigger Trigger, toState State, guard GuardFunc, roles ...entity.Role) StateConfiguration {
	if !toState.IsValid() {
		panic(fmt.Sprintf("invalid target state: %s", toState))
	}

	c.transitions[trigger] = append(c.transitions[trigger], transition{
		toState: toState,
		guard:   guard,
		roles:   roleSet(roles),
	})

	return c
}

// PermitDynamic allows a trigger whose target state is resolved by selector at fire time
func (c *stateConfig) PermitDynamic(trigger Trigger, selector DestinationFunc, roles ...entity.Role) StateConfiguration {
	if selector == nil {
		panic(fmt.Sprintf("nil destination selector for trigger %s", trigger))
	}

	c.transitions[trigger] = append(c.transitions[trigger], transition{
		selector: selector,
		roles:    roleSet(roles),
	})

	return c
}

func roleSet(roles []entity.Role) map[entity.Role]bool {
	if len(roles) == 0 {
		return nil
	}
	set := make(map[entity.Role]bool, len(roles))
	for _, r := range roles {
		set[r] = true
	}
	return set
}

// State returns the current state
func (m *stateMachine) State() State {
	return m.currentState
}

// Fire attempts to execute the trigger, transitioning to the new state if allowed.
// The state is left unchanged on any error.
func (m *stateMachine) Fire(ctx context.Context, trigger Trigger, in Input) error {
	config, exists := m.configurations[m.currentState]
	if !exists {
		return fmt.Errorf("%w: cannot fire trigger %s from state %s (no configuration)", ErrInvalidTransition, trigger, m.currentState)
	}

	transitions, exists := config.transitions[trigger]
	if !exists || len(transitions) == 0 {
		return fmt.Errorf("%w: cannot fire trigger %s from state %s", ErrInvalidTransition, trigger, m.currentState)
	}

	roleAllowed := false
	var guardErr error

	// Try each transition in order until one succeeds
	for _, t := range transitions {
		if !t.allows(in.Caller.Role) {
			continue
		}
		roleAllowed = true

		if t.guard != nil {
			if err := t.guard(ctx, in); err != nil {
				if guardErr == nil {
					guardErr = err
				}
				continue
			}
		}

		next := t.toState
		if t.selector != nil {
			selected, err := t.selector(ctx, in)
			if err != nil {
				return fmt.Errorf("trigger %s from state %s: %w", trigger, m.currentState, err)
			}
			if !selected.IsValid() {
				return fmt.Errorf("%w: trigger %s selected %q", ErrInvalidState, trigger, selected)
			}
			next = selected
		}

		m.currentState = next
		return nil
	}

	if !roleAllowed {
		return fmt.Errorf("%w: role %s cannot fire trigger %s from state %s", ErrInvalidTransition, in.Caller.Role, trigger, m.currentState)
	}

	// All guards failed
	return fmt.Errorf("trigger %s from state %s: %w", trigger, m.currentState, guardErr)
}

// PermittedTriggersFor returns the triggers role may fire in the current state,
// sorted by name. Guards are not evaluated.
func (m *stateMachine) PermittedTriggersFor(role entity.Role) []Trigger {
	triggers := make([]Trigger, 0)
	config, exists := m.configurations[m.currentState]
	if !exists {
		return triggers
	}

	for trigger, transitions := range config.transitions {
		for _, t := range transitions {
			if t.allows(role) {
				triggers = append(triggers, trigger)
				break
			}
		}
	}

	sort.Slice(triggers, func(i, j int) bool { return triggers[i] < triggers[j] })
	return triggers
}
