package workflow

import "fmt"

// State represents a report status in the review lifecycle
type State string

const (
	StateCreated            State = "CREATED"
	StateAssigned           State = "ASSIGNED"
	StateInRevision         State = "IN_REVISION"
	StatePendingInformation State = "PENDING_INFORMATION"
	StateRejected           State = "REJECTED"
	StateReclaimed          State = "RECLAIMED"
	StateApproved           State = "APPROVED"
)

// allStates is ordered the way a report normally moves through review
var allStates = []State{
	StateCreated,
	StateAssigned,
	StateInRevision,
	StatePendingInformation,
	StateRejected,
	StateReclaimed,
	StateApproved,
}

var validStates = map[State]bool{
	StateCreated:            true,
	StateAssigned:           true,
	StateInRevision:         true,
	StatePendingInformation: true,
	StateRejected:           true,
	StateReclaimed:          true,
	StateApproved:           true,
}

// AllStates returns every known state
func AllStates() []State {
	return append([]State(nil), allStates...)
}

// ParseState converts a raw status string into a State
func ParseState(s string) (State, error) {
	state := State(s)
	if !state.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidState, s)
	}
	return state, nil
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a valid workflow state
func (s State) IsValid() bool {
	return validStates[s]
}
