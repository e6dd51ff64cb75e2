package event

// Type identifies the type of domain event
type Type string

const (
	TypeReportCreated    Type = "report.created"
	TypeStatusChanged    Type = "report.status_changed"
	TypeReviewerAssigned Type = "report.reviewer_assigned"
)

// AllTypes returns every defined event type
func AllTypes() []Type {
	return []Type{TypeReportCreated, TypeStatusChanged, TypeReviewerAssigned}
}

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeReportCreated,
		TypeStatusChanged,
		TypeReviewerAssigned:
		return true
	default:
		return false
	}
}
