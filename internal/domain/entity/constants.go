package entity

// Status constants for Report
const (
	StatusCreated            = "CREATED"
	StatusAssigned           = "ASSIGNED"
	StatusInRevision         = "IN_REVISION"
	StatusPendingInformation = "PENDING_INFORMATION"
	StatusRejected           = "REJECTED"
	StatusReclaimed          = "RECLAIMED"
	StatusApproved           = "APPROVED"
)

// Severity constants for Report
const (
	SeverityLeve     = "LEVE"
	SeverityModerada = "MODERADA"
	SeverityGrave    = "GRAVE"
	SeverityMortal   = "MORTAL"
)

// Report type constants (type A: dose-dependent, type B: idiosyncratic)
const (
	ReportTypeA = "A"
	ReportTypeB = "B"
)

// Alert priority constants
const (
	PriorityLow    = "LOW"
	PriorityMedium = "MEDIUM"
	PriorityHigh   = "HIGH"
	PriorityUrgent = "URGENT"
)

// IsValidSeverity reports whether s is a known severity
func IsValidSeverity(s string) bool {
	switch s {
	case SeverityLeve, SeverityModerada, SeverityGrave, SeverityMortal:
		return true
	}
	return false
}

// IsValidReportType reports whether t is a known report type
func IsValidReportType(t string) bool {
	return t == ReportTypeA || t == ReportTypeB
}

// PriorityForSeverity maps a report severity to an alert priority
func PriorityForSeverity(severity string) string {
	switch severity {
	case SeverityLeve:
		return PriorityLow
	case SeverityGrave:
		return PriorityHigh
	case SeverityMortal:
		return PriorityUrgent
	default:
		return PriorityMedium
	}
}
