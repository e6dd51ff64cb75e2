// Package access resolves which reports a caller may see and act on.
package access

import "github.com/medialert/reportflow/internal/domain/entity"

// Scope is the visible-record predicate in a form a store can push down into a query.
// Empty fields do not constrain.
type Scope struct {
	All           bool
	InstitutionID string
	ReviewerID    string
	PatientID     string
}

// ScopeFor returns the visibility scope of caller. The second result is false
// for roles that see nothing.
func ScopeFor(caller entity.Caller) (Scope, bool) {
	switch caller.Role {
	case entity.RoleAdmin, entity.RoleSystem:
		return Scope{All: true}, true
	case entity.RoleSupervisor:
		return Scope{InstitutionID: caller.InstitutionID}, caller.InstitutionID != ""
	case entity.RoleProfessional:
		return Scope{InstitutionID: caller.InstitutionID, ReviewerID: caller.ID}, caller.InstitutionID != "" && caller.ID != ""
	case entity.RolePatient:
		return Scope{InstitutionID: caller.InstitutionID, PatientID: caller.ID}, caller.InstitutionID != "" && caller.ID != ""
	default:
		return Scope{}, false
	}
}

// Matches evaluates the scope against a single report
func (s Scope) Matches(r *entity.Report) bool {
	if r == nil {
		return false
	}
	if s.All {
		return true
	}
	if s.InstitutionID != "" && r.InstitutionID != s.InstitutionID {
		return false
	}
	if s.ReviewerID != "" && !r.ReviewerIs(s.ReviewerID) {
		return false
	}
	if s.PatientID != "" && r.PatientID != s.PatientID {
		return false
	}
	return true
}

// CanView reports whether caller may see report
func CanView(caller entity.Caller, report *entity.Report) bool {
	scope, ok := ScopeFor(caller)
	if !ok {
		return false
	}
	return scope.Matches(report)
}
