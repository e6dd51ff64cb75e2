// Package assignment picks a reviewer for a newly created report.
package assignment

import "github.com/medialert/reportflow/internal/domain/entity"

// Scope controls which professionals are considered for assignment
type Scope string

const (
	// ScopeGlobal considers every professional regardless of institution
	ScopeGlobal Scope = "global"

	// ScopeInstitution only considers professionals of the report's institution
	ScopeInstitution Scope = "institution"
)

// IsValid reports whether s is a known scope
func (s Scope) IsValid() bool {
	return s == ScopeGlobal || s == ScopeInstitution
}

// Pick returns the candidate with the strictly smallest workload.
//
// When the minimum is shared by more than one candidate, or there are no
// candidates at all, no reviewer is picked. Ties are never broken: a fresh
// deployment with several idle professionals leaves reports unassigned until
// a supervisor assigns one by hand.
func Pick(candidates []entity.ReviewerCandidate) (string, bool) {
	if len(candidates) == 0 {
		return "", false
	}

	minLoad := candidates[0].CurrentAssignedReportCount
	for _, c := range candidates[1:] {
		if c.CurrentAssignedReportCount < minLoad {
			minLoad = c.CurrentAssignedReportCount
		}
	}

	var chosen string
	matches := 0
	for _, c := range candidates {
		if c.CurrentAssignedReportCount == minLoad {
			chosen = c.UserID
			matches++
		}
	}

	if matches != 1 {
		return "", false
	}
	return chosen, true
}
