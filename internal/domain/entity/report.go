package entity

import "time"

// Report is one adverse-effect submission moving through the review workflow
type Report struct {
	ID                  int64      `json:"id"`
	PatientID           string     `json:"patient_id"`
	MedicationID        string     `json:"medication_id"`
	InstitutionID       string     `json:"institution_id"`
	Description         string     `json:"description"`
	StartDate           time.Time  `json:"start_date"`
	EndDate             *time.Time `json:"end_date,omitempty"`
	Severity            string     `json:"severity"`
	Type                string     `json:"type"`
	AdministrationRoute string     `json:"administration_route"`
	Dosage              string     `json:"dosage"`
	Frequency           string     `json:"frequency"`
	Status              string     `json:"status"`
	ReviewerID          *string    `json:"reviewer_id,omitempty"`
	AdditionalInfo      *string    `json:"additional_info,omitempty"`
	ReclamationReason   *string    `json:"reclamation_reason,omitempty"`
	RevertionReason     *string    `json:"revertion_reason,omitempty"`
	ChatOpen            bool       `json:"chat_open"`
	Version             int64      `json:"version"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// Clone returns a deep copy so callers can mutate a candidate without touching the original
func (r *Report) Clone() *Report {
	if r == nil {
		return nil
	}
	c := *r
	c.EndDate = cloneTime(r.EndDate)
	c.ReviewerID = cloneString(r.ReviewerID)
	c.AdditionalInfo = cloneString(r.AdditionalInfo)
	c.ReclamationReason = cloneString(r.ReclamationReason)
	c.RevertionReason = cloneString(r.RevertionReason)
	return &c
}

// HasReviewer reports whether a reviewer has ever been assigned
func (r *Report) HasReviewer() bool {
	return r.ReviewerID != nil && *r.ReviewerID != ""
}

// ReviewerIs reports whether userID is the assigned reviewer
func (r *Report) ReviewerIs(userID string) bool {
	return r.HasReviewer() && *r.ReviewerID == userID
}

// ReviewerCandidate is a workload snapshot row used by the assignment policy.
// It is never persisted.
type ReviewerCandidate struct {
	UserID                     string `json:"user_id"`
	InstitutionID              string `json:"institution_id"`
	CurrentAssignedReportCount int    `json:"current_assigned_report_count"`
}

// ReportHistory is the audit trail of a report
type ReportHistory struct {
	ID             int64     `json:"id"`
	ReportID       int64     `json:"report_id"`
	ActorID        string    `json:"actor_id"`
	ActorRole      Role      `json:"actor_role"`
	Action         string    `json:"action"`
	PreviousStatus string    `json:"previous_status"`
	NewStatus      string    `json:"new_status"`
	Note           string    `json:"note,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// StringPtr returns a pointer to s
func StringPtr(s string) *string {
	return &s
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
