package workflow

// Trigger represents a workflow action that can cause a state transition
type Trigger string

const (
	TriggerAutoAssign            Trigger = "auto_assign"
	TriggerAssignReviewer        Trigger = "assign_reviewer"
	TriggerStartReview           Trigger = "start_review"
	TriggerRequestAdditionalInfo Trigger = "request_additional_info"
	TriggerApproveReport         Trigger = "approve_report"
	TriggerRejectReport          Trigger = "reject_report"
	TriggerProvideAdditionalInfo Trigger = "provide_additional_info"
	TriggerStartReclamation      Trigger = "start_reclamation"
	TriggerApproveReclamation    Trigger = "approve_reclamation"
	TriggerRejectReclamation     Trigger = "reject_reclamation"
	TriggerRevertStatus          Trigger = "revert_status"
	TriggerUpdateStatus          Trigger = "update_status"
)

var validTriggers = map[Trigger]bool{
	TriggerAutoAssign:            true,
	TriggerAssignReviewer:        true,
	TriggerStartReview:           true,
	TriggerRequestAdditionalInfo: true,
	TriggerApproveReport:         true,
	TriggerRejectReport:          true,
	TriggerProvideAdditionalInfo: true,
	TriggerStartReclamation:      true,
	TriggerApproveReclamation:    true,
	TriggerRejectReclamation:     true,
	TriggerRevertStatus:          true,
	TriggerUpdateStatus:          true,
}

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}

// IsValid returns true if the trigger names a known action
func (t Trigger) IsValid() bool {
	return validTriggers[t]
}
