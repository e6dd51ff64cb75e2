package entity

import "time"

// Role is the caller role supplied by the identity provider
type Role string

const (
	RolePatient      Role = "PATIENT"
	RoleProfessional Role = "PROFESSIONAL"
	RoleSupervisor   Role = "SUPERVISOR"
	RoleAdmin        Role = "ADMIN"

	// RoleSystem is used for actions the engine performs on its own (auto-assignment)
	RoleSystem Role = "SYSTEM"
)

// IsValid reports whether r is one of the roles a user can hold
func (r Role) IsValid() bool {
	switch r {
	case RolePatient, RoleProfessional, RoleSupervisor, RoleAdmin:
		return true
	default:
		return false
	}
}

// String returns the string representation of the role
func (r Role) String() string {
	return string(r)
}

// Caller identifies who is invoking an operation
type Caller struct {
	ID            string `json:"id"`
	Role          Role   `json:"role"`
	InstitutionID string `json:"institution_id"`
}

// SystemCaller is the internal actor used for automatic transitions
var SystemCaller = Caller{ID: "system", Role: RoleSystem}

// User mirrors an identity-provider user in the local directory
type User struct {
	ID            string    `json:"id"`
	Role          Role      `json:"role"`
	InstitutionID string    `json:"institution_id"`
	DisplayName   string    `json:"display_name"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
