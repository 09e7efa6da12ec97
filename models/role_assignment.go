package models

import (
	"time"

	"github.com/google/uuid"
)

// RoleAssignment grants one role to one subject. A subject's role set is the
// ordered list of its assignments.
type RoleAssignment struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Subject   string    `json:"subject" db:"subject"`
	Role      string    `json:"role" db:"role"`
	Position  int       `json:"position" db:"position"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// TableName returns the table name for the RoleAssignment model
func (RoleAssignment) TableName() string {
	return "role_assignments"
}

// NewRoleAssignments builds the ordered assignments for subject, one per role
func NewRoleAssignments(subject string, roles []string) []*RoleAssignment {
	now := time.Now().UTC()
	out := make([]*RoleAssignment, 0, len(roles))
	for i, role := range roles {
		out = append(out, &RoleAssignment{
			ID:        uuid.New(),
			Subject:   subject,
			Role:      role,
			Position:  i,
			CreatedAt: now,
		})
	}
	return out
}

// RolesOf extracts role names in assignment order
func RolesOf(assignments []*RoleAssignment) []string {
	roles := make([]string, len(assignments))
	for i, a := range assignments {
		roles[i] = a.Role
	}
	return roles
}
