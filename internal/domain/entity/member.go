package entity

import "github.com/founderstab/founders-tab/internal/domain/workflow"

// Member is a user belonging to a company
type Member struct {
	ID        int64         `json:"id"`
	CompanyID int64         `json:"company_id"`
	Name      string        `json:"name"`
	Email     string        `json:"email"`
	Role      workflow.Role `json:"role"`
}

// Actor returns the member as a workflow actor
func (m *Member) Actor() workflow.Actor {
	return workflow.Actor{UserID: m.ID, Role: m.Role}
}

// IsFounder reports whether the member holds the founder role
func (m *Member) IsFounder() bool {
	return m.Role == workflow.RoleFounder
}

// CompanySettings holds per-company workflow configuration
type CompanySettings struct {
	CompanyID          int64 `json:"company_id"`
	NudgeCooldownHours int   `json:"nudge_cooldown_hours"`
}
