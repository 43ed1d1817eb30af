package models

import (
	"time"

	"github.com/google/uuid"
)

// Team member status enums.
const (
	TeamMemberStatusActive   = "active"
	TeamMemberStatusInactive = "inactive"
)

// TeamMember is the full team member record. CurrentBalance and TotalEarned are
// owned by the ledger and only change through it.
type TeamMember struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Phone          string    `json:"phone"`
	Status         string    `json:"status"`
	Salary         int64     `json:"salary"`
	CurrentBalance int64     `json:"current_balance"`
	TotalEarned    int64     `json:"total_earned"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Balance returns the ledger-relevant subset of the record.
func (m *TeamMember) Balance() TeamMemberBalance {
	return TeamMemberBalance{
		ID:             m.ID,
		CurrentBalance: m.CurrentBalance,
		TotalEarned:    m.TotalEarned,
		Salary:         m.Salary,
	}
}

// TeamMemberBalance is the part of a team member the ledger reads and writes.
type TeamMemberBalance struct {
	ID             uuid.UUID `json:"id"`
	CurrentBalance int64     `json:"current_balance"`
	TotalEarned    int64     `json:"total_earned"`
	Salary         int64     `json:"salary"`
}

// ValidTeamMemberStatus reports whether s is a known status.
func ValidTeamMemberStatus(s string) bool {
	return s == TeamMemberStatusActive || s == TeamMemberStatusInactive
}
