package models

import (
	"time"

	"github.com/google/uuid"
)

// HistoryType is the direction of a balance change.
type HistoryType string

const (
	HistoryIncrease HistoryType = "increase"
	HistoryDecrease HistoryType = "decrease"
)

// HistoryTypeOf derives the direction from the sign of amount.
func HistoryTypeOf(amount int64) HistoryType {
	if amount > 0 {
		return HistoryIncrease
	}
	return HistoryDecrease
}

// BalanceHistoryEntry is one immutable row of balance_history.
type BalanceHistoryEntry struct {
	ID              uuid.UUID   `json:"id"`
	TeamMemberID    uuid.UUID   `json:"team_member_id"`
	Amount          int64       `json:"amount"`
	Type            HistoryType `json:"type"`
	Reason          string      `json:"reason"`
	Note            string      `json:"note,omitempty"`
	PreviousBalance int64       `json:"previous_balance"`
	NewBalance      int64       `json:"new_balance"`
	CreatedAt       time.Time   `json:"created_at"`
}
