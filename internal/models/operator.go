package models

import (
	"time"

	"github.com/google/uuid"
)

// Operator roles.
const (
	OperatorRoleAdmin   = "admin"
	OperatorRoleManager = "manager"
)

// Operator is a dashboard user allowed to post balance changes.
type Operator struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"display_name"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
