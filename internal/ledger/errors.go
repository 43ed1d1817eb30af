package ledger

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidAmount: amount missing, non-numeric, zero or negative.
	ErrInvalidAmount = errors.New("amount must be a number greater than zero")

	// ErrMissingReason: no reason code, or one outside the selectable set.
	ErrMissingReason = errors.New("a reason must be selected")

	// ErrNoteTooLong: the note exceeds MaxNoteLength characters.
	ErrNoteTooLong = errors.New("note is too long")

	// ErrInsufficientBalance is returned when a deduction would take the balance below zero.
	ErrInsufficientBalance = errors.New("deduction exceeds current balance")

	// ErrMemberNotFound is returned when the team member does not exist.
	ErrMemberNotFound = errors.New("team member not found")

	// ErrBalanceConflict is returned by a Store when the member row no longer
	// matches the balance the change was computed from.
	ErrBalanceConflict = errors.New("balance changed concurrently")

	// ErrStore wraps every other failure at the store boundary.
	ErrStore = errors.New("ledger store failure")
)

func storeError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStore, err)
}

// IsValidation reports whether err was raised before any store interaction.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidAmount) || errors.Is(err, ErrMissingReason) || errors.Is(err, ErrNoteTooLong)
}
