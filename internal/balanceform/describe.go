package balanceform

import (
	"errors"
	"fmt"

	"github.com/tincleo/al-sub000/internal/ledger"
)

// Outcome is how a ledger error is presented to an operator.
type Outcome struct {
	Field     string `json:"field,omitempty"`
	Message   string `json:"error"`
	Retryable bool   `json:"retryable"`
}

// Describe maps a ledger error to an operator-facing outcome. Store failures
// get a generic message; the underlying error is for logs only.
func Describe(err error) Outcome {
	switch {
	case errors.Is(err, ledger.ErrInvalidAmount):
		return Outcome{Field: FieldAmount, Message: "Enter an amount greater than zero."}
	case errors.Is(err, ledger.ErrMissingReason):
		return Outcome{Field: FieldReason, Message: "Select a reason."}
	case errors.Is(err, ledger.ErrNoteTooLong):
		return Outcome{Field: FieldNote, Message: fmt.Sprintf("Keep the note under %d characters.", ledger.MaxNoteLength+1)}
	case errors.Is(err, ledger.ErrInsufficientBalance):
		return Outcome{Field: FieldAmount, Message: "Deduction is larger than the current balance."}
	case errors.Is(err, ledger.ErrMemberNotFound):
		return Outcome{Message: "Team member not found."}
	case errors.Is(err, ErrBusy):
		return Outcome{Message: "Another balance operation is still in progress.", Retryable: true}
	default:
		return Outcome{Message: "Could not update the balance. Please try again.", Retryable: true}
	}
}

// ReasonOption is one entry of the reason picker.
type ReasonOption struct {
	Label     string `json:"label"`
	Direction string `json:"direction"`
	Accrues   bool   `json:"accrues"`
}

// ReasonOptions lists the reasons an operator may pick, in display order.
func ReasonOptions() []ReasonOption {
	reasons := ledger.SelectableReasons()
	out := make([]ReasonOption, 0, len(reasons))
	for _, r := range reasons {
		dir := "increase"
		if r.Sign() < 0 {
			dir = "decrease"
		}
		out = append(out, ReasonOption{Label: r.String(), Direction: dir, Accrues: r.Accrues()})
	}
	return out
}
