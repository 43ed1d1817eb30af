// Package balanceform is the contract between the balance ledger and whatever
// surface drives it: an editable draft, field-keyed validation errors, busy
// flags per operation and one confirm entry point per operation.
package balanceform

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"github.com/tincleo/al-sub000/internal/ledger"
	"github.com/tincleo/al-sub000/internal/models"
)

// Draft field keys used in validation errors.
const (
	FieldAmount = "amount"
	FieldReason = "reason"
	FieldNote   = "note"
)

// ErrBusy is returned when an operation is requested while another one for the
// same member is still in flight.
var ErrBusy = errors.New("another balance operation is in progress")

// Operation identifies which ledger operation is in flight.
type Operation int

const (
	OpNone Operation = iota
	OpTransaction
	OpClear
)

func (o Operation) String() string {
	switch o {
	case OpTransaction:
		return "transaction"
	case OpClear:
		return "clear"
	default:
		return "none"
	}
}

// Ledger is the subset of ledger.Engine the form drives.
type Ledger interface {
	ApplyTransaction(ctx context.Context, memberID uuid.UUID, rawAmount, reasonCode, note string) (ledger.Result, error)
	ClearBalance(ctx context.Context, memberID uuid.UUID) (ledger.Result, error)
}

// Draft is the operator's pending transaction.
type Draft struct {
	Amount string `json:"amount"`
	Reason string `json:"reason"`
	Note   string `json:"note"`
}

// View is the member state the surface renders. A new View is produced after
// every successful operation; the form never mutates one it has handed out.
type View struct {
	MemberID       uuid.UUID                   `json:"member_id"`
	CurrentBalance int64                       `json:"current_balance"`
	TotalEarned    int64                       `json:"total_earned"`
	Salary         int64                       `json:"salary"`
	LastEntry      *models.BalanceHistoryEntry `json:"last_entry,omitempty"`
}

// Form holds the presentation state for one member's balance.
type Form struct {
	ledger   Ledger
	memberID uuid.UUID

	mu          sync.Mutex
	view        View
	draft       Draft
	fieldErrors map[string]string
	message     string
	busy        Operation
}

// New returns a form for member with the draft pre-filled from its salary.
func New(l Ledger, member models.TeamMemberBalance) *Form {
	f := &Form{
		ledger:   l,
		memberID: member.ID,
		view: View{
			MemberID:       member.ID,
			CurrentBalance: member.CurrentBalance,
			TotalEarned:    member.TotalEarned,
			Salary:         member.Salary,
		},
		fieldErrors: map[string]string{},
	}
	f.draft = prefilled(member.Salary)
	return f
}

func prefilled(salary int64) Draft {
	d := Draft{Reason: ledger.ReasonDailySalary.String()}
	if salary > 0 {
		d.Amount = strconv.FormatInt(salary, 10)
	}
	return d
}

// SetDraft replaces the draft and clears stale errors.
func (f *Form) SetDraft(d Draft) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.draft = d
	f.fieldErrors = map[string]string{}
	f.message = ""
}

func (f *Form) Draft() Draft {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.draft
}

func (f *Form) View() View {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.view
}

// FieldErrors returns a copy of the current validation errors keyed by field.
func (f *Form) FieldErrors() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]string, len(f.fieldErrors))
	for k, v := range f.fieldErrors {
		out[k] = v
	}
	return out
}

// Message is the last non-field error shown to the operator.
func (f *Form) Message() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.message
}

// Busy returns the operation currently in flight, or OpNone.
func (f *Form) Busy() Operation {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.busy
}

func (f *Form) CanSubmit() bool {
	return f.Busy() == OpNone
}

// CanClear is false while anything is in flight or there is nothing to pay out.
func (f *Form) CanClear() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.busy == OpNone && f.view.CurrentBalance > 0
}

// Validate checks the draft without calling the ledger and records an error
// for every invalid field. It reports whether the draft is submittable.
func (f *Form) Validate() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fieldErrors = map[string]string{}
	if _, err := ledger.ParseAmount(f.draft.Amount); err != nil {
		f.fieldErrors[FieldAmount] = Describe(err).Message
	}
	if _, ok := ledger.ParseReason(f.draft.Reason); !ok {
		f.fieldErrors[FieldReason] = Describe(ledger.ErrMissingReason).Message
	}
	if _, err := ledger.ParseNote(f.draft.Note); err != nil {
		f.fieldErrors[FieldNote] = Describe(err).Message
	}
	return len(f.fieldErrors) == 0
}

// SubmitTransaction applies the draft. On success the draft resets to the
// salary default and the returned View carries the new balance.
func (f *Form) SubmitTransaction(ctx context.Context) (View, error) {
	d, err := f.begin(OpTransaction)
	if err != nil {
		return f.View(), err
	}
	res, err := f.ledger.ApplyTransaction(ctx, f.memberID, d.Amount, d.Reason, d.Note)
	return f.finish(res, err, true)
}

// ConfirmClear pays out the full balance.
func (f *Form) ConfirmClear(ctx context.Context) (View, error) {
	if _, err := f.begin(OpClear); err != nil {
		return f.View(), err
	}
	res, err := f.ledger.ClearBalance(ctx, f.memberID)
	return f.finish(res, err, false)
}

func (f *Form) begin(op Operation) (Draft, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.busy != OpNone {
		return Draft{}, ErrBusy
	}
	f.busy = op
	f.fieldErrors = map[string]string{}
	f.message = ""
	return f.draft, nil
}

func (f *Form) finish(res ledger.Result, err error, resetDraft bool) (View, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.busy = OpNone
	if err != nil {
		o := Describe(err)
		if o.Field != "" {
			f.fieldErrors[o.Field] = o.Message
		} else {
			f.message = o.Message
		}
		return f.view, err
	}
	f.view = View{
		MemberID:       f.memberID,
		CurrentBalance: res.Member.CurrentBalance,
		TotalEarned:    res.Member.TotalEarned,
		Salary:         f.view.Salary,
		LastEntry:      res.Entry,
	}
	if resetDraft {
		f.draft = prefilled(f.view.Salary)
	}
	return f.view, nil
}
