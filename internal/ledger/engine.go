package ledger

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/tincleo/al-sub000/internal/models"
)

// maxAmount bounds a single change so balance arithmetic cannot overflow int64.
const maxAmount = 1_000_000_000_000

// MaxNoteLength is the longest note, in characters, a transaction may carry.
const MaxNoteLength = 500

// DefaultMaxConflictRetries is used when NewEngine is given a negative retry count.
const DefaultMaxConflictRetries = 3

// Store is the ledger's view of the persistent team member and history tables.
type Store interface {
	ReadMember(ctx context.Context, id uuid.UUID) (*models.TeamMemberBalance, error)
	// CommitChange updates the member row and inserts the history entry in one
	// transaction. The update applies only if the row still holds the expected
	// balance and total earned; otherwise it returns ErrBalanceConflict and
	// writes nothing.
	CommitChange(ctx context.Context, c Change) (*models.BalanceHistoryEntry, error)
}

// Change is one compare-and-set mutation of a member's balance plus the
// history entry that records it.
type Change struct {
	MemberID            uuid.UUID
	ExpectedBalance     int64
	ExpectedTotalEarned int64
	NewBalance          int64
	NewTotalEarned      int64
	Amount              int64
	Reason              Reason
	Note                string
}

// Entry builds the history row for the change. ID and CreatedAt are left for the store.
func (c Change) Entry() *models.BalanceHistoryEntry {
	return &models.BalanceHistoryEntry{
		TeamMemberID:    c.MemberID,
		Amount:          c.Amount,
		Type:            models.HistoryTypeOf(c.Amount),
		Reason:          c.Reason.String(),
		Note:            c.Note,
		PreviousBalance: c.ExpectedBalance,
		NewBalance:      c.NewBalance,
	}
}

// Result is the outcome of a successful ledger operation. Entry is nil when
// the operation was a no-op.
type Result struct {
	Member models.TeamMemberBalance    `json:"member"`
	Entry  *models.BalanceHistoryEntry `json:"entry,omitempty"`
}

// Engine applies balance transactions and clearings against a Store.
type Engine struct {
	store      Store
	maxRetries int
	log        *slog.Logger
}

// NewEngine returns an Engine. maxConflictRetries is how many times a change
// is recomputed after losing a compare-and-set race.
func NewEngine(store Store, maxConflictRetries int, log *slog.Logger) *Engine {
	if maxConflictRetries < 0 {
		maxConflictRetries = DefaultMaxConflictRetries
	}
	if log == nil {
		log = slog.Default()
	}
	return &Engine{store: store, maxRetries: maxConflictRetries, log: log}
}

// ParseAmount parses an operator-entered amount and rounds it to whole currency units.
func ParseAmount(raw string) (int64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return 0, ErrInvalidAmount
	}
	n := math.Round(f)
	if n < 1 || n > maxAmount {
		return 0, ErrInvalidAmount
	}
	return int64(n), nil
}

// ParseNote trims a free-text note and enforces MaxNoteLength.
func ParseNote(raw string) (string, error) {
	note := strings.TrimSpace(raw)
	if utf8.RuneCountInString(note) > MaxNoteLength {
		return "", ErrNoteTooLong
	}
	return note, nil
}

// ApplyTransaction validates and commits one balance change for a member.
// Validation happens before any store call: the amount first, then the reason,
// then the note.
func (e *Engine) ApplyTransaction(ctx context.Context, memberID uuid.UUID, rawAmount, reasonCode, note string) (Result, error) {
	const op = "transaction"
	amount, err := ParseAmount(rawAmount)
	if err != nil {
		observe(op, err)
		return Result{}, err
	}
	reason, ok := ParseReason(strings.TrimSpace(reasonCode))
	if !ok {
		observe(op, ErrMissingReason)
		return Result{}, ErrMissingReason
	}
	note, err = ParseNote(note)
	if err != nil {
		observe(op, err)
		return Result{}, err
	}
	signed := reason.Sign() * amount
	var accrual int64
	if reason.Accrues() {
		accrual = amount
	}

	res, err := e.run(ctx, op, memberID, func(m models.TeamMemberBalance) (*Change, error) {
		next := m.CurrentBalance + signed
		if next < 0 {
			return nil, ErrInsufficientBalance
		}
		return &Change{
			MemberID:            m.ID,
			ExpectedBalance:     m.CurrentBalance,
			ExpectedTotalEarned: m.TotalEarned,
			NewBalance:          next,
			NewTotalEarned:      m.TotalEarned + accrual,
			Amount:              signed,
			Reason:              reason,
			Note:                note,
		}, nil
	})
	if err == nil {
		e.log.Info("balance transaction applied",
			"member_id", memberID, "reason", reason.String(), "amount", signed, "new_balance", res.Member.CurrentBalance)
	}
	return res, err
}

// ClearBalance pays out the whole current balance: it becomes zero and is
// added to total earned. A zero balance is left untouched and recorded nowhere.
func (e *Engine) ClearBalance(ctx context.Context, memberID uuid.UUID) (Result, error) {
	const op = "clear"
	res, err := e.run(ctx, op, memberID, func(m models.TeamMemberBalance) (*Change, error) {
		if m.CurrentBalance <= 0 {
			return nil, nil
		}
		return &Change{
			MemberID:            m.ID,
			ExpectedBalance:     m.CurrentBalance,
			ExpectedTotalEarned: m.TotalEarned,
			NewBalance:          0,
			NewTotalEarned:      m.TotalEarned + m.CurrentBalance,
			Amount:              -m.CurrentBalance,
			Reason:              ReasonBalanceCleared,
		}, nil
	})
	if err == nil && res.Entry != nil {
		e.log.Info("balance cleared", "member_id", memberID, "paid_out", -res.Entry.Amount, "total_earned", res.Member.TotalEarned)
	}
	return res, err
}

// run reads the member, plans a change and commits it, recomputing the plan
// from a fresh read whenever the commit loses a compare-and-set race. A nil
// change from plan means there is nothing to write.
func (e *Engine) run(ctx context.Context, op string, memberID uuid.UUID, plan func(models.TeamMemberBalance) (*Change, error)) (Result, error) {
	for attempt := 0; ; attempt++ {
		m, err := e.store.ReadMember(ctx, memberID)
		if err != nil {
			if !errors.Is(err, ErrMemberNotFound) {
				err = storeError("read member", err)
			}
			observe(op, err)
			return Result{}, err
		}
		change, err := plan(*m)
		if err != nil {
			observe(op, err)
			return Result{}, err
		}
		if change == nil {
			observeOutcome(op, outcomeNoop)
			return Result{Member: *m}, nil
		}

		entry, err := e.store.CommitChange(ctx, *change)
		switch {
		case err == nil:
			observeOutcome(op, outcomeOK)
			return Result{
				Member: models.TeamMemberBalance{
					ID:             m.ID,
					CurrentBalance: change.NewBalance,
					TotalEarned:    change.NewTotalEarned,
					Salary:         m.Salary,
				},
				Entry: entry,
			}, nil
		case errors.Is(err, ErrMemberNotFound):
			observe(op, err)
			return Result{}, err
		case errors.Is(err, ErrBalanceConflict):
			conflictRetries.Inc()
			e.log.Warn("balance commit conflict", "member_id", memberID, "operation", op, "attempt", attempt+1)
			if attempt >= e.maxRetries {
				err = storeError("commit change", err)
				observe(op, err)
				return Result{}, err
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				err = storeError("commit change", ctxErr)
				observe(op, err)
				return Result{}, err
			}
		default:
			err = storeError("commit change", err)
			observe(op, err)
			return Result{}, err
		}
	}
}
