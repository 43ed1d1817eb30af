package ledger

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/tincleo/al-sub000/internal/models"
)

// Discrepancy kinds reported by Verify.
const (
	DiscrepancyChain       = "chain"
	DiscrepancyArithmetic  = "arithmetic"
	DiscrepancyZeroAmount  = "zero_amount"
	DiscrepancySign        = "sign"
	DiscrepancyNegative    = "negative_balance"
	DiscrepancyReason      = "unknown_reason"
	DiscrepancyBalance     = "balance_mismatch"
	DiscrepancyTotalEarned = "total_earned_mismatch"
)

// Discrepancy is one way a member's history disagrees with itself or with the member row.
type Discrepancy struct {
	MemberID uuid.UUID `json:"member_id"`
	EntryID  uuid.UUID `json:"entry_id,omitempty"`
	Kind     string    `json:"kind"`
	Detail   string    `json:"detail"`
}

func (d Discrepancy) String() string {
	if d.EntryID != uuid.Nil {
		return fmt.Sprintf("%s: entry %s: %s", d.Kind, d.EntryID, d.Detail)
	}
	return fmt.Sprintf("%s: %s", d.Kind, d.Detail)
}

// Replay returns the balance and total earned obtained by applying entries,
// in creation order, to a member that started at zero.
func Replay(entries []models.BalanceHistoryEntry) (balance, totalEarned int64) {
	for _, e := range entries {
		balance += e.Amount
		reason, ok := ReasonFromLabel(e.Reason)
		if !ok {
			continue
		}
		switch {
		case reason == ReasonBalanceCleared:
			totalEarned += -e.Amount
		case reason.Accrues():
			totalEarned += e.Amount
		}
	}
	return balance, totalEarned
}

// Verify checks a member against its full history, oldest entry first.
func Verify(m models.TeamMemberBalance, entries []models.BalanceHistoryEntry) []Discrepancy {
	var out []Discrepancy
	add := func(entryID uuid.UUID, kind, format string, args ...any) {
		out = append(out, Discrepancy{MemberID: m.ID, EntryID: entryID, Kind: kind, Detail: fmt.Sprintf(format, args...)})
	}

	var running int64
	for _, e := range entries {
		if e.PreviousBalance != running {
			add(e.ID, DiscrepancyChain, "previous_balance %d, expected %d", e.PreviousBalance, running)
		}
		if e.NewBalance != e.PreviousBalance+e.Amount {
			add(e.ID, DiscrepancyArithmetic, "%d + %d != %d", e.PreviousBalance, e.Amount, e.NewBalance)
		}
		if e.Amount == 0 {
			add(e.ID, DiscrepancyZeroAmount, "amount is zero")
		} else if e.Type != models.HistoryTypeOf(e.Amount) {
			add(e.ID, DiscrepancySign, "type %q for amount %d", e.Type, e.Amount)
		}
		if e.NewBalance < 0 {
			add(e.ID, DiscrepancyNegative, "new_balance %d", e.NewBalance)
		}
		if _, ok := ReasonFromLabel(e.Reason); !ok {
			add(e.ID, DiscrepancyReason, "reason %q", e.Reason)
		}
		running += e.Amount
	}

	balance, totalEarned := Replay(entries)
	if balance != m.CurrentBalance {
		add(uuid.Nil, DiscrepancyBalance, "history replays to %d, current_balance is %d", balance, m.CurrentBalance)
	}
	if totalEarned != m.TotalEarned {
		add(uuid.Nil, DiscrepancyTotalEarned, "history replays to %d, total_earned is %d", totalEarned, m.TotalEarned)
	}
	return out
}
