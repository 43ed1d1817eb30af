package ledger

import "fmt"

// Reason is the closed set of reason codes a balance change can carry.
type Reason uint8

const (
	ReasonDailySalary Reason = iota + 1
	ReasonBonus
	ReasonTransport
	ReasonDeduction
	ReasonBalanceCleared
)

var reasonLabels = map[Reason]string{
	ReasonDailySalary:    "Daily salary",
	ReasonBonus:          "Bonus",
	ReasonTransport:      "Transport",
	ReasonDeduction:      "Deduction",
	ReasonBalanceCleared: "Balance cleared",
}

// String returns the stored label, e.g. "Daily salary".
func (r Reason) String() string {
	if l, ok := reasonLabels[r]; ok {
		return l
	}
	return fmt.Sprintf("Reason(%d)", uint8(r))
}

// MarshalText encodes the reason as its label.
func (r Reason) MarshalText() ([]byte, error) {
	if _, ok := reasonLabels[r]; !ok {
		return nil, fmt.Errorf("unknown reason %d", uint8(r))
	}
	return []byte(r.String()), nil
}

// Selectable reports whether operators may pick this reason for a transaction.
// Balance cleared is written by the clearing operation only.
func (r Reason) Selectable() bool {
	switch r {
	case ReasonDailySalary, ReasonBonus, ReasonTransport, ReasonDeduction:
		return true
	case ReasonBalanceCleared:
		return false
	}
	return false
}

// Sign is +1 for reasons that credit the balance and -1 for those that debit it.
func (r Reason) Sign() int64 {
	switch r {
	case ReasonDailySalary, ReasonBonus, ReasonTransport:
		return 1
	case ReasonDeduction, ReasonBalanceCleared:
		return -1
	}
	panic(fmt.Sprintf("ledger: sign of unknown reason %d", uint8(r)))
}

// Accrues reports whether a transaction with this reason adds its amount to
// total earned. Transport credits the balance without counting as earnings.
// Clearing folds the balance into total earned separately.
func (r Reason) Accrues() bool {
	switch r {
	case ReasonDailySalary, ReasonBonus:
		return true
	case ReasonTransport, ReasonDeduction, ReasonBalanceCleared:
		return false
	}
	panic(fmt.Sprintf("ledger: accrual of unknown reason %d", uint8(r)))
}

// ParseReason resolves an operator-supplied code. Only selectable reasons are
// accepted.
func ParseReason(code string) (Reason, bool) {
	r, ok := ReasonFromLabel(code)
	if !ok || !r.Selectable() {
		return 0, false
	}
	return r, true
}

// ReasonFromLabel resolves any stored label, including Balance cleared.
func ReasonFromLabel(label string) (Reason, bool) {
	for r, l := range reasonLabels {
		if l == label {
			return r, true
		}
	}
	return 0, false
}

// SelectableReasons lists the reasons offered to operators, in display order.
func SelectableReasons() []Reason {
	return []Reason{ReasonDailySalary, ReasonBonus, ReasonTransport, ReasonDeduction}
}
