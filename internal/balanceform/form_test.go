package balanceform

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/tincleo/al-sub000/internal/ledger"
	"github.com/tincleo/al-sub000/internal/models"
)

// ---------------------------------------------------------------------------
// Mock ledger: records calls and can block until released.
// ---------------------------------------------------------------------------

type mockLedger struct {
	mu       sync.Mutex
	calls    []string
	result   ledger.Result
	err      error
	started  chan struct{}
	release  chan struct{}
	lastArgs [3]string
}

func (m *mockLedger) wait() {
	if m.started != nil {
		m.started <- struct{}{}
	}
	if m.release != nil {
		<-m.release
	}
}

func (m *mockLedger) ApplyTransaction(_ context.Context, _ uuid.UUID, rawAmount, reasonCode, note string) (ledger.Result, error) {
	m.mu.Lock()
	m.calls = append(m.calls, "apply")
	m.lastArgs = [3]string{rawAmount, reasonCode, note}
	m.mu.Unlock()
	m.wait()
	return m.result, m.err
}

func (m *mockLedger) ClearBalance(_ context.Context, _ uuid.UUID) (ledger.Result, error) {
	m.mu.Lock()
	m.calls = append(m.calls, "clear")
	m.mu.Unlock()
	m.wait()
	return m.result, m.err
}

func testMember() models.TeamMemberBalance {
	return models.TeamMemberBalance{ID: uuid.New(), CurrentBalance: 3000, TotalEarned: 5000, Salary: 4500}
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestNew_PrefillsSalary(t *testing.T) {
	f := New(&mockLedger{}, testMember())
	d := f.Draft()
	if d.Amount != "4500" || d.Reason != "Daily salary" {
		t.Errorf("draft: got %+v", d)
	}
	if !f.CanSubmit() || !f.CanClear() {
		t.Error("fresh form should allow both operations")
	}
}

func TestSubmitTransaction_Success(t *testing.T) {
	m := testMember()
	entry := &models.BalanceHistoryEntry{ID: uuid.New(), Amount: 1000, Type: models.HistoryIncrease}
	ml := &mockLedger{result: ledger.Result{
		Member: models.TeamMemberBalance{ID: m.ID, CurrentBalance: 4000, TotalEarned: 6000, Salary: m.Salary},
		Entry:  entry,
	}}
	f := New(ml, m)
	f.SetDraft(Draft{Amount: "1000", Reason: "Bonus", Note: "great review"})

	before := f.View()
	v, err := f.SubmitTransaction(context.Background())
	if err != nil {
		t.Fatalf("SubmitTransaction: %v", err)
	}
	if v.CurrentBalance != 4000 || v.TotalEarned != 6000 || v.LastEntry != entry {
		t.Errorf("view: got %+v", v)
	}
	if before.CurrentBalance != 3000 {
		t.Error("previously returned view must not change")
	}
	if ml.lastArgs != [3]string{"1000", "Bonus", "great review"} {
		t.Errorf("ledger args: got %v", ml.lastArgs)
	}
	if d := f.Draft(); d.Amount != "4500" || d.Reason != "Daily salary" || d.Note != "" {
		t.Errorf("draft should reset to defaults, got %+v", d)
	}
	if f.Busy() != OpNone {
		t.Error("busy flag should be cleared")
	}
}

func TestSubmitTransaction_FieldErrors(t *testing.T) {
	tests := []struct {
		err   error
		field string
	}{
		{ledger.ErrInvalidAmount, FieldAmount},
		{ledger.ErrMissingReason, FieldReason},
		{ledger.ErrNoteTooLong, FieldNote},
		{ledger.ErrInsufficientBalance, FieldAmount},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			f := New(&mockLedger{err: tt.err}, testMember())
			v, err := f.SubmitTransaction(context.Background())
			if !errors.Is(err, tt.err) {
				t.Fatalf("got %v, want %v", err, tt.err)
			}
			if v.CurrentBalance != 3000 {
				t.Errorf("view should be unchanged, got %+v", v)
			}
			if _, ok := f.FieldErrors()[tt.field]; !ok {
				t.Errorf("expected error on %q, got %v", tt.field, f.FieldErrors())
			}
			if f.Message() != "" {
				t.Errorf("unexpected general message %q", f.Message())
			}
		})
	}
}

func TestSubmitTransaction_StoreErrorMessage(t *testing.T) {
	storeErr := fmt.Errorf("commit change: %w: %w", ledger.ErrStore, errors.New("pq: deadlock detected"))
	f := New(&mockLedger{err: storeErr}, testMember())
	f.SubmitTransaction(context.Background())

	msg := f.Message()
	if msg == "" {
		t.Fatal("expected a general error message")
	}
	if len(f.FieldErrors()) != 0 {
		t.Errorf("store errors are not field errors: %v", f.FieldErrors())
	}
	if o := Describe(storeErr); !o.Retryable {
		t.Error("store failures should be retryable")
	}
}

func TestBusyFlags_MutuallyExclusive(t *testing.T) {
	ml := &mockLedger{
		started: make(chan struct{}),
		release: make(chan struct{}),
		result:  ledger.Result{Member: models.TeamMemberBalance{CurrentBalance: 0, TotalEarned: 8000}},
	}
	f := New(ml, testMember())

	done := make(chan error, 1)
	go func() {
		_, err := f.ConfirmClear(context.Background())
		done <- err
	}()
	<-ml.started

	if f.Busy() != OpClear {
		t.Errorf("busy: got %s, want clear", f.Busy())
	}
	if f.CanSubmit() || f.CanClear() {
		t.Error("no operation should be allowed while clearing")
	}
	if _, err := f.SubmitTransaction(context.Background()); !errors.Is(err, ErrBusy) {
		t.Errorf("expected ErrBusy, got %v", err)
	}
	if _, err := f.ConfirmClear(context.Background()); !errors.Is(err, ErrBusy) {
		t.Errorf("expected ErrBusy, got %v", err)
	}

	close(ml.release)
	if err := <-done; err != nil {
		t.Fatalf("ConfirmClear: %v", err)
	}
	if len(ml.calls) != 1 {
		t.Errorf("ledger calls: got %v, want one clear", ml.calls)
	}
	if v := f.View(); v.CurrentBalance != 0 || v.TotalEarned != 8000 {
		t.Errorf("view: got %+v", v)
	}
	if f.CanClear() {
		t.Error("nothing left to clear")
	}
	if !f.CanSubmit() {
		t.Error("transactions should be allowed again")
	}
}

func TestValidate(t *testing.T) {
	f := New(&mockLedger{}, testMember())
	f.SetDraft(Draft{Amount: "-5", Reason: ""})
	if f.Validate() {
		t.Fatal("expected invalid draft")
	}
	errs := f.FieldErrors()
	if _, ok := errs[FieldAmount]; !ok {
		t.Error("missing amount error")
	}
	if _, ok := errs[FieldReason]; !ok {
		t.Error("missing reason error")
	}

	f.SetDraft(Draft{Amount: "250", Reason: "Transport", Note: strings.Repeat("x", ledger.MaxNoteLength+1)})
	if f.Validate() {
		t.Fatal("expected overlong note to be rejected")
	}
	if _, ok := f.FieldErrors()[FieldNote]; !ok {
		t.Errorf("missing note error, got %v", f.FieldErrors())
	}

	f.SetDraft(Draft{Amount: "250", Reason: "Transport"})
	if !f.Validate() {
		t.Errorf("expected valid draft, got %v", f.FieldErrors())
	}
}

func TestReasonOptions(t *testing.T) {
	opts := ReasonOptions()
	want := map[string]string{
		"Daily salary": "increase",
		"Bonus":        "increase",
		"Transport":    "increase",
		"Deduction":    "decrease",
	}
	if len(opts) != len(want) {
		t.Fatalf("options: got %d, want %d", len(opts), len(want))
	}
	for _, o := range opts {
		if want[o.Label] != o.Direction {
			t.Errorf("%s: direction %s, want %s", o.Label, o.Direction, want[o.Label])
		}
	}
}
