package ledger

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tincleo/al-sub000/internal/models"
)

// ---------------------------------------------------------------------------
// In-memory Store with the same compare-and-set semantics as Repository.
// ---------------------------------------------------------------------------

type memStore struct {
	mu      sync.Mutex
	members map[uuid.UUID]*models.TeamMemberBalance
	entries []models.BalanceHistoryEntry
	clock   time.Time

	reads   int
	commits int

	// commitErr, when set, fails every commit without writing.
	commitErr error
	// interfere, when set, runs before the CAS check of the next N commits so
	// tests can simulate a concurrent writer.
	interfere      func(m *models.TeamMemberBalance)
	interfereTimes int
}

func newMemStore(members ...models.TeamMemberBalance) *memStore {
	s := &memStore{
		members: make(map[uuid.UUID]*models.TeamMemberBalance),
		clock:   time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC),
	}
	for _, m := range members {
		cp := m
		s.members[m.ID] = &cp
	}
	return s
}

func (s *memStore) ReadMember(_ context.Context, id uuid.UUID) (*models.TeamMemberBalance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	m, ok := s.members[id]
	if !ok {
		return nil, ErrMemberNotFound
	}
	cp := *m
	return &cp, nil
}

func (s *memStore) CommitChange(_ context.Context, c Change) (*models.BalanceHistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commits++
	if s.commitErr != nil {
		return nil, s.commitErr
	}
	m, ok := s.members[c.MemberID]
	if !ok {
		return nil, ErrMemberNotFound
	}
	if s.interfere != nil && s.interfereTimes > 0 {
		s.interfereTimes--
		s.interfere(m)
	}
	if m.CurrentBalance != c.ExpectedBalance || m.TotalEarned != c.ExpectedTotalEarned {
		return nil, ErrBalanceConflict
	}
	m.CurrentBalance = c.NewBalance
	m.TotalEarned = c.NewTotalEarned
	entry := c.Entry()
	entry.ID = uuid.New()
	s.clock = s.clock.Add(time.Second)
	entry.CreatedAt = s.clock
	s.entries = append(s.entries, *entry)
	cp := *entry
	return &cp, nil
}

// appendForeign records a change made by some other writer, keeping the
// history consistent with the member row.
func (s *memStore) appendForeign(m *models.TeamMemberBalance, amount int64, reason Reason) {
	prev := m.CurrentBalance
	m.CurrentBalance += amount
	if reason.Accrues() {
		m.TotalEarned += amount
	}
	s.clock = s.clock.Add(time.Second)
	s.entries = append(s.entries, models.BalanceHistoryEntry{
		ID: uuid.New(), TeamMemberID: m.ID, Amount: amount, Type: models.HistoryTypeOf(amount),
		Reason: reason.String(), PreviousBalance: prev, NewBalance: m.CurrentBalance, CreatedAt: s.clock,
	})
}

func (s *memStore) member(id uuid.UUID) models.TeamMemberBalance {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.members[id]
}

func (s *memStore) history(id uuid.UUID) []models.BalanceHistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.BalanceHistoryEntry
	for _, e := range s.entries {
		if e.TeamMemberID == id {
			out = append(out, e)
		}
	}
	return out
}

func (s *memStore) counts() (reads, commits int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads, s.commits
}

var errNetwork = errors.New("connection reset by peer")

func member(balance, totalEarned int64) models.TeamMemberBalance {
	return models.TeamMemberBalance{ID: uuid.New(), CurrentBalance: balance, TotalEarned: totalEarned, Salary: 5000}
}
