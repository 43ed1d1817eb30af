package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tincleo/al-sub000/internal/models"
)

// Repository is the Postgres Store.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ Store = (*Repository)(nil)

func (r *Repository) ReadMember(ctx context.Context, id uuid.UUID) (*models.TeamMemberBalance, error) {
	var m models.TeamMemberBalance
	err := r.pool.QueryRow(ctx, `
		SELECT id, current_balance, total_earned, salary FROM team_members WHERE id = $1
	`, id).Scan(&m.ID, &m.CurrentBalance, &m.TotalEarned, &m.Salary)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrMemberNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// CommitChange runs in its own transaction:
// a) updates the member row only if balance and total earned are still the expected values
// b) inserts the balance_history row describing the change
// Both are committed together or not at all.
func (r *Repository) CommitChange(ctx context.Context, c Change) (*models.BalanceHistoryEntry, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	result, err := tx.Exec(ctx, `
		UPDATE team_members
		SET current_balance = $4, total_earned = $5, updated_at = now()
		WHERE id = $1 AND current_balance = $2 AND total_earned = $3
	`, c.MemberID, c.ExpectedBalance, c.ExpectedTotalEarned, c.NewBalance, c.NewTotalEarned)
	if err != nil {
		return nil, err
	}
	if result.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM team_members WHERE id = $1)`, c.MemberID).Scan(&exists); err != nil {
			return nil, err
		}
		if !exists {
			return nil, ErrMemberNotFound
		}
		return nil, ErrBalanceConflict
	}

	entry := c.Entry()
	err = tx.QueryRow(ctx, `
		INSERT INTO balance_history (team_member_id, amount, type, reason, note, previous_balance, new_balance)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7)
		RETURNING id, created_at
	`, entry.TeamMemberID, entry.Amount, string(entry.Type), entry.Reason, entry.Note, entry.PreviousBalance, entry.NewBalance).
		Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return entry, nil
}
