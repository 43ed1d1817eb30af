package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tincleo/al-sub000/internal/models"
)

// BalanceHistoryRepo reads balance_history. Rows are written only by the
// ledger and never updated or deleted.
type BalanceHistoryRepo struct {
	pool *pgxpool.Pool
}

func NewBalanceHistoryRepo(pool *pgxpool.Pool) *BalanceHistoryRepo {
	return &BalanceHistoryRepo{pool: pool}
}

const historyColumns = `id, team_member_id, amount, type, reason, COALESCE(note, ''), previous_balance, new_balance, created_at`

func scanHistory(rows pgx.Rows) ([]models.BalanceHistoryEntry, error) {
	defer rows.Close()
	var list []models.BalanceHistoryEntry
	for rows.Next() {
		var e models.BalanceHistoryEntry
		var typ string
		if err := rows.Scan(&e.ID, &e.TeamMemberID, &e.Amount, &typ, &e.Reason, &e.Note, &e.PreviousBalance, &e.NewBalance, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Type = models.HistoryType(typ)
		list = append(list, e)
	}
	return list, rows.Err()
}

// ListByMemberID returns one page of a member's history, newest first.
func (r *BalanceHistoryRepo) ListByMemberID(ctx context.Context, memberID uuid.UUID, limit, offset int) ([]models.BalanceHistoryEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+historyColumns+`
		FROM balance_history WHERE team_member_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, memberID, limit, offset)
	if err != nil {
		return nil, err
	}
	return scanHistory(rows)
}

// CountByMemberID returns how many history entries a member has.
func (r *BalanceHistoryRepo) CountByMemberID(ctx context.Context, memberID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM balance_history WHERE team_member_id = $1`, memberID).Scan(&n)
	return n, err
}

// ListAllByMemberID returns a member's full history in creation order, for replay.
func (r *BalanceHistoryRepo) ListAllByMemberID(ctx context.Context, memberID uuid.UUID) ([]models.BalanceHistoryEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+historyColumns+`
		FROM balance_history WHERE team_member_id = $1
		ORDER BY created_at ASC, id ASC
	`, memberID)
	if err != nil {
		return nil, err
	}
	return scanHistory(rows)
}
