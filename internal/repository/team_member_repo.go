package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tincleo/al-sub000/internal/models"
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("not found")

type TeamMemberRepo struct {
	pool *pgxpool.Pool
}

func NewTeamMemberRepo(pool *pgxpool.Pool) *TeamMemberRepo {
	return &TeamMemberRepo{pool: pool}
}

const teamMemberColumns = `id, name, phone, status, salary, current_balance, total_earned, created_at, updated_at`

func scanTeamMember(row pgx.Row) (*models.TeamMember, error) {
	var m models.TeamMember
	err := row.Scan(&m.ID, &m.Name, &m.Phone, &m.Status, &m.Salary, &m.CurrentBalance, &m.TotalEarned, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Create onboards a member. Balance and total earned always start at zero,
// whatever the struct holds.
func (r *TeamMemberRepo) Create(ctx context.Context, m *models.TeamMember) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.Status == "" {
		m.Status = models.TeamMemberStatusActive
	}
	m.CurrentBalance, m.TotalEarned = 0, 0
	return r.pool.QueryRow(ctx, `
		INSERT INTO team_members (id, name, phone, status, salary, current_balance, total_earned)
		VALUES ($1, $2, $3, $4, $5, 0, 0)
		RETURNING created_at, updated_at
	`, m.ID, m.Name, m.Phone, m.Status, m.Salary).Scan(&m.CreatedAt, &m.UpdatedAt)
}

func (r *TeamMemberRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.TeamMember, error) {
	return scanTeamMember(r.pool.QueryRow(ctx, `SELECT `+teamMemberColumns+` FROM team_members WHERE id = $1`, id))
}

func (r *TeamMemberRepo) List(ctx context.Context) ([]*models.TeamMember, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+teamMemberColumns+` FROM team_members ORDER BY name ASC, created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.TeamMember
	for rows.Next() {
		m, err := scanTeamMember(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// UpdateProfile writes the editable profile fields. Balance columns are never
// touched here; they change only through the ledger.
func (r *TeamMemberRepo) UpdateProfile(ctx context.Context, m *models.TeamMember) error {
	err := r.pool.QueryRow(ctx, `
		UPDATE team_members SET name = $2, phone = $3, status = $4, salary = $5, updated_at = now()
		WHERE id = $1
		RETURNING current_balance, total_earned, created_at, updated_at
	`, m.ID, m.Name, m.Phone, m.Status, m.Salary).Scan(&m.CurrentBalance, &m.TotalEarned, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
