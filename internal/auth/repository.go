package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tincleo/al-sub000/internal/models"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new operator and fills in its ID and CreatedAt.
func (r *Repository) Create(ctx context.Context, op *models.Operator) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO operators (email, password_hash, display_name, role)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, op.Email, op.PasswordHash, op.DisplayName, op.Role).Scan(&op.ID, &op.CreatedAt)
}

// CreateFirst inserts op only if no operator exists yet and reports whether it
// did. Concurrent callers are serialised by an advisory lock so at most one
// succeeds.
func (r *Repository) CreateFirst(ctx context.Context, op *models.Operator) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext('operators_bootstrap'))`); err != nil {
		return false, err
	}
	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM operators)`).Scan(&exists); err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO operators (email, password_hash, display_name, role)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, op.Email, op.PasswordHash, op.DisplayName, op.Role).Scan(&op.ID, &op.CreatedAt)
	if err != nil {
		return false, err
	}
	return true, tx.Commit(ctx)
}

// GetByEmail returns the operator with its password hash. Returns nil if not found.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.Operator, error) {
	var op models.Operator
	err := r.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, display_name, role, created_at
		FROM operators WHERE email = $1
	`, email).Scan(&op.ID, &op.Email, &op.PasswordHash, &op.DisplayName, &op.Role, &op.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &op, nil
}
