package postgres

import (
	"context"
	"errors"
	"fmt"

	"course-admin-gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// IdentityRepo implements ports.IdentityRepository.
type IdentityRepo struct {
	pool Pool
}

// NewIdentityRepo creates a new IdentityRepo.
func NewIdentityRepo(pool Pool) *IdentityRepo {
	return &IdentityRepo{pool: pool}
}

// Create inserts an identity inside tx.
func (r *IdentityRepo) Create(ctx context.Context, tx pgx.Tx, i *domain.Identity) error {
	query := `INSERT INTO identities (id, email, password_hash, must_change_password, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := tx.Exec(ctx, query, i.ID, i.Email, i.PasswordHash, i.MustChangePassword, i.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert identity: %w", err)
	}
	return nil
}

// GetByID fetches an identity by id.
func (r *IdentityRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Identity, error) {
	query := `SELECT id, email, password_hash, must_change_password, created_at FROM identities WHERE id = $1`
	return r.getOne(ctx, "get identity by id", query, id)
}

// GetByEmail fetches an identity by email, ignoring case.
func (r *IdentityRepo) GetByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	query := `SELECT id, email, password_hash, must_change_password, created_at FROM identities WHERE lower(email) = lower($1)`
	return r.getOne(ctx, "get identity by email", query, email)
}

func (r *IdentityRepo) getOne(ctx context.Context, op, query string, arg any) (*domain.Identity, error) {
	i := &domain.Identity{}
	err := r.pool.QueryRow(ctx, query, arg).Scan(&i.ID, &i.Email, &i.PasswordHash, &i.MustChangePassword, &i.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return i, nil
}

// UpdatePassword replaces the stored hash.
func (r *IdentityRepo) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string, mustChange bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE identities SET password_hash = $1, must_change_password = $2 WHERE id = $3`,
		passwordHash, mustChange, id,
	)
	if err != nil {
		return fmt.Errorf("update identity password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("identity not found: %s", id)
	}
	return nil
}
