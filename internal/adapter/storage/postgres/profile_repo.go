package postgres

import (
	"context"
	"errors"
	"fmt"

	"course-admin-gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ProfileRepo implements ports.ProfileRepository.
type ProfileRepo struct {
	pool Pool
}

// NewProfileRepo creates a new ProfileRepo.
func NewProfileRepo(pool Pool) *ProfileRepo {
	return &ProfileRepo{pool: pool}
}

// Create inserts a profile inside tx.
func (r *ProfileRepo) Create(ctx context.Context, tx pgx.Tx, p *domain.Profile) error {
	query := `INSERT INTO profiles (id, name, email, is_admin, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := tx.Exec(ctx, query, p.ID, p.Name, p.Email, p.IsAdmin, p.Role, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert profile: %w", err)
	}
	return nil
}

// GetByID fetches a profile by id.
func (r *ProfileRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Profile, error) {
	query := `SELECT id, name, email, is_admin, role, created_at, updated_at FROM profiles WHERE id = $1`

	p := &domain.Profile{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.Name, &p.Email, &p.IsAdmin, &p.Role, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get profile by id: %w", err)
	}
	return p, nil
}

// GetByEmail fetches a profile by email, ignoring case.
func (r *ProfileRepo) GetByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	query := `SELECT id, name, email, is_admin, role, created_at, updated_at FROM profiles WHERE lower(email) = lower($1)`

	p := &domain.Profile{}
	err := r.pool.QueryRow(ctx, query, email).Scan(
		&p.ID, &p.Name, &p.Email, &p.IsAdmin, &p.Role, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get profile by email: %w", err)
	}
	return p, nil
}
