package postgres

import (
	"context"
	"errors"
	"fmt"

	"course-admin-gateway/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// ProductMappingRepo implements ports.ProductMappingRepository.
type ProductMappingRepo struct {
	pool Pool
}

// NewProductMappingRepo creates a new ProductMappingRepo.
func NewProductMappingRepo(pool Pool) *ProductMappingRepo {
	return &ProductMappingRepo{pool: pool}
}

// Create inserts a mapping.
func (r *ProductMappingRepo) Create(ctx context.Context, mapping *domain.ProductMapping) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO kwify_product_mappings (id, external_product_id, course_id, created_at) VALUES ($1, $2, $3, $4)`,
		mapping.ID, mapping.ExternalProductID, mapping.CourseID, mapping.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert product mapping: %w", err)
	}
	return nil
}

// GetByExternalID resolves a partner product id.
func (r *ProductMappingRepo) GetByExternalID(ctx context.Context, externalProductID string) (*domain.ProductMapping, error) {
	m := &domain.ProductMapping{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, external_product_id, course_id, created_at FROM kwify_product_mappings WHERE external_product_id = $1`,
		externalProductID,
	).Scan(&m.ID, &m.ExternalProductID, &m.CourseID, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product mapping: %w", err)
	}
	return m, nil
}

// List returns all mappings.
func (r *ProductMappingRepo) List(ctx context.Context) ([]domain.ProductMapping, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, external_product_id, course_id, created_at FROM kwify_product_mappings ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list product mappings: %w", err)
	}
	defer rows.Close()

	out := []domain.ProductMapping{}
	for rows.Next() {
		var m domain.ProductMapping
		if err := rows.Scan(&m.ID, &m.ExternalProductID, &m.CourseID, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan product mapping row: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
