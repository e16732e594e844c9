package postgres

import (
	"context"
	"fmt"

	"course-admin-gateway/internal/core/domain"
)

// APILogRepo implements ports.APILogRepository.
type APILogRepo struct {
	pool Pool
}

// NewAPILogRepo creates a new APILogRepo.
func NewAPILogRepo(pool Pool) *APILogRepo {
	return &APILogRepo{pool: pool}
}

// Create appends an access log row.
func (r *APILogRepo) Create(ctx context.Context, l *domain.APILog) error {
	query := `INSERT INTO api_logs (id, api_key_id, endpoint, method, status_code, duration_ms, ip_address, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.pool.Exec(ctx, query,
		l.ID, l.APIKeyID, l.Endpoint, l.Method, l.StatusCode,
		l.DurationMS, l.IPAddress, l.UserAgent, l.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert api log: %w", err)
	}
	return nil
}
