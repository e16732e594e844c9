package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"course-admin-gateway/internal/core/domain"
	"course-admin-gateway/internal/core/ports"

	"github.com/google/uuid"
)

// WebhookLogRepo implements ports.WebhookLogRepository.
type WebhookLogRepo struct {
	pool Pool
}

// NewWebhookLogRepo creates a new WebhookLogRepo.
func NewWebhookLogRepo(pool Pool) *WebhookLogRepo {
	return &WebhookLogRepo{pool: pool}
}

// Create appends a log row.
func (r *WebhookLogRepo) Create(ctx context.Context, l *domain.WebhookLog) error {
	query := `INSERT INTO webhook_logs (id, webhook_config_id, event_type, payload, status_code, error_message, retry_attempt, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.pool.Exec(ctx, query,
		l.ID, l.WebhookConfigID, l.EventType, payloadOrNull(l.Payload),
		l.StatusCode, l.ErrorMessage, l.RetryAttempt, l.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert webhook log: %w", err)
	}
	return nil
}

// List fetches logs with filtering and pagination, newest first.
func (r *WebhookLogRepo) List(ctx context.Context, f ports.WebhookLogFilter) ([]domain.WebhookLog, int64, error) {
	var conditions []string
	var args []any
	argIdx := 1

	if f.WebhookConfigID != nil {
		conditions = append(conditions, fmt.Sprintf("webhook_config_id = $%d", argIdx))
		args = append(args, *f.WebhookConfigID)
		argIdx++
	}
	if f.EventType != nil {
		conditions = append(conditions, fmt.Sprintf("event_type = $%d", argIdx))
		args = append(args, *f.EventType)
		argIdx++
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM webhook_logs %s", where)
	var total int64
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count webhook logs: %w", err)
	}

	offset := (f.Page - 1) * f.PageSize
	dataQuery := fmt.Sprintf(`SELECT id, webhook_config_id, event_type, payload, status_code, error_message, retry_attempt, created_at
		FROM webhook_logs %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, where, argIdx, argIdx+1)
	args = append(args, f.PageSize, offset)

	rows, err := r.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list webhook logs: %w", err)
	}
	defer rows.Close()

	logs := []domain.WebhookLog{}
	for rows.Next() {
		l := domain.WebhookLog{}
		if err := rows.Scan(
			&l.ID, &l.WebhookConfigID, &l.EventType, &l.Payload,
			&l.StatusCode, &l.ErrorMessage, &l.RetryAttempt, &l.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan webhook log row: %w", err)
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate webhook log rows: %w", err)
	}
	return logs, total, nil
}

// DeleteByIDs removes the given log rows.
func (r *WebhookLogRepo) DeleteByIDs(ctx context.Context, ids []uuid.UUID) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM webhook_logs WHERE id = ANY($1)`, ids)
	if err != nil {
		return 0, fmt.Errorf("delete webhook logs by id: %w", err)
	}
	return tag.RowsAffected(), nil
}

// DeleteBefore removes every row created before the cutoff.
func (r *WebhookLogRepo) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM webhook_logs WHERE created_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("delete webhook logs before: %w", err)
	}
	return tag.RowsAffected(), nil
}

// payloadOrNull keeps an empty body from being written as invalid jsonb.
func payloadOrNull(p []byte) any {
	if len(p) == 0 {
		return nil
	}
	return string(p)
}
