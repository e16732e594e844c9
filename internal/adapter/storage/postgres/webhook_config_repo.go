package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"course-admin-gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const webhookConfigColumns = `id, name, url, secret, active, events, headers, retry_count, timeout_seconds, created_at, updated_at`

// WebhookConfigRepo implements ports.WebhookConfigRepository.
type WebhookConfigRepo struct {
	pool Pool
}

// NewWebhookConfigRepo creates a new WebhookConfigRepo.
func NewWebhookConfigRepo(pool Pool) *WebhookConfigRepo {
	return &WebhookConfigRepo{pool: pool}
}

// Create inserts a webhook config.
func (r *WebhookConfigRepo) Create(ctx context.Context, c *domain.WebhookConfig) error {
	query := `INSERT INTO webhook_configs (` + webhookConfigColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.pool.Exec(ctx, query,
		c.ID, c.Name, c.URL, c.Secret, c.Active, c.Events, headersOrEmpty(c.Headers),
		c.RetryCount, c.TimeoutSeconds, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert webhook config: %w", err)
	}
	return nil
}

// GetByID fetches a config by id.
func (r *WebhookConfigRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.WebhookConfig, error) {
	query := `SELECT ` + webhookConfigColumns + ` FROM webhook_configs WHERE id = $1`
	return r.getOne(ctx, "get webhook config by id", query, id)
}

// GetByName fetches a config by name, ignoring case.
func (r *WebhookConfigRepo) GetByName(ctx context.Context, name string) (*domain.WebhookConfig, error) {
	query := `SELECT ` + webhookConfigColumns + ` FROM webhook_configs
		WHERE lower(name) = lower($1) ORDER BY created_at LIMIT 1`
	return r.getOne(ctx, "get webhook config by name", query, name)
}

func (r *WebhookConfigRepo) getOne(ctx context.Context, op, query string, arg any) (*domain.WebhookConfig, error) {
	c, err := scanWebhookConfig(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return c, nil
}

// List returns every config, newest first.
func (r *WebhookConfigRepo) List(ctx context.Context) ([]domain.WebhookConfig, error) {
	query := `SELECT ` + webhookConfigColumns + ` FROM webhook_configs ORDER BY created_at DESC`
	return r.list(ctx, "list webhook configs", query)
}

// ListActiveByEvent returns active configs subscribed to eventType.
func (r *WebhookConfigRepo) ListActiveByEvent(ctx context.Context, eventType string) ([]domain.WebhookConfig, error) {
	query := `SELECT ` + webhookConfigColumns + ` FROM webhook_configs
		WHERE active = true AND url <> '' AND ($1 = ANY(events) OR '*' = ANY(events))
		ORDER BY created_at`
	return r.list(ctx, "list webhook configs by event", query, eventType)
}

// ListByIDs returns the configs with the given ids, active or not.
func (r *WebhookConfigRepo) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.WebhookConfig, error) {
	query := `SELECT ` + webhookConfigColumns + ` FROM webhook_configs WHERE id = ANY($1) ORDER BY created_at`
	return r.list(ctx, "list webhook configs by ids", query, ids)
}

func (r *WebhookConfigRepo) list(ctx context.Context, op, query string, args ...any) ([]domain.WebhookConfig, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	configs := []domain.WebhookConfig{}
	for rows.Next() {
		c, err := scanWebhookConfig(rows)
		if err != nil {
			return nil, fmt.Errorf("scan webhook config row: %w", err)
		}
		configs = append(configs, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate webhook config rows: %w", err)
	}
	return configs, nil
}

// Update overwrites the mutable fields of a config.
func (r *WebhookConfigRepo) Update(ctx context.Context, c *domain.WebhookConfig) error {
	c.UpdatedAt = time.Now().UTC()
	query := `UPDATE webhook_configs
		SET name = $1, url = $2, secret = $3, active = $4, events = $5, headers = $6,
			retry_count = $7, timeout_seconds = $8, updated_at = $9
		WHERE id = $10`

	tag, err := r.pool.Exec(ctx, query,
		c.Name, c.URL, c.Secret, c.Active, c.Events, headersOrEmpty(c.Headers),
		c.RetryCount, c.TimeoutSeconds, c.UpdatedAt, c.ID,
	)
	if err != nil {
		return fmt.Errorf("update webhook config: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("webhook config not found: %s", c.ID)
	}
	return nil
}

// Delete removes a config. It reports whether a row was removed.
func (r *WebhookConfigRepo) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM webhook_configs WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete webhook config: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func scanWebhookConfig(row pgx.Row) (*domain.WebhookConfig, error) {
	c := &domain.WebhookConfig{}
	err := row.Scan(
		&c.ID, &c.Name, &c.URL, &c.Secret, &c.Active, &c.Events, &c.Headers,
		&c.RetryCount, &c.TimeoutSeconds, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func headersOrEmpty(h map[string]string) map[string]string {
	if h == nil {
		return map[string]string{}
	}
	return h
}
