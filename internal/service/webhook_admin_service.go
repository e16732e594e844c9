package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"course-admin-gateway/internal/core/domain"
	"course-admin-gateway/internal/core/ports"
	"course-admin-gateway/pkg/apperror"

	"github.com/google/uuid"
)

const (
	maxRetryCount     = 10
	maxTimeoutSeconds = 300
)

// webhookAdminService implements ports.WebhookAdminService.
type webhookAdminService struct {
	configRepo     ports.WebhookConfigRepository
	logRepo        ports.WebhookLogRepository
	mappingRepo    ports.ProductMappingRepository
	courseRepo     ports.CourseRepository
	defaultRetry   int
	defaultTimeout time.Duration
}

// NewWebhookAdminService creates a new webhook administration service.
func NewWebhookAdminService(
	configRepo ports.WebhookConfigRepository,
	logRepo ports.WebhookLogRepository,
	mappingRepo ports.ProductMappingRepository,
	courseRepo ports.CourseRepository,
	defaultRetry int,
	defaultTimeout time.Duration,
) ports.WebhookAdminService {
	return &webhookAdminService{
		configRepo:     configRepo,
		logRepo:        logRepo,
		mappingRepo:    mappingRepo,
		courseRepo:     courseRepo,
		defaultRetry:   defaultRetry,
		defaultTimeout: defaultTimeout,
	}
}

func (s *webhookAdminService) DefaultConfig() *domain.WebhookConfig {
	return &domain.WebhookConfig{
		Active:         true,
		RetryCount:     s.defaultRetry,
		TimeoutSeconds: int(s.defaultTimeout / time.Second),
	}
}

// CreateConfig registers a webhook config. A zero timeout takes the
// configured default; a zero retry count is kept and means a single attempt.
func (s *webhookAdminService) CreateConfig(ctx context.Context, cfg *domain.WebhookConfig) (*domain.WebhookConfig, error) {
	if cfg.TimeoutSeconds == 0 {
		cfg.TimeoutSeconds = int(s.defaultTimeout / time.Second)
	}
	if err := validateWebhookConfig(cfg); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	cfg.ID = uuid.New()
	cfg.CreatedAt = now
	cfg.UpdatedAt = now

	if err := s.configRepo.Create(ctx, cfg); err != nil {
		if isUniqueViolation(err) {
			return nil, apperror.Validation("a webhook config with this name already exists")
		}
		return nil, apperror.InternalError(fmt.Errorf("create webhook config: %w", err))
	}
	return cfg, nil
}

func (s *webhookAdminService) GetConfig(ctx context.Context, id uuid.UUID) (*domain.WebhookConfig, error) {
	cfg, err := s.configRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get webhook config: %w", err))
	}
	if cfg == nil {
		return nil, apperror.ErrNotFound("Webhook config")
	}
	return cfg, nil
}

func (s *webhookAdminService) ListConfigs(ctx context.Context) ([]domain.WebhookConfig, error) {
	cfgs, err := s.configRepo.List(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list webhook configs: %w", err))
	}
	return cfgs, nil
}

// UpdateConfig replaces the mutable fields of an existing config.
func (s *webhookAdminService) UpdateConfig(ctx context.Context, cfg *domain.WebhookConfig) (*domain.WebhookConfig, error) {
	existing, err := s.GetConfig(ctx, cfg.ID)
	if err != nil {
		return nil, err
	}
	if err := validateWebhookConfig(cfg); err != nil {
		return nil, err
	}
	cfg.CreatedAt = existing.CreatedAt
	cfg.UpdatedAt = time.Now().UTC()

	if err := s.configRepo.Update(ctx, cfg); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update webhook config: %w", err))
	}
	return cfg, nil
}

func (s *webhookAdminService) DeleteConfig(ctx context.Context, id uuid.UUID) error {
	ok, err := s.configRepo.Delete(ctx, id)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("delete webhook config: %w", err))
	}
	if !ok {
		return apperror.ErrNotFound("Webhook config")
	}
	return nil
}

// ListLogs returns a page of webhook logs, newest first.
func (s *webhookAdminService) ListLogs(ctx context.Context, filter ports.WebhookLogFilter) ([]domain.WebhookLog, int64, error) {
	filter.Page, filter.PageSize = NormalizePage(filter.Page, filter.PageSize)
	logs, total, err := s.logRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, apperror.InternalError(fmt.Errorf("list webhook logs: %w", err))
	}
	return logs, total, nil
}

// DeleteLogs removes logs by id, or everything older than before. ids win
// when both are given.
func (s *webhookAdminService) DeleteLogs(ctx context.Context, ids []uuid.UUID, before *time.Time) (int64, error) {
	var (
		n   int64
		err error
	)
	switch {
	case len(ids) > 0:
		n, err = s.logRepo.DeleteByIDs(ctx, ids)
	case before != nil:
		n, err = s.logRepo.DeleteBefore(ctx, *before)
	default:
		return 0, apperror.Validation("ids or before is required")
	}
	if err != nil {
		return 0, apperror.InternalError(fmt.Errorf("delete webhook logs: %w", err))
	}
	return n, nil
}

func (s *webhookAdminService) CreateProductMapping(ctx context.Context, mapping *domain.ProductMapping) (*domain.ProductMapping, error) {
	mapping.ExternalProductID = strings.TrimSpace(mapping.ExternalProductID)
	if mapping.ExternalProductID == "" {
		return nil, apperror.Validation("external_product_id is required")
	}
	course, err := s.courseRepo.GetByID(ctx, mapping.CourseID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get course: %w", err))
	}
	if course == nil {
		return nil, apperror.ErrNotFound("Course")
	}

	mapping.ID = uuid.New()
	mapping.CreatedAt = time.Now().UTC()
	if err := s.mappingRepo.Create(ctx, mapping); err != nil {
		if isUniqueViolation(err) {
			return nil, apperror.Validation("product is already mapped")
		}
		return nil, apperror.InternalError(fmt.Errorf("create product mapping: %w", err))
	}
	return mapping, nil
}

func (s *webhookAdminService) ListProductMappings(ctx context.Context) ([]domain.ProductMapping, error) {
	mappings, err := s.mappingRepo.List(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list product mappings: %w", err))
	}
	return mappings, nil
}

func validateWebhookConfig(cfg *domain.WebhookConfig) error {
	cfg.Name = strings.TrimSpace(cfg.Name)
	if cfg.Name == "" {
		return apperror.Validation("name is required")
	}
	if cfg.URL != "" {
		u, err := url.Parse(cfg.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return apperror.Validation("url must be an absolute http(s) URL")
		}
	}
	if cfg.RetryCount < 0 || cfg.RetryCount > maxRetryCount {
		return apperror.Validation(fmt.Sprintf("retry_count must be between 0 and %d", maxRetryCount))
	}
	if cfg.TimeoutSeconds < 1 || cfg.TimeoutSeconds > maxTimeoutSeconds {
		return apperror.Validation(fmt.Sprintf("timeout_seconds must be between 1 and %d", maxTimeoutSeconds))
	}
	for _, e := range cfg.Events {
		if strings.TrimSpace(e) == "" {
			return apperror.Validation("events must not contain empty entries")
		}
	}
	return nil
}
