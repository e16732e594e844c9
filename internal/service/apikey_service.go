package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"course-admin-gateway/internal/core/domain"
	"course-admin-gateway/internal/core/ports"
	"course-admin-gateway/internal/monitoring"
	"course-admin-gateway/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// APIKeyPrefix starts every issued key.
	APIKeyPrefix = "ela_"
	// DefaultKeyRateLimit applies when a key is created without a limit.
	DefaultKeyRateLimit = 60

	apiKeyRandomBytes = 32
	apiKeyDisplayLen  = 12
)

// APIKeyServiceImpl implements ports.APIKeyService.
type APIKeyServiceImpl struct {
	repo     ports.APIKeyRepository
	cache    ports.APIKeyCache
	cacheTTL time.Duration
	metrics  *monitoring.Metrics
	log      zerolog.Logger
	now      func() time.Time
}

// NewAPIKeyService creates a new APIKeyServiceImpl. cache may be nil.
func NewAPIKeyService(
	repo ports.APIKeyRepository,
	cache ports.APIKeyCache,
	cacheTTL time.Duration,
	metrics *monitoring.Metrics,
	log zerolog.Logger,
) *APIKeyServiceImpl {
	return &APIKeyServiceImpl{
		repo:     repo,
		cache:    cache,
		cacheTTL: cacheTTL,
		metrics:  metrics,
		log:      log,
		now:      time.Now,
	}
}

// HashAPIKey returns hex(SHA-256(raw)), the stored form of a key.
func HashAPIKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// Authenticate resolves rawKey to an active, unexpired key.
func (s *APIKeyServiceImpl) Authenticate(ctx context.Context, rawKey string) (*domain.APIKey, error) {
	rawKey = strings.TrimSpace(rawKey)
	if rawKey == "" {
		return nil, apperror.ErrMissingAPIKey()
	}
	hash := HashAPIKey(rawKey)

	key, err := s.lookup(ctx, hash)
	if err != nil {
		return nil, err
	}
	if key == nil || !key.Active {
		return nil, apperror.ErrInvalidAPIKey()
	}
	now := s.now().UTC()
	if key.IsExpired(now) {
		return nil, apperror.ErrExpiredAPIKey()
	}

	if err := s.repo.TouchLastUsed(ctx, key.ID, now); err != nil {
		s.log.Warn().Err(err).Str("key_prefix", key.KeyPrefix).Msg("failed to update api key last_used_at")
	}
	return key, nil
}

func (s *APIKeyServiceImpl) lookup(ctx context.Context, hash string) (*domain.APIKey, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, hash)
		if err != nil {
			s.log.Warn().Err(err).Msg("api key cache read failed")
		} else if cached != nil {
			s.metrics.RecordKeyCache(true)
			return cached, nil
		}
		s.metrics.RecordKeyCache(false)
	}

	key, err := s.repo.GetByHash(ctx, hash)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get api key: %w", err))
	}
	if key != nil && s.cache != nil {
		if err := s.cache.Set(ctx, key, s.cacheTTL); err != nil {
			s.log.Warn().Err(err).Msg("api key cache write failed")
		}
	}
	return key, nil
}

// Create issues a new key. The raw value is returned once and never stored.
func (s *APIKeyServiceImpl) Create(ctx context.Context, req ports.CreateAPIKeyRequest) (*ports.CreatedAPIKey, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperror.Validation("name is required")
	}
	if req.Permissions == 0 {
		return nil, apperror.Validation("at least one permission is required")
	}
	if req.RateLimit < 0 {
		return nil, apperror.Validation("rate_limit must not be negative")
	}
	rateLimit := req.RateLimit
	if rateLimit == 0 {
		rateLimit = DefaultKeyRateLimit
	}
	now := s.now().UTC()
	if req.ExpiresAt != nil && !req.ExpiresAt.After(now) {
		return nil, apperror.Validation("expires_at must be in the future")
	}

	raw, err := generateKey(APIKeyPrefix, apiKeyRandomBytes)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("generate api key: %w", err))
	}

	key := &domain.APIKey{
		ID:          uuid.New(),
		Name:        name,
		KeyHash:     HashAPIKey(raw),
		KeyPrefix:   raw[:apiKeyDisplayLen],
		Permissions: req.Permissions,
		RateLimit:   rateLimit,
		Active:      true,
		ExpiresAt:   req.ExpiresAt,
		CreatedAt:   now,
	}
	if err := s.repo.Create(ctx, key); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create api key: %w", err))
	}

	s.log.Info().Str("key_id", key.ID.String()).Str("key_prefix", key.KeyPrefix).Msg("api key created")
	return &ports.CreatedAPIKey{Key: key, RawKey: raw}, nil
}

func (s *APIKeyServiceImpl) List(ctx context.Context) ([]domain.APIKey, error) {
	keys, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list api keys: %w", err))
	}
	return keys, nil
}

// Revoke deactivates the key and evicts it from the cache.
func (s *APIKeyServiceImpl) Revoke(ctx context.Context, id uuid.UUID) error {
	key, err := s.repo.Revoke(ctx, id)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("revoke api key: %w", err))
	}
	if key == nil {
		return apperror.ErrNotFound("API key")
	}
	if s.cache != nil {
		if err := s.cache.Delete(ctx, key.KeyHash); err != nil {
			s.log.Warn().Err(err).Str("key_id", id.String()).Msg("failed to evict revoked api key from cache")
		}
	}
	s.log.Info().Str("key_id", id.String()).Msg("api key revoked")
	return nil
}

// generateKey returns prefix followed by length random bytes in hex.
func generateKey(prefix string, length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return prefix + hex.EncodeToString(b), nil
}
