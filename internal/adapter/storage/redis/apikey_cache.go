package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"course-admin-gateway/internal/core/domain"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// APIKeyCache implements ports.APIKeyCache using Redis.
// Entries are keyed by the SHA-256 hash of the raw key, never the key itself.
type APIKeyCache struct {
	client *goredis.Client
	prefix string
}

// NewAPIKeyCache creates a new Redis-backed API key cache.
func NewAPIKeyCache(client *goredis.Client) *APIKeyCache {
	return &APIKeyCache{
		client: client,
		prefix: "apikey:",
	}
}

// cachedAPIKey is the stored form. domain.APIKey hides the hash and
// permissions from JSON, so they are carried explicitly here.
type cachedAPIKey struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	KeyHash     string     `json:"key_hash"`
	KeyPrefix   string     `json:"key_prefix"`
	Permissions []string   `json:"permissions"`
	RateLimit   int        `json:"rate_limit"`
	Active      bool       `json:"active"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Get returns the cached key for keyHash, or nil on a miss.
func (c *APIKeyCache) Get(ctx context.Context, keyHash string) (*domain.APIKey, error) {
	val, err := c.client.Get(ctx, c.prefix+keyHash).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis api key get: %w", err)
	}

	var ck cachedAPIKey
	if err := json.Unmarshal(val, &ck); err != nil {
		return nil, fmt.Errorf("decode cached api key: %w", err)
	}
	perms, err := domain.ParsePermissionSet(ck.Permissions)
	if err != nil {
		return nil, fmt.Errorf("decode cached api key: %w", err)
	}

	return &domain.APIKey{
		ID:          ck.ID,
		Name:        ck.Name,
		KeyHash:     ck.KeyHash,
		KeyPrefix:   ck.KeyPrefix,
		Permissions: perms,
		RateLimit:   ck.RateLimit,
		Active:      ck.Active,
		ExpiresAt:   ck.ExpiresAt,
		CreatedAt:   ck.CreatedAt,
	}, nil
}

// Set stores key under its hash with TTL.
func (c *APIKeyCache) Set(ctx context.Context, key *domain.APIKey, ttl time.Duration) error {
	val, err := json.Marshal(cachedAPIKey{
		ID:          key.ID,
		Name:        key.Name,
		KeyHash:     key.KeyHash,
		KeyPrefix:   key.KeyPrefix,
		Permissions: key.Permissions.Strings(),
		RateLimit:   key.RateLimit,
		Active:      key.Active,
		ExpiresAt:   key.ExpiresAt,
		CreatedAt:   key.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("encode api key: %w", err)
	}
	if err := c.client.Set(ctx, c.prefix+key.KeyHash, val, ttl).Err(); err != nil {
		return fmt.Errorf("redis api key set: %w", err)
	}
	return nil
}

// Delete evicts the entry for keyHash.
func (c *APIKeyCache) Delete(ctx context.Context, keyHash string) error {
	if err := c.client.Del(ctx, c.prefix+keyHash).Err(); err != nil {
		return fmt.Errorf("redis api key del: %w", err)
	}
	return nil
}
