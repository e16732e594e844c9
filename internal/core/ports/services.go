package ports

//go:generate mockgen -source=services.go -destination=mocks/mock_services.go -package=mocks

import (
	"context"
	"encoding/json"
	"time"

	"course-admin-gateway/internal/core/domain"

	"github.com/google/uuid"
)

// SignatureService handles HMAC-SHA256 signing and verification.
type SignatureService interface {
	Sign(secretKey string, payload string) string
	Verify(secretKey string, payload string, signature string) bool
}

// HashService handles password hashing (Argon2id).
type HashService interface {
	Hash(password string) (string, error)
	Verify(password string, hash string) (bool, error)
}

// TokenService handles JWT token operations for admin sessions.
type TokenService interface {
	Generate(userID uuid.UUID, isAdmin bool) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	UserID  uuid.UUID
	IsAdmin bool
}

// APIKeyCache is the Redis read-through layer in front of api_keys lookups.
type APIKeyCache interface {
	Get(ctx context.Context, keyHash string) (*domain.APIKey, error) // nil on miss
	Set(ctx context.Context, key *domain.APIKey, ttl time.Duration) error
	Delete(ctx context.Context, keyHash string) error
}

// --- Service Ports (Business Logic) ---

// ReceiveRequest is one inbound webhook delivery.
type ReceiveRequest struct {
	RawBody   []byte
	Signature string // first present of the accepted signature headers
	Source    string // x-webhook-source
	// PartnerSignature is set when the partner-specific header was present.
	PartnerSignature bool
}

// ReceiveResult is returned for an accepted delivery.
type ReceiveResult struct {
	EventType      string
	Source         string
	Classification domain.SourceClassification
}

// ReceiverService verifies, logs and dispatches inbound webhooks.
type ReceiverService interface {
	Receive(ctx context.Context, req ReceiveRequest) (*ReceiveResult, error)
}

// Reconciler turns inbound events into enrollment and profile changes.
type Reconciler interface {
	HandlePartnerEvent(ctx context.Context, eventType string, data json.RawMessage) error
	HandleGenericEvent(ctx context.Context, eventType string, data json.RawMessage) error
}

// SendRequest is an outbound fan-out request.
type SendRequest struct {
	EventType string
	Data      json.RawMessage
	// ConfigIDs restricts delivery to these configs when non-empty.
	ConfigIDs []uuid.UUID
}

// DeliveryResult is the outcome of delivering to one target.
type DeliveryResult struct {
	WebhookConfigID uuid.UUID `json:"webhook_config_id"`
	Name            string    `json:"name"`
	URL             string    `json:"url"`
	Success         bool      `json:"success"`
	Attempts        int       `json:"attempts"`
	StatusCode      int       `json:"status_code,omitempty"`
	Error           string    `json:"error,omitempty"`
}

// SendSummary aggregates the per-target results of one fan-out.
type SendSummary struct {
	Results   []DeliveryResult
	Succeeded int
	Failed    int
}

// SenderService fans internal events out to registered endpoints.
type SenderService interface {
	Send(ctx context.Context, req SendRequest) (*SendSummary, error)
}

// EventPublisher queues internal events for asynchronous fan-out.
type EventPublisher interface {
	// Publish returns false when the event was dropped.
	Publish(eventType string, data any) bool
}

// CreateUserRequest holds input for admin user creation.
type CreateUserRequest struct {
	Email string
	Name  string
	Role  domain.Role
}

// LoginResult is returned on successful login.
type LoginResult struct {
	Token              string
	ExpiresAt          time.Time
	MustChangePassword bool
	Profile            *domain.Profile
}

// UserService manages identities and profiles.
type UserService interface {
	CreateUser(ctx context.Context, req CreateUserRequest) (*domain.Profile, error)
	// FindOrProvision returns the profile for email, creating one with a
	// random temporary password when it does not exist.
	FindOrProvision(ctx context.Context, email, name string) (*domain.Profile, bool, error)
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error
}

// CourseService defines course CRUD.
type CourseService interface {
	Create(ctx context.Context, c *domain.Course) (*domain.Course, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Course, error)
	List(ctx context.Context, page, pageSize int) ([]domain.Course, int64, error)
	Update(ctx context.Context, id uuid.UUID, patch domain.CoursePatch) (*domain.Course, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListEnrollments(ctx context.Context, courseID uuid.UUID, page, pageSize int) ([]domain.Enrollment, int64, error)
}

// CreateTopicRequest holds input for topic creation.
type CreateTopicRequest struct {
	CourseID uuid.UUID
	ParentID *uuid.UUID
	Title    string
	Content  string
}

// DuplicateTopicRequest copies a topic under its own parent, or under
// ParentID when MoveParent is set (a nil ParentID then means root).
type DuplicateTopicRequest struct {
	CourseID   uuid.UUID
	TopicID    uuid.UUID
	MoveParent bool
	ParentID   *uuid.UUID
}

// TopicService defines the topic hierarchy operations.
type TopicService interface {
	Create(ctx context.Context, req CreateTopicRequest) (*domain.Topic, error)
	Get(ctx context.Context, courseID, topicID uuid.UUID) (*domain.Topic, error)
	ListByCourse(ctx context.Context, courseID uuid.UUID) ([]domain.Topic, error)
	Update(ctx context.Context, courseID, topicID uuid.UUID, title, content *string) (*domain.Topic, error)
	Reparent(ctx context.Context, courseID, topicID uuid.UUID, newParentID *uuid.UUID) (*domain.Topic, error)
	Reorder(ctx context.Context, courseID uuid.UUID, parentID *uuid.UUID, orderedIDs []uuid.UUID) error
	Duplicate(ctx context.Context, req DuplicateTopicRequest) (*domain.Topic, error)
	Delete(ctx context.Context, courseID, topicID uuid.UUID) error
}

// CreateAPIKeyRequest holds input for API key creation.
type CreateAPIKeyRequest struct {
	Name        string
	Permissions domain.PermissionSet
	RateLimit   int
	ExpiresAt   *time.Time
}

// CreatedAPIKey carries the raw key, shown only once.
type CreatedAPIKey struct {
	Key    *domain.APIKey
	RawKey string
}

// APIKeyService issues and authenticates API keys.
type APIKeyService interface {
	Authenticate(ctx context.Context, rawKey string) (*domain.APIKey, error)
	Create(ctx context.Context, req CreateAPIKeyRequest) (*CreatedAPIKey, error)
	List(ctx context.Context) ([]domain.APIKey, error)
	Revoke(ctx context.Context, id uuid.UUID) error
}

// AccessLogService records gateway access log rows without blocking the caller.
type AccessLogService interface {
	Record(ctx context.Context, entry *domain.APILog)
}

// WebhookAdminService backs the webhook debugging endpoints.
type WebhookAdminService interface {
	// DefaultConfig returns an unsaved config carrying the configured
	// retry count and timeout.
	DefaultConfig() *domain.WebhookConfig
	CreateConfig(ctx context.Context, cfg *domain.WebhookConfig) (*domain.WebhookConfig, error)
	GetConfig(ctx context.Context, id uuid.UUID) (*domain.WebhookConfig, error)
	ListConfigs(ctx context.Context) ([]domain.WebhookConfig, error)
	UpdateConfig(ctx context.Context, cfg *domain.WebhookConfig) (*domain.WebhookConfig, error)
	DeleteConfig(ctx context.Context, id uuid.UUID) error
	ListLogs(ctx context.Context, filter WebhookLogFilter) ([]domain.WebhookLog, int64, error)
	DeleteLogs(ctx context.Context, ids []uuid.UUID, before *time.Time) (int64, error)
	CreateProductMapping(ctx context.Context, mapping *domain.ProductMapping) (*domain.ProductMapping, error)
	ListProductMappings(ctx context.Context) ([]domain.ProductMapping, error)
}
