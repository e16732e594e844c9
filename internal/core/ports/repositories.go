package ports

//go:generate mockgen -source=repositories.go -destination=mocks/mock_repositories.go -package=mocks

import (
	"context"
	"time"

	"course-admin-gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// WebhookConfigRepository defines persistence for webhook configs.
type WebhookConfigRepository interface {
	Create(ctx context.Context, cfg *domain.WebhookConfig) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.WebhookConfig, error)
	// GetByName matches case-insensitively.
	GetByName(ctx context.Context, name string) (*domain.WebhookConfig, error)
	List(ctx context.Context) ([]domain.WebhookConfig, error)
	ListActiveByEvent(ctx context.Context, eventType string) ([]domain.WebhookConfig, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.WebhookConfig, error)
	Update(ctx context.Context, cfg *domain.WebhookConfig) error
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}

// WebhookLogFilter holds filter + pagination for listing webhook logs.
type WebhookLogFilter struct {
	WebhookConfigID *uuid.UUID
	EventType       *string
	Page            int
	PageSize        int
}

// WebhookLogRepository defines persistence for the append-only webhook log.
type WebhookLogRepository interface {
	Create(ctx context.Context, log *domain.WebhookLog) error
	List(ctx context.Context, filter WebhookLogFilter) ([]domain.WebhookLog, int64, error)
	DeleteByIDs(ctx context.Context, ids []uuid.UUID) (int64, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// EnrollmentRepository defines persistence for enrollments.
// Methods accepting pgx.Tx run inside the reconciler's transaction.
type EnrollmentRepository interface {
	// LockPair takes a transaction-scoped advisory lock on (user, course).
	LockPair(ctx context.Context, tx pgx.Tx, userID, courseID uuid.UUID) error
	// FindByUserCourse prefers a non-canceled row, then the most recent one.
	FindByUserCourse(ctx context.Context, tx pgx.Tx, userID, courseID uuid.UUID) (*domain.Enrollment, error)
	Create(ctx context.Context, tx pgx.Tx, e *domain.Enrollment) error
	Update(ctx context.Context, tx pgx.Tx, e *domain.Enrollment) error
	// CancelByReference returns nil when no row carries the reference.
	CancelByReference(ctx context.Context, reference string) (*domain.Enrollment, error)
	ListByCourse(ctx context.Context, courseID uuid.UUID, page, pageSize int) ([]domain.Enrollment, int64, error)
}

// ProfileRepository defines persistence for profiles.
type ProfileRepository interface {
	Create(ctx context.Context, tx pgx.Tx, p *domain.Profile) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Profile, error)
	GetByEmail(ctx context.Context, email string) (*domain.Profile, error)
}

// IdentityRepository defines persistence for login credentials.
type IdentityRepository interface {
	Create(ctx context.Context, tx pgx.Tx, identity *domain.Identity) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Identity, error)
	GetByEmail(ctx context.Context, email string) (*domain.Identity, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string, mustChange bool) error
}

// ProductMappingRepository defines persistence for partner product mappings.
type ProductMappingRepository interface {
	Create(ctx context.Context, mapping *domain.ProductMapping) error
	GetByExternalID(ctx context.Context, externalProductID string) (*domain.ProductMapping, error)
	List(ctx context.Context) ([]domain.ProductMapping, error)
}

// CourseRepository defines persistence for courses.
type CourseRepository interface {
	Create(ctx context.Context, c *domain.Course) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Course, error)
	List(ctx context.Context, page, pageSize int) ([]domain.Course, int64, error)
	Update(ctx context.Context, c *domain.Course) error
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}

// TopicRepository defines persistence for the topic forest.
// Mutations of order indices run inside a transaction holding the
// sibling-group lock.
type TopicRepository interface {
	Create(ctx context.Context, tx pgx.Tx, t *domain.Topic) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Topic, error)
	ListByCourse(ctx context.Context, courseID uuid.UUID) ([]domain.Topic, error)
	UpdateContent(ctx context.Context, t *domain.Topic) error
	// IsDescendant reports whether nodeID sits somewhere below ancestorID.
	IsDescendant(ctx context.Context, ancestorID, nodeID uuid.UUID) (bool, error)

	LockGroup(ctx context.Context, tx pgx.Tx, group domain.SiblingGroup) error
	// MaxOrderIndex returns 0 for an empty group.
	MaxOrderIndex(ctx context.Context, tx pgx.Tx, group domain.SiblingGroup) (int, error)
	ListSiblingIDs(ctx context.Context, tx pgx.Tx, group domain.SiblingGroup) ([]uuid.UUID, error)
	SetOrderIndex(ctx context.Context, tx pgx.Tx, id uuid.UUID, orderIndex int) error
	Move(ctx context.Context, tx pgx.Tx, id uuid.UUID, parentID *uuid.UUID, level, orderIndex int) error
	// ShiftDescendantLevels adds delta to the level of every topic below rootID.
	ShiftDescendantLevels(ctx context.Context, tx pgx.Tx, rootID uuid.UUID, delta int) error
	CountChildren(ctx context.Context, tx pgx.Tx, id uuid.UUID) (int, error)
	Delete(ctx context.Context, tx pgx.Tx, id uuid.UUID) error
}

// QuestionRepository covers the question rows that hang off topics.
type QuestionRepository interface {
	DeleteByTopic(ctx context.Context, tx pgx.Tx, topicID uuid.UUID) (int64, error)
}

// APIKeyRepository defines persistence for API keys.
type APIKeyRepository interface {
	Create(ctx context.Context, key *domain.APIKey) error
	GetByHash(ctx context.Context, keyHash string) (*domain.APIKey, error)
	List(ctx context.Context) ([]domain.APIKey, error)
	// Revoke deactivates the key and returns it, or nil when it does not exist.
	Revoke(ctx context.Context, id uuid.UUID) (*domain.APIKey, error)
	TouchLastUsed(ctx context.Context, id uuid.UUID, at time.Time) error
}

// APILogRepository persists gateway access log rows.
type APILogRepository interface {
	Create(ctx context.Context, entry *domain.APILog) error
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
