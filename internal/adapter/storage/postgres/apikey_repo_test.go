package postgres

import (
	"context"
	"testing"
	"time"

	"course-admin-gateway/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func apiKeyColumnNames() []string {
	return []string{"id", "name", "key_hash", "key_prefix", "permissions", "rate_limit", "active", "expires_at", "last_used_at", "created_at"}
}

func newTestAPIKey() *domain.APIKey {
	return &domain.APIKey{
		ID:          uuid.New(),
		Name:        "lms-sync",
		KeyHash:     "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08",
		KeyPrefix:   "ela_1a2b3c4d",
		Permissions: domain.NewPermissionSet(domain.PermCoursesRead),
		RateLimit:   60,
		Active:      true,
		CreatedAt:   time.Now().UTC().Truncate(time.Microsecond),
	}
}

func TestAPIKeyRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAPIKeyRepo(mock)
	k := newTestAPIKey()

	mock.ExpectExec("INSERT INTO api_keys").
		WithArgs(k.ID, k.Name, k.KeyHash, k.KeyPrefix, []string{"courses:read"},
			k.RateLimit, k.Active, k.ExpiresAt, k.LastUsedAt, k.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	assert.NoError(t, repo.Create(context.Background(), k))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAPIKeyRepo_GetByHash(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAPIKeyRepo(mock)
	k := newTestAPIKey()

	mock.ExpectQuery("SELECT .+ FROM api_keys WHERE key_hash").
		WithArgs(k.KeyHash).
		WillReturnRows(pgxmock.NewRows(apiKeyColumnNames()).AddRow(
			k.ID, k.Name, k.KeyHash, k.KeyPrefix, []string{"courses:read", "topics:write"},
			k.RateLimit, k.Active, k.ExpiresAt, k.LastUsedAt, k.CreatedAt,
		))

	got, err := repo.GetByHash(context.Background(), k.KeyHash)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Permissions.Has(domain.PermCoursesRead))
	assert.True(t, got.Permissions.Has(domain.PermTopicsWrite))
	assert.False(t, got.Permissions.Has(domain.PermCoursesWrite))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAPIKeyRepo_GetByHash_UnknownPermission(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAPIKeyRepo(mock)
	k := newTestAPIKey()

	mock.ExpectQuery("SELECT .+ FROM api_keys WHERE key_hash").
		WithArgs(k.KeyHash).
		WillReturnRows(pgxmock.NewRows(apiKeyColumnNames()).AddRow(
			k.ID, k.Name, k.KeyHash, k.KeyPrefix, []string{"courses:*"},
			k.RateLimit, k.Active, k.ExpiresAt, k.LastUsedAt, k.CreatedAt,
		))

	_, err = repo.GetByHash(context.Background(), k.KeyHash)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown permission")
}

func TestAPIKeyRepo_GetByHash_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAPIKeyRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM api_keys WHERE key_hash").
		WithArgs("nope").
		WillReturnError(pgx.ErrNoRows)

	got, err := repo.GetByHash(context.Background(), "nope")
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestAPIKeyRepo_Revoke(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAPIKeyRepo(mock)
	k := newTestAPIKey()

	mock.ExpectQuery("UPDATE api_keys SET active = false WHERE id = \\$1 RETURNING").
		WithArgs(k.ID).
		WillReturnRows(pgxmock.NewRows(apiKeyColumnNames()).AddRow(
			k.ID, k.Name, k.KeyHash, k.KeyPrefix, []string{"courses:read"},
			k.RateLimit, false, k.ExpiresAt, k.LastUsedAt, k.CreatedAt,
		))

	got, err := repo.Revoke(context.Background(), k.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.False(t, got.Active)
	assert.Equal(t, k.KeyHash, got.KeyHash)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAPIKeyRepo_TouchLastUsed(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAPIKeyRepo(mock)
	id := uuid.New()
	at := time.Now().UTC()

	mock.ExpectExec("UPDATE api_keys SET last_used_at").
		WithArgs(at, id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	assert.NoError(t, repo.TouchLastUsed(context.Background(), id, at))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAPILogRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAPILogRepo(mock)
	l := &domain.APILog{
		ID:         uuid.New(),
		Endpoint:   "/api-courses",
		Method:     "GET",
		StatusCode: 401,
		DurationMS: 3,
		IPAddress:  "10.0.0.1",
		UserAgent:  "curl/8.0",
		CreatedAt:  time.Now().UTC(),
	}

	mock.ExpectExec("INSERT INTO api_logs").
		WithArgs(l.ID, l.APIKeyID, l.Endpoint, l.Method, l.StatusCode,
			l.DurationMS, l.IPAddress, l.UserAgent, l.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	assert.NoError(t, repo.Create(context.Background(), l))
	assert.NoError(t, mock.ExpectationsWereMet())
}
