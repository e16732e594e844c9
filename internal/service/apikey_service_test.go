package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"course-admin-gateway/internal/core/domain"
	"course-admin-gateway/internal/core/ports"
	"course-admin-gateway/internal/core/ports/mocks"
	"course-admin-gateway/internal/monitoring"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type apiKeyTestDeps struct {
	svc     *APIKeyServiceImpl
	repo    *mocks.MockAPIKeyRepository
	cache   *mocks.MockAPIKeyCache
	metrics *monitoring.Metrics
}

func setupAPIKeyService(t *testing.T) *apiKeyTestDeps {
	ctrl := gomock.NewController(t)
	d := &apiKeyTestDeps{
		repo:    mocks.NewMockAPIKeyRepository(ctrl),
		cache:   mocks.NewMockAPIKeyCache(ctrl),
		metrics: monitoring.New(),
	}
	d.svc = NewAPIKeyService(d.repo, d.cache, 30*time.Second, d.metrics, newTestLogger())
	return d
}

func activeKey() *domain.APIKey {
	return &domain.APIKey{
		ID:          uuid.New(),
		Name:        "lms-sync",
		KeyPrefix:   "ela_0123abcd",
		Permissions: domain.NewPermissionSet(domain.PermCoursesRead),
		RateLimit:   60,
		Active:      true,
	}
}

func TestHashAPIKey(t *testing.T) {
	// sha256("abc")
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", HashAPIKey("abc"))
}

func TestAPIKeyService_Authenticate_Missing(t *testing.T) {
	d := setupAPIKeyService(t)
	_, err := d.svc.Authenticate(context.Background(), "  ")
	assertAppCode(t, err, "SEC_003")
}

func TestAPIKeyService_Authenticate_CacheHit(t *testing.T) {
	d := setupAPIKeyService(t)
	ctx := context.Background()
	key := activeKey()

	d.cache.EXPECT().Get(ctx, HashAPIKey("ela_raw")).Return(key, nil)
	d.repo.EXPECT().TouchLastUsed(ctx, key.ID, gomock.Any()).Return(nil)

	got, err := d.svc.Authenticate(ctx, "ela_raw")
	require.NoError(t, err)
	assert.Equal(t, key.ID, got.ID)
	assert.Equal(t, 1.0, testutil.ToFloat64(d.metrics.APIKeyCache.WithLabelValues("hit")))
}

func TestAPIKeyService_Authenticate_CacheMissFillsCache(t *testing.T) {
	d := setupAPIKeyService(t)
	ctx := context.Background()
	key := activeKey()
	hash := HashAPIKey("ela_raw")

	d.cache.EXPECT().Get(ctx, hash).Return(nil, nil)
	d.repo.EXPECT().GetByHash(ctx, hash).Return(key, nil)
	d.cache.EXPECT().Set(ctx, key, 30*time.Second).Return(nil)
	d.repo.EXPECT().TouchLastUsed(ctx, key.ID, gomock.Any()).Return(nil)

	_, err := d.svc.Authenticate(ctx, "ela_raw")
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(d.metrics.APIKeyCache.WithLabelValues("miss")))
}

func TestAPIKeyService_Authenticate_CacheErrorFallsBack(t *testing.T) {
	d := setupAPIKeyService(t)
	ctx := context.Background()
	key := activeKey()

	d.cache.EXPECT().Get(ctx, gomock.Any()).Return(nil, errors.New("redis down"))
	d.repo.EXPECT().GetByHash(ctx, gomock.Any()).Return(key, nil)
	d.cache.EXPECT().Set(ctx, key, gomock.Any()).Return(errors.New("redis down"))
	d.repo.EXPECT().TouchLastUsed(ctx, key.ID, gomock.Any()).Return(errors.New("db"))

	got, err := d.svc.Authenticate(ctx, "ela_raw")
	require.NoError(t, err)
	assert.Equal(t, key.ID, got.ID)
}

func TestAPIKeyService_Authenticate_Unknown(t *testing.T) {
	d := setupAPIKeyService(t)
	ctx := context.Background()

	d.cache.EXPECT().Get(ctx, gomock.Any()).Return(nil, nil)
	d.repo.EXPECT().GetByHash(ctx, gomock.Any()).Return(nil, nil)

	_, err := d.svc.Authenticate(ctx, "ela_nope")
	assertAppCode(t, err, "SEC_004")
}

func TestAPIKeyService_Authenticate_Inactive(t *testing.T) {
	d := setupAPIKeyService(t)
	ctx := context.Background()
	key := activeKey()
	key.Active = false

	d.cache.EXPECT().Get(ctx, gomock.Any()).Return(key, nil)

	_, err := d.svc.Authenticate(ctx, "ela_raw")
	assertAppCode(t, err, "SEC_004")
}

func TestAPIKeyService_Authenticate_Expired(t *testing.T) {
	d := setupAPIKeyService(t)
	ctx := context.Background()
	key := activeKey()
	past := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	key.ExpiresAt = &past
	d.svc.now = func() time.Time { return past.Add(time.Second) }

	d.cache.EXPECT().Get(ctx, gomock.Any()).Return(key, nil)

	_, err := d.svc.Authenticate(ctx, "ela_raw")
	assertAppCode(t, err, "SEC_005")
}

func TestAPIKeyService_Authenticate_NoCache(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockAPIKeyRepository(ctrl)
	svc := NewAPIKeyService(repo, nil, time.Minute, nil, newTestLogger())
	key := activeKey()

	repo.EXPECT().GetByHash(gomock.Any(), gomock.Any()).Return(key, nil)
	repo.EXPECT().TouchLastUsed(gomock.Any(), key.ID, gomock.Any()).Return(nil)

	_, err := svc.Authenticate(context.Background(), "ela_raw")
	require.NoError(t, err)
}

func TestAPIKeyService_Create(t *testing.T) {
	d := setupAPIKeyService(t)
	ctx := context.Background()

	var stored *domain.APIKey
	d.repo.EXPECT().Create(ctx, gomock.Any()).DoAndReturn(func(_ context.Context, k *domain.APIKey) error {
		stored = k
		return nil
	})

	created, err := d.svc.Create(ctx, ports.CreateAPIKeyRequest{
		Name:        " reporting ",
		Permissions: domain.NewPermissionSet(domain.PermCoursesRead, domain.PermTopicsRead),
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(created.RawKey, APIKeyPrefix))
	assert.Len(t, created.RawKey, len(APIKeyPrefix)+64)
	assert.Equal(t, created.RawKey[:12], stored.KeyPrefix)
	assert.Equal(t, HashAPIKey(created.RawKey), stored.KeyHash)
	assert.NotContains(t, stored.KeyHash, created.RawKey)
	assert.Equal(t, "reporting", stored.Name)
	assert.Equal(t, DefaultKeyRateLimit, stored.RateLimit)
	assert.True(t, stored.Active)
}

func TestAPIKeyService_Create_Validation(t *testing.T) {
	d := setupAPIKeyService(t)
	ctx := context.Background()
	perms := domain.NewPermissionSet(domain.PermCoursesRead)
	past := time.Now().Add(-time.Hour)

	cases := []struct {
		name string
		req  ports.CreateAPIKeyRequest
	}{
		{"no name", ports.CreateAPIKeyRequest{Permissions: perms}},
		{"no permissions", ports.CreateAPIKeyRequest{Name: "k"}},
		{"negative limit", ports.CreateAPIKeyRequest{Name: "k", Permissions: perms, RateLimit: -1}},
		{"expired", ports.CreateAPIKeyRequest{Name: "k", Permissions: perms, ExpiresAt: &past}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := d.svc.Create(ctx, tc.req)
			assertAppCode(t, err, "VAL_001")
		})
	}
}

func TestAPIKeyService_Revoke_EvictsCache(t *testing.T) {
	d := setupAPIKeyService(t)
	ctx := context.Background()
	key := activeKey()
	key.KeyHash = "deadbeef"

	d.repo.EXPECT().Revoke(ctx, key.ID).Return(key, nil)
	d.cache.EXPECT().Delete(ctx, "deadbeef").Return(nil)

	require.NoError(t, d.svc.Revoke(ctx, key.ID))
}

func TestAPIKeyService_Revoke_NotFound(t *testing.T) {
	d := setupAPIKeyService(t)
	d.repo.EXPECT().Revoke(gomock.Any(), gomock.Any()).Return(nil, nil)

	err := d.svc.Revoke(context.Background(), uuid.New())
	assertAppCode(t, err, "NF_001")
}
