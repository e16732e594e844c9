package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"course-admin-gateway/internal/core/domain"
	"course-admin-gateway/internal/core/ports"
	"course-admin-gateway/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type webhookAdminTestDeps struct {
	svc         ports.WebhookAdminService
	configRepo  *mocks.MockWebhookConfigRepository
	logRepo     *mocks.MockWebhookLogRepository
	mappingRepo *mocks.MockProductMappingRepository
	courseRepo  *mocks.MockCourseRepository
}

func setupWebhookAdmin(t *testing.T) *webhookAdminTestDeps {
	ctrl := gomock.NewController(t)
	d := &webhookAdminTestDeps{
		configRepo:  mocks.NewMockWebhookConfigRepository(ctrl),
		logRepo:     mocks.NewMockWebhookLogRepository(ctrl),
		mappingRepo: mocks.NewMockProductMappingRepository(ctrl),
		courseRepo:  mocks.NewMockCourseRepository(ctrl),
	}
	d.svc = NewWebhookAdminService(d.configRepo, d.logRepo, d.mappingRepo, d.courseRepo, 3, 30*time.Second)
	return d
}

func TestWebhookAdmin_DefaultConfig(t *testing.T) {
	d := setupWebhookAdmin(t)

	cfg := d.svc.DefaultConfig()
	assert.True(t, cfg.Active)
	assert.Equal(t, 3, cfg.RetryCount)
	assert.Equal(t, 30, cfg.TimeoutSeconds)
	assert.Equal(t, uuid.Nil, cfg.ID)
}

func TestWebhookAdmin_CreateConfig_DefaultTimeout(t *testing.T) {
	d := setupWebhookAdmin(t)
	ctx := context.Background()

	d.configRepo.EXPECT().Create(ctx, gomock.Any()).Return(nil)

	cfg, err := d.svc.CreateConfig(ctx, &domain.WebhookConfig{
		Name:       " crm ",
		URL:        "https://crm.example.com/hooks",
		Active:     true,
		Events:     []string{domain.EventEnrollmentCreated},
		RetryCount: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, "crm", cfg.Name)
	assert.Equal(t, 2, cfg.RetryCount)
	assert.Equal(t, 30, cfg.TimeoutSeconds)
	assert.NotEqual(t, uuid.Nil, cfg.ID)
}

func TestWebhookAdmin_CreateConfig_ZeroRetriesKept(t *testing.T) {
	d := setupWebhookAdmin(t)
	ctx := context.Background()

	d.configRepo.EXPECT().Create(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, cfg *domain.WebhookConfig) error {
			assert.Equal(t, 0, cfg.RetryCount)
			return nil
		})

	cfg, err := d.svc.CreateConfig(ctx, &domain.WebhookConfig{Name: "crm", RetryCount: 0, TimeoutSeconds: 5})
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.RetryCount)
	assert.Equal(t, 5, cfg.TimeoutSeconds)
}

func TestWebhookAdmin_UpdateConfig_ZeroRetries(t *testing.T) {
	d := setupWebhookAdmin(t)
	ctx := context.Background()
	existing := &domain.WebhookConfig{ID: uuid.New(), Name: "crm", RetryCount: 3, TimeoutSeconds: 30}

	d.configRepo.EXPECT().GetByID(ctx, existing.ID).Return(existing, nil)
	d.configRepo.EXPECT().Update(ctx, gomock.Any()).Return(nil)

	updated, err := d.svc.UpdateConfig(ctx, &domain.WebhookConfig{ID: existing.ID, Name: "crm", RetryCount: 0, TimeoutSeconds: 30})
	require.NoError(t, err)
	assert.Equal(t, 0, updated.RetryCount)
}

func TestWebhookAdmin_CreateConfig_Validation(t *testing.T) {
	d := setupWebhookAdmin(t)
	ctx := context.Background()

	cases := map[string]*domain.WebhookConfig{
		"no name":       {URL: "https://x.example.com"},
		"relative url":  {Name: "a", URL: "/hooks"},
		"ftp url":       {Name: "a", URL: "ftp://x.example.com"},
		"retry too big": {Name: "a", RetryCount: 11},
		"bad timeout":   {Name: "a", TimeoutSeconds: 301},
		"empty event":   {Name: "a", Events: []string{" "}},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := d.svc.CreateConfig(ctx, cfg)
			assertAppCode(t, err, "VAL_001")
		})
	}
}

func TestWebhookAdmin_CreateConfig_DuplicateName(t *testing.T) {
	d := setupWebhookAdmin(t)
	d.configRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(&pgconn.PgError{Code: "23505"})

	_, err := d.svc.CreateConfig(context.Background(), &domain.WebhookConfig{Name: "kwify"})
	assertAppCode(t, err, "VAL_001")
}

func TestWebhookAdmin_UpdateConfig_KeepsCreatedAt(t *testing.T) {
	d := setupWebhookAdmin(t)
	ctx := context.Background()
	created := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	existing := &domain.WebhookConfig{ID: uuid.New(), Name: "crm", TimeoutSeconds: 30, CreatedAt: created}

	d.configRepo.EXPECT().GetByID(ctx, existing.ID).Return(existing, nil)
	d.configRepo.EXPECT().Update(ctx, gomock.Any()).Return(nil)

	updated, err := d.svc.UpdateConfig(ctx, &domain.WebhookConfig{ID: existing.ID, Name: "crm2", TimeoutSeconds: 10})
	require.NoError(t, err)
	assert.Equal(t, created, updated.CreatedAt)
	assert.Equal(t, "crm2", updated.Name)
}

func TestWebhookAdmin_UpdateConfig_NotFound(t *testing.T) {
	d := setupWebhookAdmin(t)
	d.configRepo.EXPECT().GetByID(gomock.Any(), gomock.Any()).Return(nil, nil)

	_, err := d.svc.UpdateConfig(context.Background(), &domain.WebhookConfig{ID: uuid.New(), Name: "x", TimeoutSeconds: 5})
	assertAppCode(t, err, "NF_001")
}

func TestWebhookAdmin_DeleteConfig_NotFound(t *testing.T) {
	d := setupWebhookAdmin(t)
	d.configRepo.EXPECT().Delete(gomock.Any(), gomock.Any()).Return(false, nil)

	assertAppCode(t, d.svc.DeleteConfig(context.Background(), uuid.New()), "NF_001")
}

func TestWebhookAdmin_ListLogs_NormalizesPaging(t *testing.T) {
	d := setupWebhookAdmin(t)
	ctx := context.Background()

	d.logRepo.EXPECT().List(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, f ports.WebhookLogFilter) ([]domain.WebhookLog, int64, error) {
			assert.Equal(t, 1, f.Page)
			assert.Equal(t, MaxPageSize, f.PageSize)
			return []domain.WebhookLog{{ID: uuid.New()}}, 1, nil
		})

	logs, total, err := d.svc.ListLogs(ctx, ports.WebhookLogFilter{Page: 0, PageSize: 1000})
	require.NoError(t, err)
	assert.Len(t, logs, 1)
	assert.Equal(t, int64(1), total)
}

func TestWebhookAdmin_DeleteLogs(t *testing.T) {
	d := setupWebhookAdmin(t)
	ctx := context.Background()
	ids := []uuid.UUID{uuid.New(), uuid.New()}
	before := time.Now()

	d.logRepo.EXPECT().DeleteByIDs(ctx, ids).Return(int64(2), nil)
	n, err := d.svc.DeleteLogs(ctx, ids, &before)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	d.logRepo.EXPECT().DeleteBefore(ctx, before).Return(int64(7), nil)
	n, err = d.svc.DeleteLogs(ctx, nil, &before)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)

	_, err = d.svc.DeleteLogs(ctx, nil, nil)
	assertAppCode(t, err, "VAL_001")
}

func TestWebhookAdmin_DeleteLogs_RepoError(t *testing.T) {
	d := setupWebhookAdmin(t)
	d.logRepo.EXPECT().DeleteByIDs(gomock.Any(), gomock.Any()).Return(int64(0), errors.New("db"))

	_, err := d.svc.DeleteLogs(context.Background(), []uuid.UUID{uuid.New()}, nil)
	assertAppCode(t, err, "SYS_000")
}

func TestWebhookAdmin_CreateProductMapping(t *testing.T) {
	d := setupWebhookAdmin(t)
	ctx := context.Background()
	courseID := uuid.New()

	d.courseRepo.EXPECT().GetByID(ctx, courseID).Return(&domain.Course{ID: courseID}, nil)
	d.mappingRepo.EXPECT().Create(ctx, gomock.Any()).Return(nil)

	m, err := d.svc.CreateProductMapping(ctx, &domain.ProductMapping{ExternalProductID: " prod-9 ", CourseID: courseID})
	require.NoError(t, err)
	assert.Equal(t, "prod-9", m.ExternalProductID)
	assert.NotEqual(t, uuid.Nil, m.ID)
}

func TestWebhookAdmin_CreateProductMapping_UnknownCourse(t *testing.T) {
	d := setupWebhookAdmin(t)
	d.courseRepo.EXPECT().GetByID(gomock.Any(), gomock.Any()).Return(nil, nil)

	_, err := d.svc.CreateProductMapping(context.Background(), &domain.ProductMapping{ExternalProductID: "p", CourseID: uuid.New()})
	assertAppCode(t, err, "NF_001")
}
