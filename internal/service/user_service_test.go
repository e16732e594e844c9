package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"course-admin-gateway/internal/core/domain"
	"course-admin-gateway/internal/core/ports"
	"course-admin-gateway/internal/core/ports/mocks"
	"course-admin-gateway/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type userTestDeps struct {
	svc          *UserServiceImpl
	profileRepo  *mocks.MockProfileRepository
	identityRepo *mocks.MockIdentityRepository
	hashSvc      *mocks.MockHashService
	tokenSvc     *mocks.MockTokenService
	transactor   *mocks.MockDBTransactor
}

func setupUserService(t *testing.T) *userTestDeps {
	ctrl := gomock.NewController(t)
	d := &userTestDeps{
		profileRepo:  mocks.NewMockProfileRepository(ctrl),
		identityRepo: mocks.NewMockIdentityRepository(ctrl),
		hashSvc:      mocks.NewMockHashService(ctrl),
		tokenSvc:     mocks.NewMockTokenService(ctrl),
		transactor:   mocks.NewMockDBTransactor(ctrl),
	}
	d.svc = NewUserService(d.profileRepo, d.identityRepo, d.hashSvc, d.tokenSvc, d.transactor, "Default#2024", newTestLogger())
	return d
}

func assertAppCode(t *testing.T, err error, code string) {
	t.Helper()
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, code, appErr.Code)
}

func TestUserService_CreateUser_Success(t *testing.T) {
	d := setupUserService(t)
	ctx := context.Background()
	tx := &mockTx{}

	d.identityRepo.EXPECT().GetByEmail(ctx, "new@example.com").Return(nil, nil)
	d.hashSvc.EXPECT().Hash("Default#2024").Return("$argon2id$hashed", nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.identityRepo.EXPECT().Create(ctx, tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ any, i *domain.Identity) error {
			assert.True(t, i.MustChangePassword)
			assert.Equal(t, "$argon2id$hashed", i.PasswordHash)
			return nil
		})
	d.profileRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)

	p, err := d.svc.CreateUser(ctx, ports.CreateUserRequest{Email: " New@Example.com ", Role: domain.RoleInstructor})
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", p.Email)
	assert.Equal(t, "new", p.Name)
	assert.Equal(t, domain.RoleInstructor, p.Role)
	assert.False(t, p.IsAdmin)
	assert.True(t, tx.committed)
}

func TestUserService_CreateUser_AdminRoleSetsFlag(t *testing.T) {
	d := setupUserService(t)
	ctx := context.Background()
	tx := &mockTx{}

	d.identityRepo.EXPECT().GetByEmail(ctx, "boss@example.com").Return(nil, nil)
	d.hashSvc.EXPECT().Hash(gomock.Any()).Return("h", nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.identityRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)
	d.profileRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)

	p, err := d.svc.CreateUser(ctx, ports.CreateUserRequest{Email: "boss@example.com", Name: "Boss", Role: domain.RoleAdmin})
	require.NoError(t, err)
	assert.True(t, p.IsAdmin)
	assert.Equal(t, "Boss", p.Name)
}

func TestUserService_CreateUser_EmailExists(t *testing.T) {
	d := setupUserService(t)
	ctx := context.Background()

	d.identityRepo.EXPECT().GetByEmail(ctx, "dup@example.com").Return(&domain.Identity{ID: uuid.New()}, nil)

	_, err := d.svc.CreateUser(ctx, ports.CreateUserRequest{Email: "dup@example.com"})
	assertAppCode(t, err, "VAL_003")
}

func TestUserService_CreateUser_UniqueViolationMapsToConflict(t *testing.T) {
	d := setupUserService(t)
	ctx := context.Background()
	tx := &mockTx{}

	d.identityRepo.EXPECT().GetByEmail(ctx, "race@example.com").Return(nil, nil)
	d.hashSvc.EXPECT().Hash(gomock.Any()).Return("h", nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.identityRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(&pgconn.PgError{Code: "23505"})

	_, err := d.svc.CreateUser(ctx, ports.CreateUserRequest{Email: "race@example.com"})
	assertAppCode(t, err, "VAL_003")
	assert.True(t, tx.rolledBack)
}

func TestUserService_CreateUser_Validation(t *testing.T) {
	d := setupUserService(t)

	_, err := d.svc.CreateUser(context.Background(), ports.CreateUserRequest{Email: ""})
	assertAppCode(t, err, "VAL_001")

	_, err = d.svc.CreateUser(context.Background(), ports.CreateUserRequest{Email: "not-an-email"})
	assertAppCode(t, err, "VAL_001")

	_, err = d.svc.CreateUser(context.Background(), ports.CreateUserRequest{Email: "a@b.co", Role: "owner"})
	assertAppCode(t, err, "VAL_001")
}

func TestUserService_FindOrProvision_Existing(t *testing.T) {
	d := setupUserService(t)
	ctx := context.Background()
	existing := &domain.Profile{ID: uuid.New(), Email: "buyer@example.com"}

	d.profileRepo.EXPECT().GetByEmail(ctx, "buyer@example.com").Return(existing, nil)

	p, created, err := d.svc.FindOrProvision(ctx, "Buyer@example.com", "Buyer")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, existing, p)
}

func TestUserService_FindOrProvision_CreatesWithTemporaryPassword(t *testing.T) {
	d := setupUserService(t)
	ctx := context.Background()
	tx := &mockTx{}

	d.profileRepo.EXPECT().GetByEmail(ctx, "buyer@example.com").Return(nil, nil)
	d.hashSvc.EXPECT().Hash(gomock.Any()).DoAndReturn(func(pw string) (string, error) {
		assert.Len(t, pw, temporaryPasswordLength)
		assert.NotEqual(t, "Default#2024", pw)
		return "h", nil
	})
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.identityRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)
	d.profileRepo.EXPECT().Create(ctx, tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ any, p *domain.Profile) error {
			assert.Equal(t, domain.RoleStudent, p.Role)
			assert.Equal(t, "Buyer", p.Name)
			return nil
		})

	p, created, err := d.svc.FindOrProvision(ctx, "buyer@example.com", "Buyer")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "buyer@example.com", p.Email)
}

func TestUserService_FindOrProvision_ConcurrentProvisionRefetches(t *testing.T) {
	d := setupUserService(t)
	ctx := context.Background()
	tx := &mockTx{}
	winner := &domain.Profile{ID: uuid.New(), Email: "buyer@example.com"}

	gomock.InOrder(
		d.profileRepo.EXPECT().GetByEmail(ctx, "buyer@example.com").Return(nil, nil),
		d.profileRepo.EXPECT().GetByEmail(ctx, "buyer@example.com").Return(winner, nil),
	)
	d.hashSvc.EXPECT().Hash(gomock.Any()).Return("h", nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.identityRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(&pgconn.PgError{Code: "23505"})

	p, created, err := d.svc.FindOrProvision(ctx, "buyer@example.com", "")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, winner, p)
}

func TestUserService_Login_Success(t *testing.T) {
	d := setupUserService(t)
	ctx := context.Background()
	id := uuid.New()
	exp := time.Now().Add(time.Hour)

	d.identityRepo.EXPECT().GetByEmail(ctx, "admin@example.com").Return(&domain.Identity{ID: id, PasswordHash: "h", MustChangePassword: true}, nil)
	d.hashSvc.EXPECT().Verify("secret", "h").Return(true, nil)
	d.profileRepo.EXPECT().GetByID(ctx, id).Return(&domain.Profile{ID: id, IsAdmin: true}, nil)
	d.tokenSvc.EXPECT().Generate(id, true).Return("jwt-token", exp, nil)

	res, err := d.svc.Login(ctx, "Admin@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "jwt-token", res.Token)
	assert.Equal(t, exp, res.ExpiresAt)
	assert.True(t, res.MustChangePassword)
}

func TestUserService_Login_UnknownEmail(t *testing.T) {
	d := setupUserService(t)
	ctx := context.Background()

	d.identityRepo.EXPECT().GetByEmail(ctx, "ghost@example.com").Return(nil, nil)

	_, err := d.svc.Login(ctx, "ghost@example.com", "pw")
	assertAppCode(t, err, "SEC_007")
}

func TestUserService_Login_WrongPassword(t *testing.T) {
	d := setupUserService(t)
	ctx := context.Background()

	d.identityRepo.EXPECT().GetByEmail(ctx, "a@example.com").Return(&domain.Identity{ID: uuid.New(), PasswordHash: "h"}, nil)
	d.hashSvc.EXPECT().Verify("bad", "h").Return(false, nil)

	_, err := d.svc.Login(ctx, "a@example.com", "bad")
	assertAppCode(t, err, "SEC_007")
}

func TestUserService_Login_RepoError(t *testing.T) {
	d := setupUserService(t)
	ctx := context.Background()

	d.identityRepo.EXPECT().GetByEmail(ctx, "a@example.com").Return(nil, errors.New("db down"))

	_, err := d.svc.Login(ctx, "a@example.com", "pw")
	assertAppCode(t, err, "SYS_000")
}

func TestUserService_ChangePassword(t *testing.T) {
	d := setupUserService(t)
	ctx := context.Background()
	id := uuid.New()

	d.identityRepo.EXPECT().GetByID(ctx, id).Return(&domain.Identity{ID: id, PasswordHash: "old-h"}, nil)
	d.hashSvc.EXPECT().Verify("Default#2024", "old-h").Return(true, nil)
	d.hashSvc.EXPECT().Hash("BrandNew#Pass").Return("new-h", nil)
	d.identityRepo.EXPECT().UpdatePassword(ctx, id, "new-h", false).Return(nil)

	require.NoError(t, d.svc.ChangePassword(ctx, id, "Default#2024", "BrandNew#Pass"))
}

func TestUserService_ChangePassword_Rejections(t *testing.T) {
	d := setupUserService(t)
	ctx := context.Background()
	id := uuid.New()

	assertAppCode(t, d.svc.ChangePassword(ctx, id, "old", "short"), "VAL_001")
	assertAppCode(t, d.svc.ChangePassword(ctx, id, "SamePassword", "SamePassword"), "VAL_001")

	d.identityRepo.EXPECT().GetByID(ctx, id).Return(nil, nil)
	assertAppCode(t, d.svc.ChangePassword(ctx, id, "old", "LongEnough1"), "NF_001")

	d.identityRepo.EXPECT().GetByID(ctx, id).Return(&domain.Identity{ID: id, PasswordHash: "h"}, nil)
	d.hashSvc.EXPECT().Verify("wrong", "h").Return(false, nil)
	assertAppCode(t, d.svc.ChangePassword(ctx, id, "wrong", "LongEnough1"), "SEC_007")
}
