package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"course-admin-gateway/internal/core/domain"
	"course-admin-gateway/internal/core/ports"
	"course-admin-gateway/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
)

const (
	temporaryPasswordLength = 20
	minPasswordLength       = 8
	pgUniqueViolation       = "23505"
)

// UserServiceImpl implements ports.UserService.
type UserServiceImpl struct {
	profileRepo     ports.ProfileRepository
	identityRepo    ports.IdentityRepository
	hashSvc         ports.HashService
	tokenSvc        ports.TokenService
	transactor      ports.DBTransactor
	defaultPassword string
	log             zerolog.Logger
}

// NewUserService creates a new UserServiceImpl.
func NewUserService(
	profileRepo ports.ProfileRepository,
	identityRepo ports.IdentityRepository,
	hashSvc ports.HashService,
	tokenSvc ports.TokenService,
	transactor ports.DBTransactor,
	defaultPassword string,
	log zerolog.Logger,
) *UserServiceImpl {
	return &UserServiceImpl{
		profileRepo:     profileRepo,
		identityRepo:    identityRepo,
		hashSvc:         hashSvc,
		tokenSvc:        tokenSvc,
		transactor:      transactor,
		defaultPassword: defaultPassword,
		log:             log,
	}
}

// CreateUser creates an identity with the configured default password and
// its profile. The user must change the password on first login.
func (s *UserServiceImpl) CreateUser(ctx context.Context, req ports.CreateUserRequest) (*domain.Profile, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}
	role := req.Role
	if role == "" {
		role = domain.RoleStudent
	}
	if !role.Valid() {
		return nil, apperror.Validation("role must be one of student, instructor, admin")
	}
	if s.defaultPassword == "" {
		return nil, apperror.InternalError(errors.New("default password not configured"))
	}

	existing, err := s.identityRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("check email: %w", err))
	}
	if existing != nil {
		return nil, apperror.ErrEmailExists()
	}

	profile, err := s.provision(ctx, email, req.Name, role, s.defaultPassword)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperror.ErrEmailExists()
		}
		return nil, apperror.InternalError(err)
	}

	s.log.Info().Str("user_id", profile.ID.String()).Str("role", string(role)).Msg("user created")
	return profile, nil
}

// FindOrProvision returns the profile for email, creating a student account
// with a random temporary password when none exists.
func (s *UserServiceImpl) FindOrProvision(ctx context.Context, email, name string) (*domain.Profile, bool, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, false, err
	}

	profile, err := s.profileRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, false, apperror.InternalError(fmt.Errorf("find profile: %w", err))
	}
	if profile != nil {
		return profile, false, nil
	}

	tempPassword, err := GenerateTemporaryPassword(temporaryPasswordLength)
	if err != nil {
		return nil, false, apperror.InternalError(fmt.Errorf("generate temporary password: %w", err))
	}

	profile, err = s.provision(ctx, email, name, domain.RoleStudent, tempPassword)
	if err != nil {
		// A concurrent delivery provisioned the same buyer first.
		if isUniqueViolation(err) {
			profile, err = s.profileRepo.GetByEmail(ctx, email)
			if err == nil && profile != nil {
				return profile, false, nil
			}
		}
		return nil, false, apperror.InternalError(fmt.Errorf("provision profile: %w", err))
	}

	s.log.Info().Str("user_id", profile.ID.String()).Msg("profile provisioned")
	return profile, true, nil
}

// provision writes the identity and profile rows in one transaction.
func (s *UserServiceImpl) provision(ctx context.Context, email, name string, role domain.Role, password string) (*domain.Profile, error) {
	passwordHash, err := s.hashSvc.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	id := uuid.New()
	identity := &domain.Identity{
		ID:                 id,
		Email:              email,
		PasswordHash:       passwordHash,
		MustChangePassword: true,
		CreatedAt:          now,
	}
	profile := &domain.Profile{
		ID:        id,
		Name:      displayName(name, email),
		Email:     email,
		IsAdmin:   role == domain.RoleAdmin,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.identityRepo.Create(ctx, dbTx, identity); err != nil {
		return nil, fmt.Errorf("create identity: %w", err)
	}
	if err := s.profileRepo.Create(ctx, dbTx, profile); err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return profile, nil
}

// Login validates credentials and returns a session token.
func (s *UserServiceImpl) Login(ctx context.Context, email, password string) (*ports.LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	identity, err := s.identityRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("find identity: %w", err))
	}
	if identity == nil {
		return nil, apperror.ErrInvalidCredentials()
	}

	valid, err := s.hashSvc.Verify(password, identity.PasswordHash)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("verify password: %w", err))
	}
	if !valid {
		return nil, apperror.ErrInvalidCredentials()
	}

	profile, err := s.profileRepo.GetByID(ctx, identity.ID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("find profile: %w", err))
	}
	if profile == nil {
		return nil, apperror.ErrNotFound("Profile")
	}

	token, expiresAt, err := s.tokenSvc.Generate(profile.ID, profile.IsAdmin)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("generate token: %w", err))
	}

	return &ports.LoginResult{
		Token:              token,
		ExpiresAt:          expiresAt,
		MustChangePassword: identity.MustChangePassword,
		Profile:            profile,
	}, nil
}

// ChangePassword replaces the password and clears must_change_password.
func (s *UserServiceImpl) ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error {
	if len(next) < minPasswordLength {
		return apperror.Validation(fmt.Sprintf("new password must be at least %d characters", minPasswordLength))
	}
	if next == current {
		return apperror.Validation("new password must differ from the current one")
	}

	identity, err := s.identityRepo.GetByID(ctx, userID)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("find identity: %w", err))
	}
	if identity == nil {
		return apperror.ErrNotFound("User")
	}

	valid, err := s.hashSvc.Verify(current, identity.PasswordHash)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("verify password: %w", err))
	}
	if !valid {
		return apperror.ErrInvalidCredentials()
	}

	hash, err := s.hashSvc.Hash(next)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("hash password: %w", err))
	}
	if err := s.identityRepo.UpdatePassword(ctx, userID, hash, false); err != nil {
		return apperror.InternalError(fmt.Errorf("update password: %w", err))
	}
	return nil
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", apperror.Validation("email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", apperror.Validation("email is invalid")
	}
	return email, nil
}

// displayName falls back to the local part of the address.
func displayName(name, email string) string {
	if n := strings.TrimSpace(name); n != "" {
		return n
	}
	local, _, _ := strings.Cut(email, "@")
	return local
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
