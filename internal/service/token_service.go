package service

import (
	"errors"
	"fmt"
	"time"

	"course-admin-gateway/internal/core/ports"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// sessionClaims is the JWT body of an admin panel session.
type sessionClaims struct {
	Admin bool `json:"adm"`
	jwt.RegisteredClaims
}

// JWTTokenService implements ports.TokenService with HS256 session tokens.
type JWTTokenService struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// NewJWTTokenService creates a token service. ttl may be negative in tests to
// mint already expired tokens.
func NewJWTTokenService(secret string, ttl time.Duration, issuer string) *JWTTokenService {
	return &JWTTokenService{
		secret: []byte(secret),
		ttl:    ttl,
		issuer: issuer,
		now:    time.Now,
	}
}

// Generate signs a session for profileID. Each token carries a fresh jti.
func (s *JWTTokenService) Generate(profileID uuid.UUID, isAdmin bool) (string, time.Time, error) {
	issued := s.now().UTC()
	expires := issued.Add(s.ttl)

	claims := sessionClaims{
		Admin: isAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   profileID.String(),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session token: %w", err)
	}
	return signed, expires, nil
}

// Validate verifies signature, issuer and expiry and returns the session
// subject.
func (s *JWTTokenService) Validate(raw string) (*ports.TokenClaims, error) {
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(raw, &claims,
		func(*jwt.Token) (interface{}, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("validate session token: %w", err)
	}
	if claims.Subject == "" {
		return nil, errors.New("session token has no subject")
	}

	profileID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("session subject %q: %w", claims.Subject, err)
	}

	return &ports.TokenClaims{UserID: profileID, IsAdmin: claims.Admin}, nil
}
