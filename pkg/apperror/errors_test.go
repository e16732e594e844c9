package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name:     "without wrapped error",
			appErr:   New("TOPIC_001", "Topic has children", http.StatusConflict),
			expected: "[TOPIC_001] Topic has children",
		},
		{
			name:     "with wrapped error",
			appErr:   Wrap("SYS_001", "DB error", http.StatusInternalServerError, fmt.Errorf("connection refused")),
			expected: "[SYS_001] DB error: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.appErr.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	inner := fmt.Errorf("inner error")
	appErr := Wrap("SYS_001", "wrapped", http.StatusInternalServerError, inner)

	assert.True(t, errors.Is(appErr, inner))
	assert.Nil(t, New("VAL_001", "test", http.StatusBadRequest).Unwrap())
}

func TestErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		code       string
		httpStatus int
	}{
		{"MissingSignature", ErrMissingSignature(), "SEC_001", 401},
		{"InvalidSignature", ErrInvalidSignature(), "SEC_002", 401},
		{"MissingAPIKey", ErrMissingAPIKey(), "SEC_003", 401},
		{"InvalidAPIKey", ErrInvalidAPIKey(), "SEC_004", 401},
		{"ExpiredAPIKey", ErrExpiredAPIKey(), "SEC_005", 401},
		{"InvalidToken", ErrInvalidToken(), "SEC_006", 401},
		{"InvalidCredentials", ErrInvalidCredentials(), "SEC_007", 401},
		{"InsufficientPermission", ErrInsufficientPermission("courses:write"), "PERM_001", 403},
		{"AdminRequired", ErrAdminRequired(), "PERM_002", 403},
		{"Validation", Validation("bad"), "VAL_001", 400},
		{"MalformedPayload", ErrMalformedPayload(nil), "VAL_002", 400},
		{"EmailExists", ErrEmailExists(), "VAL_003", 409},
		{"NotFound", ErrNotFound("Course"), "NF_001", 404},
		{"TopicHasChildren", ErrTopicHasChildren(), "TOPIC_001", 409},
		{"InvalidParent", ErrInvalidParent("cycle"), "TOPIC_002", 409},
		{"ReorderMismatch", ErrReorderMismatch(), "TOPIC_003", 400},
		{"RateLimit", ErrRateLimitExceeded(), "RATE_001", 429},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.httpStatus, tt.err.HTTPStatus)
		})
	}
}

func TestSystemErrors(t *testing.T) {
	inner := fmt.Errorf("pg: connection closed")
	dbErr := ErrDatabaseError(inner)
	assert.Equal(t, "SYS_001", dbErr.Code)
	assert.Equal(t, 500, dbErr.HTTPStatus)
	assert.True(t, errors.Is(dbErr, inner))

	internal := InternalError(inner)
	assert.Equal(t, "SYS_000", internal.Code)
	assert.NotContains(t, internal.Message, "pg:")
}

func TestMessagesIncludeSubject(t *testing.T) {
	assert.Contains(t, ErrNotFound("Topic").Message, "Topic")
	assert.Contains(t, ErrInsufficientPermission("topics:write").Message, "topics:write")
}
