package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Authentication (SEC) ----

func ErrMissingSignature() *AppError {
	return New("SEC_001", "Missing webhook signature", http.StatusUnauthorized)
}

func ErrInvalidSignature() *AppError {
	return New("SEC_002", "Invalid webhook signature", http.StatusUnauthorized)
}

func ErrMissingAPIKey() *AppError {
	return New("SEC_003", "API key required", http.StatusUnauthorized)
}

func ErrInvalidAPIKey() *AppError {
	return New("SEC_004", "Invalid API key", http.StatusUnauthorized)
}

func ErrExpiredAPIKey() *AppError {
	return New("SEC_005", "API key expired", http.StatusUnauthorized)
}

func ErrInvalidToken() *AppError {
	return New("SEC_006", "Invalid or expired token", http.StatusUnauthorized)
}

func ErrInvalidCredentials() *AppError {
	return New("SEC_007", "Invalid credentials", http.StatusUnauthorized)
}

// ---- Authorization (PERM) ----

func ErrInsufficientPermission(perm string) *AppError {
	return New("PERM_001", fmt.Sprintf("Missing permission: %s", perm), http.StatusForbidden)
}

func ErrAdminRequired() *AppError {
	return New("PERM_002", "Admin privileges required", http.StatusForbidden)
}

// ---- Validation (VAL) ----

// Validation returns a generic 400 error with the given message.
func Validation(message string) *AppError {
	return New("VAL_001", message, http.StatusBadRequest)
}

func ErrMalformedPayload(err error) *AppError {
	return Wrap("VAL_002", "Malformed JSON payload", http.StatusBadRequest, err)
}

func ErrEmailExists() *AppError {
	return New("VAL_003", "A user with this email already exists", http.StatusConflict)
}

// ---- Not found (NF) ----

func ErrNotFound(entity string) *AppError {
	return New("NF_001", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

// ---- Topic hierarchy (TOPIC) ----

func ErrTopicHasChildren() *AppError {
	return New("TOPIC_001", "Topic has child topics and cannot be deleted", http.StatusConflict)
}

func ErrInvalidParent(reason string) *AppError {
	return New("TOPIC_002", fmt.Sprintf("Invalid parent topic: %s", reason), http.StatusConflict)
}

func ErrReorderMismatch() *AppError {
	return New("TOPIC_003", "Reorder list must contain exactly the sibling topics", http.StatusBadRequest)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

func ErrDatabaseError(err error) *AppError {
	return Wrap("SYS_001", "Internal database error", http.StatusInternalServerError, err)
}

// InternalError wraps an internal error as a SYS_000 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_000", "Internal server error", http.StatusInternalServerError, err)
}
