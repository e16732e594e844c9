package response

import (
	"errors"
	"math"
	"net/http"
	"time"

	"course-admin-gateway/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SuccessResponse wraps every admin and gateway payload.
type SuccessResponse struct {
	Data      interface{} `json:"data"`
	RequestID string      `json:"request_id"`
	Timestamp string      `json:"timestamp"`
}

// ErrorResponse carries a stable error_code next to a client-safe message.
type ErrorResponse struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
	Timestamp string `json:"timestamp"`
}

// BareError is the minimal `{ "error": "..." }` body used by the webhook
// endpoints, whose callers expect that shape.
type BareError struct {
	Error string `json:"error"`
}

// Page wraps a paginated list.
type Page struct {
	Items      interface{} `json:"items"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	TotalPages int         `json:"total_pages"`
}

// NewPage builds a Page and computes the page count.
func NewPage(items interface{}, total int64, page, limit int) Page {
	totalPages := 0
	if limit > 0 {
		totalPages = int(math.Ceil(float64(total) / float64(limit)))
	}
	return Page{Items: items, Total: total, Page: page, Limit: limit, TotalPages: totalPages}
}

// OK writes 200 with data in the success envelope.
func OK(c *gin.Context, data interface{}) {
	envelope(c, http.StatusOK, data)
}

// Created writes 201 with data in the success envelope.
func Created(c *gin.Context, data interface{}) {
	envelope(c, http.StatusCreated, data)
}

// NoContent sends an empty 204.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error writes the error envelope. Anything that is not an
// *apperror.AppError is reported as a generic 500.
func Error(c *gin.Context, err error) {
	status, code, message := Classify(err)
	c.JSON(status, ErrorResponse{
		ErrorCode: code,
		Message:   message,
		RequestID: RequestID(c),
		Timestamp: stamp(),
	})
}

// Bare sends `{ "error": message }` with the status derived from err.
func Bare(c *gin.Context, err error) {
	status, _, message := Classify(err)
	c.JSON(status, BareError{Error: message})
}

// Classify resolves the HTTP status, code and client-safe message for err.
func Classify(err error) (int, string, string) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr.HTTPStatus, appErr.Code, appErr.Message
	}
	return http.StatusInternalServerError, "SYS_000", "Internal server error"
}

// RequestIDKey is the gin context key filled by the RequestID middleware.
const RequestIDKey = "request_id"

// RequestID returns the current request id. Handlers mounted without the
// middleware get a fresh one per call.
func RequestID(c *gin.Context) string {
	if id := c.GetString(RequestIDKey); id != "" {
		return id
	}
	return uuid.NewString()
}

func envelope(c *gin.Context, status int, data interface{}) {
	c.JSON(status, SuccessResponse{
		Data:      data,
		RequestID: RequestID(c),
		Timestamp: stamp(),
	})
}

func stamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
