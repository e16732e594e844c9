package middleware

import (
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"course-admin-gateway/internal/core/domain"
	"course-admin-gateway/internal/core/ports"
	"course-admin-gateway/internal/monitoring"
	"course-admin-gateway/pkg/apperror"
	"course-admin-gateway/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// HeaderAPIKey carries a gateway key. "Authorization: Bearer <key>" is
	// accepted as well.
	HeaderAPIKey    = "X-API-Key"
	// HeaderRequestID correlates a call across logs and responses.
	HeaderRequestID = "X-Request-ID"

	// Context keys
	CtxUserID  = "user_id"
	CtxIsAdmin = "is_admin"
	CtxAPIKey  = "api_key"
)

// JWTAuth validates admin session tokens.
func JWTAuth(tokenSvc ports.TokenService, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr, ok := bearerToken(c)
		if !ok {
			response.Error(c, apperror.ErrInvalidToken())
			c.Abort()
			return
		}

		claims, err := tokenSvc.Validate(tokenStr)
		if err != nil {
			log.Debug().Err(err).Msg("rejected session token")
			response.Error(c, apperror.ErrInvalidToken())
			c.Abort()
			return
		}

		c.Set(CtxUserID, claims.UserID)
		c.Set(CtxIsAdmin, claims.IsAdmin)
		c.Next()
	}
}

// RequireAdmin must run after JWTAuth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !c.GetBool(CtxIsAdmin) {
			response.Error(c, apperror.ErrAdminRequired())
			c.Abort()
			return
		}
		c.Next()
	}
}

// UserID returns the authenticated session user, if any.
func UserID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(CtxUserID)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

// APIKeyAuth authenticates the caller by API key and stores the key in the
// context for RequirePermission and the rate limiter.
func APIKeyAuth(keySvc ports.APIKeyService, metrics *monitoring.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(HeaderAPIKey)
		if raw == "" {
			raw, _ = bearerToken(c)
		}

		key, err := keySvc.Authenticate(c.Request.Context(), raw)
		if err != nil {
			metrics.RecordGateway("unauthorized")
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(CtxAPIKey, key)
		c.Next()
	}
}

// CurrentAPIKey returns the key stored by APIKeyAuth.
func CurrentAPIKey(c *gin.Context) *domain.APIKey {
	v, ok := c.Get(CtxAPIKey)
	if !ok {
		return nil
	}
	key, _ := v.(*domain.APIKey)
	return key
}

// RequirePermission rejects keys lacking the permission that required
// derives from the request method.
func RequirePermission(required func(method string) domain.Permission, metrics *monitoring.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := CurrentAPIKey(c)
		perm := required(c.Request.Method)
		if key == nil || !key.Permissions.Has(perm) {
			metrics.RecordGateway("forbidden")
			response.Error(c, apperror.ErrInsufficientPermission(perm.String()))
			c.Abort()
			return
		}
		metrics.RecordGateway("ok")
		c.Next()
	}
}

// RequestLogger writes one line per request once the handler chain has
// run. 5xx logs at error, 4xx at warn.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		level := zerolog.InfoLevel
		switch {
		case status >= http.StatusInternalServerError:
			level = zerolog.ErrorLevel
		case status >= http.StatusBadRequest:
			level = zerolog.WarnLevel
		}

		ev := log.WithLevel(level).
			Str("request_id", c.GetString(response.RequestIDKey)).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Int("bytes", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP())
		if route := c.FullPath(); route != "" {
			ev = ev.Str("route", route)
		}
		if len(c.Errors) > 0 {
			ev = ev.Str("errors", c.Errors.String())
		}
		ev.Msg("request")
	}
}

// RequestID reuses an inbound X-Request-ID or mints one, and echoes it back.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(HeaderRequestID))
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set(response.RequestIDKey, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// Recovery turns a handler panic into SYS_000 and logs the stack.
func Recovery(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			log.Error().
				Str("request_id", c.GetString(response.RequestIDKey)).
				Str("route", c.FullPath()).
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("handler panicked")
			if !c.Writer.Written() {
				response.Error(c, apperror.InternalError(nil))
			}
			c.Abort()
		}()
		c.Next()
	}
}

// MaxBodySize caps the request body. Reads past the limit fail, which the
// handlers report as a malformed payload.
func MaxBodySize(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	h := c.GetHeader("Authorization")
	const prefix = "Bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(h[len(prefix):]), true
}
