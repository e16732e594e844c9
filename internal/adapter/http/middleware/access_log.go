package middleware

import (
	"time"

	"course-admin-gateway/internal/core/domain"
	"course-admin-gateway/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AccessLog records one api_logs row per gateway request, including the
// ones rejected by APIKeyAuth or RequirePermission. Register it before them.
func AccessLog(svc ports.AccessLogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		var keyID *uuid.UUID
		if key := CurrentAPIKey(c); key != nil {
			id := key.ID
			keyID = &id
		}

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = c.Request.URL.Path
		}

		svc.Record(c.Request.Context(), &domain.APILog{
			ID:         uuid.New(),
			APIKeyID:   keyID,
			Endpoint:   endpoint,
			Method:     c.Request.Method,
			StatusCode: c.Writer.Status(),
			DurationMS: time.Since(start).Milliseconds(),
			IPAddress:  c.ClientIP(),
			UserAgent:  c.Request.UserAgent(),
			CreatedAt:  time.Now().UTC(),
		})
	}
}
