package service

import (
	"context"
	"time"

	"course-admin-gateway/internal/core/domain"
	"course-admin-gateway/internal/core/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type accessLogService struct {
	repo ports.APILogRepository
	log  zerolog.Logger
}

// NewAccessLogService creates a new access log service.
// If repo is nil, entries are only written to the logger.
func NewAccessLogService(repo ports.APILogRepository, log zerolog.Logger) ports.AccessLogService {
	return &accessLogService{repo: repo, log: log}
}

// Record persists an access log row asynchronously (fire-and-forget).
func (s *accessLogService) Record(_ context.Context, entry *domain.APILog) {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	go func() {
		evt := s.log.Debug().
			Str("method", entry.Method).
			Str("endpoint", entry.Endpoint).
			Int("status", entry.StatusCode).
			Int64("duration_ms", entry.DurationMS)
		if entry.APIKeyID != nil {
			evt = evt.Str("api_key_id", entry.APIKeyID.String())
		}
		evt.Msg("api access")

		if s.repo != nil {
			if err := s.repo.Create(context.Background(), entry); err != nil {
				s.log.Warn().Err(err).Str("endpoint", entry.Endpoint).Msg("failed to persist api access log")
			}
		}
	}()
}
