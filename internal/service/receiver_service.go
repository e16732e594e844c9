package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"course-admin-gateway/internal/core/domain"
	"course-admin-gateway/internal/core/ports"
	"course-admin-gateway/internal/monitoring"
	"course-admin-gateway/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ReceiverServiceImpl implements ports.ReceiverService.
type ReceiverServiceImpl struct {
	configRepo  ports.WebhookConfigRepository
	logRepo     ports.WebhookLogRepository
	sigSvc      ports.SignatureService
	reconciler  ports.Reconciler
	partnerName string
	metrics     *monitoring.Metrics
	log         zerolog.Logger
}

// NewReceiverService creates a new ReceiverServiceImpl.
func NewReceiverService(
	configRepo ports.WebhookConfigRepository,
	logRepo ports.WebhookLogRepository,
	sigSvc ports.SignatureService,
	reconciler ports.Reconciler,
	partnerName string,
	metrics *monitoring.Metrics,
	log zerolog.Logger,
) *ReceiverServiceImpl {
	return &ReceiverServiceImpl{
		configRepo:  configRepo,
		logRepo:     logRepo,
		sigSvc:      sigSvc,
		reconciler:  reconciler,
		partnerName: partnerName,
		metrics:     metrics,
		log:         log,
	}
}

// Receive verifies, logs and dispatches one inbound delivery.
func (s *ReceiverServiceImpl) Receive(ctx context.Context, req ports.ReceiveRequest) (*ports.ReceiveResult, error) {
	var evt domain.InboundEvent
	if err := json.Unmarshal(req.RawBody, &evt); err != nil {
		s.metrics.RecordWebhookReceived("unknown", "malformed")
		return nil, apperror.ErrMalformedPayload(err)
	}
	evt.EventType = strings.TrimSpace(evt.EventType)
	if evt.EventType == "" {
		s.metrics.RecordWebhookReceived("unknown", "malformed")
		return nil, apperror.Validation("event_type is required")
	}

	class := domain.ClassifySource(domain.SourceSignals{
		PartnerName:         s.partnerName,
		DeclaredSource:      evt.Source,
		SourceHeader:        req.Source,
		HasPartnerSigHeader: req.PartnerSignature,
		EventType:           evt.EventType,
	})

	logger := s.log.With().
		Str("event_type", evt.EventType).
		Str("source", class.Source).
		Str("kind", class.Kind.String()).
		Str("signal", string(class.Signal)).
		Logger()

	cfg, err := s.configRepo.GetByName(ctx, class.Source)
	if err != nil {
		s.metrics.RecordWebhookReceived(class.Source, "error")
		return nil, apperror.InternalError(fmt.Errorf("lookup webhook config: %w", err))
	}

	if cfg != nil && cfg.HasSecret() {
		if req.Signature == "" {
			logger.Warn().Msg("receiver: missing signature")
			s.metrics.RecordWebhookReceived(class.Source, "missing_signature")
			return nil, apperror.ErrMissingSignature()
		}
		if !s.sigSvc.Verify(*cfg.Secret, string(req.RawBody), req.Signature) {
			logger.Warn().Msg("receiver: signature mismatch")
			s.metrics.RecordWebhookReceived(class.Source, "invalid_signature")
			return nil, apperror.ErrInvalidSignature()
		}
	}

	var cfgID *uuid.UUID
	if cfg != nil {
		cfgID = &cfg.ID
	}

	// The receipt row is written before dispatch and survives a failed dispatch.
	s.writeLog(ctx, logger, &domain.WebhookLog{
		ID:              uuid.New(),
		WebhookConfigID: cfgID,
		EventType:       evt.EventType,
		Payload:         req.RawBody,
		StatusCode:      intPtr(http.StatusOK),
		RetryAttempt:    0,
		CreatedAt:       time.Now().UTC(),
	})

	if err := s.dispatch(ctx, class, evt); err != nil {
		logger.Error().Err(err).Msg("receiver: dispatch failed")
		msg := err.Error()
		s.writeLog(ctx, logger, &domain.WebhookLog{
			ID:              uuid.New(),
			WebhookConfigID: cfgID,
			EventType:       evt.EventType,
			Payload:         req.RawBody,
			StatusCode:      intPtr(http.StatusInternalServerError),
			ErrorMessage:    &msg,
			RetryAttempt:    0,
			CreatedAt:       time.Now().UTC(),
		})
		s.metrics.RecordWebhookReceived(class.Source, "failed")

		var appErr *apperror.AppError
		if errors.As(err, &appErr) && appErr.HTTPStatus < http.StatusInternalServerError {
			return nil, appErr
		}
		return nil, apperror.InternalError(fmt.Errorf("dispatch %s: %w", evt.EventType, err))
	}

	s.metrics.RecordWebhookReceived(class.Source, "ok")
	logger.Info().Msg("receiver: event processed")

	return &ports.ReceiveResult{
		EventType:      evt.EventType,
		Source:         class.Source,
		Classification: class,
	}, nil
}

func (s *ReceiverServiceImpl) dispatch(ctx context.Context, class domain.SourceClassification, evt domain.InboundEvent) error {
	if class.IsPartner() {
		return s.reconciler.HandlePartnerEvent(ctx, evt.EventType, evt.Data)
	}
	return s.reconciler.HandleGenericEvent(ctx, evt.EventType, evt.Data)
}

// writeLog is best-effort: a failed insert is reported but never blocks processing.
func (s *ReceiverServiceImpl) writeLog(ctx context.Context, logger zerolog.Logger, entry *domain.WebhookLog) {
	if err := s.logRepo.Create(ctx, entry); err != nil {
		logger.Warn().Err(err).Msg("receiver: failed to persist webhook log")
	}
}

func intPtr(v int) *int { return &v }
