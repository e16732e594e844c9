package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"course-admin-gateway/internal/core/domain"
	"course-admin-gateway/internal/core/ports"
	"course-admin-gateway/internal/monitoring"
	"course-admin-gateway/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Outbound delivery headers.
const (
	HeaderWebhookEvent     = "X-Webhook-Event"
	HeaderWebhookSignature = "X-Webhook-Signature"
)

const (
	maxParallelDeliveries = 8
	maxResponseDrain      = 64 << 10
)

// HTTPClient interface for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// SenderServiceImpl implements ports.SenderService.
type SenderServiceImpl struct {
	configRepo     ports.WebhookConfigRepository
	logRepo        ports.WebhookLogRepository
	sigSvc         ports.SignatureService
	httpClient     HTTPClient
	defaultTimeout time.Duration
	sleep          Sleeper
	metrics        *monitoring.Metrics
	log            zerolog.Logger
}

// NewSenderService creates a new SenderServiceImpl.
func NewSenderService(
	configRepo ports.WebhookConfigRepository,
	logRepo ports.WebhookLogRepository,
	sigSvc ports.SignatureService,
	httpClient HTTPClient,
	defaultTimeout time.Duration,
	metrics *monitoring.Metrics,
	log zerolog.Logger,
) *SenderServiceImpl {
	if defaultTimeout <= 0 {
		defaultTimeout = 30 * time.Second
	}
	return &SenderServiceImpl{
		configRepo:     configRepo,
		logRepo:        logRepo,
		sigSvc:         sigSvc,
		httpClient:     httpClient,
		defaultTimeout: defaultTimeout,
		sleep:          sleepContext,
		metrics:        metrics,
		log:            log,
	}
}

// WithSleeper replaces the backoff wait. Used by tests.
func (s *SenderServiceImpl) WithSleeper(fn Sleeper) *SenderServiceImpl {
	s.sleep = fn
	return s
}

// Send delivers one event to every target and reports each outcome.
// A failing target never stops delivery to the others.
func (s *SenderServiceImpl) Send(ctx context.Context, req ports.SendRequest) (*ports.SendSummary, error) {
	eventType := strings.TrimSpace(req.EventType)
	if eventType == "" {
		return nil, apperror.Validation("event_type is required")
	}

	targets, err := s.resolveTargets(ctx, eventType, req.ConfigIDs)
	if err != nil {
		return nil, apperror.InternalError(err)
	}

	data := req.Data
	if len(data) == 0 {
		data = json.RawMessage(`{}`)
	}
	body, err := json.Marshal(domain.OutboundEnvelope{
		EventType: eventType,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Data:      data,
	})
	if err != nil {
		return nil, apperror.ErrMalformedPayload(err)
	}

	results := make([]ports.DeliveryResult, len(targets))
	var g errgroup.Group
	g.SetLimit(maxParallelDeliveries)
	for i := range targets {
		cfg := targets[i]
		g.Go(func() error {
			results[i] = s.deliver(ctx, &cfg, eventType, body)
			return nil
		})
	}
	_ = g.Wait()

	summary := &ports.SendSummary{Results: results}
	for _, r := range results {
		if r.Success {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
	}

	s.log.Info().
		Str("event_type", eventType).
		Int("targets", len(targets)).
		Int("succeeded", summary.Succeeded).
		Int("failed", summary.Failed).
		Msg("sender: fan-out complete")

	return summary, nil
}

func (s *SenderServiceImpl) resolveTargets(ctx context.Context, eventType string, ids []uuid.UUID) ([]domain.WebhookConfig, error) {
	if len(ids) == 0 {
		cfgs, err := s.configRepo.ListActiveByEvent(ctx, eventType)
		if err != nil {
			return nil, fmt.Errorf("list subscribed configs: %w", err)
		}
		return cfgs, nil
	}

	cfgs, err := s.configRepo.ListByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list configs by id: %w", err)
	}
	out := cfgs[:0]
	for _, c := range cfgs {
		if c.Active && c.URL != "" {
			out = append(out, c)
		}
	}
	return out, nil
}

// deliver makes 1 + RetryCount attempts, waiting 2^attempt seconds between
// them. Every attempt is logged.
func (s *SenderServiceImpl) deliver(ctx context.Context, cfg *domain.WebhookConfig, eventType string, body []byte) ports.DeliveryResult {
	result := ports.DeliveryResult{WebhookConfigID: cfg.ID, Name: cfg.Name, URL: cfg.URL}
	logger := s.log.With().Str("webhook", cfg.Name).Str("event_type", eventType).Logger()

	timeout := s.defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	attempts := 1 + max(cfg.RetryCount, 0)

	for attempt := 1; attempt <= attempts; attempt++ {
		status, err := s.post(ctx, cfg, eventType, body, timeout)
		if err == nil && (status < 200 || status > 299) {
			err = fmt.Errorf("unexpected status %d", status)
		}
		result.Attempts = attempt
		result.StatusCode = status
		s.metrics.RecordDeliveryAttempt(err == nil)
		s.logAttempt(ctx, logger, cfg.ID, eventType, body, status, err, attempt)

		if err == nil {
			result.Success = true
			result.Error = ""
			logger.Info().Int("attempt", attempt).Int("status", status).Msg("sender: delivered")
			return result
		}
		result.Error = err.Error()
		logger.Warn().Err(err).Int("attempt", attempt).Msg("sender: delivery failed")

		if attempt < attempts {
			if err := s.sleep(ctx, backoff(attempt)); err != nil {
				result.Error = fmt.Sprintf("%s; aborted: %v", result.Error, err)
				break
			}
		}
	}

	logger.Error().Int("attempts", result.Attempts).Msg("sender: retries exhausted")
	return result
}

func (s *SenderServiceImpl) post(ctx context.Context, cfg *domain.WebhookConfig, eventType string, body []byte, timeout time.Duration) (int, error) {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, cfg.URL, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	for k, v := range cfg.Headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderWebhookEvent, eventType)
	if cfg.HasSecret() {
		req.Header.Set(HeaderWebhookSignature, s.sigSvc.Sign(*cfg.Secret, string(body)))
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseDrain))

	return resp.StatusCode, nil
}

func (s *SenderServiceImpl) logAttempt(ctx context.Context, logger zerolog.Logger, cfgID uuid.UUID, eventType string, body []byte, status int, deliveryErr error, attempt int) {
	entry := &domain.WebhookLog{
		ID:              uuid.New(),
		WebhookConfigID: &cfgID,
		EventType:       eventType,
		Payload:         body,
		RetryAttempt:    attempt,
		CreatedAt:       time.Now().UTC(),
	}
	if status > 0 {
		entry.StatusCode = intPtr(status)
	}
	if deliveryErr != nil {
		msg := deliveryErr.Error()
		entry.ErrorMessage = &msg
	}
	if err := s.logRepo.Create(context.WithoutCancel(ctx), entry); err != nil {
		logger.Warn().Err(err).Int("attempt", attempt).Msg("sender: failed to persist attempt log")
	}
}

// backoff returns the wait after the given 1-based attempt: 2s, 4s, 8s...
func backoff(attempt int) time.Duration {
	return time.Duration(1<<attempt) * time.Second
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
