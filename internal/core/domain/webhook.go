package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Inbound partner event types.
const (
	EventSaleCompleted   = "sale.completed"
	EventSaleApproved    = "sale.approved"
	EventPaymentApproved = "payment.approved"
	EventSaleRefunded    = "sale.refunded"
	EventPaymentRefunded = "payment.refunded"
	EventSaleChargeback  = "sale.chargeback"
)

// Generic inbound event types.
const (
	EventProfileCreated = "profile.created"
	EventUserCreated    = "user.created"
)

// Internal event types fanned out by the sender.
const (
	EventEnrollmentCreated  = "enrollment.created"
	EventEnrollmentUpdated  = "enrollment.updated"
	EventEnrollmentCanceled = "enrollment.canceled"
)

// WebhookConfig is one registered integration: an outbound endpoint and/or
// the secret used to verify inbound deliveries from a source of that name.
type WebhookConfig struct {
	ID             uuid.UUID         `json:"id"`
	Name           string            `json:"name"`
	URL            string            `json:"url"`
	Secret         *string           `json:"-"`
	Active         bool              `json:"active"`
	Events         []string          `json:"events"`
	Headers        map[string]string `json:"headers,omitempty"`
	RetryCount     int               `json:"retry_count"`
	TimeoutSeconds int               `json:"timeout_seconds"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// HasSecret reports whether deliveries must carry a signature.
func (c *WebhookConfig) HasSecret() bool {
	return c.Secret != nil && *c.Secret != ""
}

// Subscribes reports whether the config listens to eventType.
// A "*" entry subscribes to everything.
func (c *WebhookConfig) Subscribes(eventType string) bool {
	for _, e := range c.Events {
		if e == eventType || e == "*" {
			return true
		}
	}
	return false
}

// WebhookLog is an append-only record of one inbound or outbound attempt.
type WebhookLog struct {
	ID              uuid.UUID       `json:"id"`
	WebhookConfigID *uuid.UUID      `json:"webhook_config_id,omitempty"`
	EventType       string          `json:"event_type"`
	Payload         json.RawMessage `json:"payload"`
	StatusCode      *int            `json:"status_code,omitempty"`
	ErrorMessage    *string         `json:"error_message,omitempty"`
	RetryAttempt    int             `json:"retry_attempt"`
	CreatedAt       time.Time       `json:"created_at"`
}

// InboundEvent is the body accepted by the receiver.
type InboundEvent struct {
	EventType string          `json:"event_type"`
	Data      json.RawMessage `json:"data"`
	Source    string          `json:"source,omitempty"`
}

// OutboundEnvelope is the canonical body POSTed to subscribers.
type OutboundEnvelope struct {
	EventType string          `json:"event_type"`
	Timestamp string          `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}
