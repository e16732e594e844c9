package dto

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// WebhookReceiveBody is the inbound webhook body. Binding is done manually
// because the raw bytes are needed for signature verification.
type WebhookReceiveBody struct {
	EventType string          `json:"event_type"`
	Data      json.RawMessage `json:"data"`
	Source    string          `json:"source,omitempty"`
}

// WebhookReceiveResponse is the 200 body of /webhook-receiver.
type WebhookReceiveResponse struct {
	Success   bool   `json:"success"`
	EventType string `json:"event_type"`
	Source    string `json:"source"`
}

// WebhookSendRequest is the request body for /webhook-sender.
type WebhookSendRequest struct {
	EventType      string          `json:"event_type" binding:"required,event_type"`
	Data           json.RawMessage `json:"data"`
	WebhookConfigs []uuid.UUID     `json:"webhook_configs,omitempty"`
}

// DeliveryResultResponse is one target's outcome.
type DeliveryResultResponse struct {
	WebhookConfigID string `json:"webhook_config_id"`
	Name            string `json:"name"`
	Success         bool   `json:"success"`
	Attempts        int    `json:"attempts"`
	StatusCode      int    `json:"status_code,omitempty"`
	Error           string `json:"error,omitempty"`
}

// WebhookSendResponse is the body of /webhook-sender.
type WebhookSendResponse struct {
	Success bool                     `json:"success"`
	Message string                   `json:"message"`
	Results []DeliveryResultResponse `json:"results"`
}

// CourseRequest is the body for course create and update. Update treats
// absent fields as unchanged.
type CourseRequest struct {
	Title       *string `json:"title" binding:"omitempty,min=1,max=200"`
	Description *string `json:"description" binding:"omitempty,max=5000"`
	Published   *bool   `json:"published"`
}

// PageQuery is the pagination query of list endpoints.
type PageQuery struct {
	Page  int `form:"page" binding:"omitempty,min=1"`
	Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
}

// CreateTopicRequest is the body for topic creation.
type CreateTopicRequest struct {
	ParentID *uuid.UUID `json:"parent_id"`
	Title    string     `json:"title" binding:"required,max=200"`
	Content  string     `json:"content" sanitize:"-"`
}

// UpdateTopicRequest edits title and/or content.
type UpdateTopicRequest struct {
	Title   *string `json:"title" binding:"omitempty,min=1,max=200"`
	Content *string `json:"content" sanitize:"-"`
}

// ReparentTopicRequest moves a topic; a null parent_id makes it a root.
type ReparentTopicRequest struct {
	ParentID *uuid.UUID `json:"parent_id"`
}

// ReorderTopicsRequest renumbers one sibling group.
type ReorderTopicsRequest struct {
	ParentID *uuid.UUID  `json:"parent_id"`
	TopicIDs []uuid.UUID `json:"topic_ids" binding:"required,min=1,dive,required"`
}

// DuplicateTopicRequest copies a topic. When parent_id is present (even
// null) the copy goes under that parent.
type DuplicateTopicRequest struct {
	ParentID OptionalUUID `json:"parent_id"`
}

// OptionalUUID distinguishes an absent field from an explicit null.
type OptionalUUID struct {
	Set   bool
	Value *uuid.UUID
}

// UnmarshalJSON records that the field was present.
func (o *OptionalUUID) UnmarshalJSON(b []byte) error {
	o.Set = true
	if string(b) == "null" {
		o.Value = nil
		return nil
	}
	var id uuid.UUID
	if err := json.Unmarshal(b, &id); err != nil {
		return err
	}
	o.Value = &id
	return nil
}

// CreateUserRequest is the body for /create-user.
type CreateUserRequest struct {
	Email string `json:"email" binding:"required,email,max=254"`
	Name  string `json:"name" binding:"max=100" sanitize:"escape"`
	Role  string `json:"role" binding:"omitempty,oneof=admin instructor student"`
}

// LoginRequest is the request body for admin login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required" sanitize:"-"`
}

// LoginResponse is the response body for successful login.
type LoginResponse struct {
	Token              string `json:"token"`
	Expiry             int64  `json:"expiry"` // Unix timestamp
	MustChangePassword bool   `json:"must_change_password"`
	UserID             string `json:"user_id"`
	IsAdmin            bool   `json:"is_admin"`
}

// ChangePasswordRequest is the body for /auth/change-password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required" sanitize:"-"`
	NewPassword     string `json:"new_password" binding:"required,min=8,max=128" sanitize:"-"`
}

// WebhookConfigRequest is the body for webhook config create and update.
// Name is matched against inbound sources, so it is restricted rather than
// escaped. Absent retry_count and timeout_seconds keep the current value.
type WebhookConfigRequest struct {
	Name           string            `json:"name" binding:"required,max=100,safe_id"`
	URL            string            `json:"url" binding:"omitempty,safe_url"`
	Secret         *string           `json:"secret" sanitize:"-"`
	Active         *bool             `json:"active"`
	Events         []string          `json:"events" binding:"omitempty,dive,event_type"`
	Headers        map[string]string `json:"headers"`
	RetryCount     *int              `json:"retry_count" binding:"omitempty,min=0,max=10"`
	TimeoutSeconds *int              `json:"timeout_seconds" binding:"omitempty,min=1,max=300"`
}

// WebhookConfigResponse exposes a config without its secret.
type WebhookConfigResponse struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	URL            string            `json:"url"`
	HasSecret      bool              `json:"has_secret"`
	Active         bool              `json:"active"`
	Events         []string          `json:"events"`
	Headers        map[string]string `json:"headers,omitempty"`
	RetryCount     int               `json:"retry_count"`
	TimeoutSeconds int               `json:"timeout_seconds"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// WebhookLogQuery filters the log listing.
type WebhookLogQuery struct {
	PageQuery
	WebhookConfigID string `form:"webhook_config_id" binding:"omitempty,uuid"`
	EventType       string `form:"event_type" binding:"omitempty,event_type"`
}

// DeleteWebhookLogsRequest removes logs by id or age.
type DeleteWebhookLogsRequest struct {
	IDs    []uuid.UUID `json:"ids"`
	Before *time.Time  `json:"before"`
}

// CreateAPIKeyRequest is the body for API key creation.
type CreateAPIKeyRequest struct {
	Name        string     `json:"name" binding:"required,max=100" sanitize:"escape"`
	Permissions []string   `json:"permissions" binding:"required,min=1,dive,permission"`
	RateLimit   int        `json:"rate_limit" binding:"min=0,max=100000"`
	ExpiresAt   *time.Time `json:"expires_at"`
}

// APIKeyResponse is a stored key; RawKey is only set on creation.
type APIKeyResponse struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	KeyPrefix   string     `json:"key_prefix"`
	Permissions []string   `json:"permissions"`
	RateLimit   int        `json:"rate_limit"`
	Active      bool       `json:"active"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	LastUsedAt  *time.Time `json:"last_used_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	RawKey      string     `json:"key,omitempty"`
}

// ProductMappingRequest maps a partner product to a course.
type ProductMappingRequest struct {
	ExternalProductID string    `json:"external_product_id" binding:"required,max=100,safe_id"`
	CourseID          uuid.UUID `json:"course_id" binding:"required"`
}
