package handler

import (
	"course-admin-gateway/internal/adapter/http/dto"
	"course-admin-gateway/internal/core/domain"
	"course-admin-gateway/internal/core/ports"
	"course-admin-gateway/pkg/apperror"
	"course-admin-gateway/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AdminHandler backs the admin UI: webhook configs and logs, product
// mappings, and API keys.
type AdminHandler struct {
	webhookSvc ports.WebhookAdminService
	keySvc     ports.APIKeyService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(webhookSvc ports.WebhookAdminService, keySvc ports.APIKeyService) *AdminHandler {
	return &AdminHandler{webhookSvc: webhookSvc, keySvc: keySvc}
}

// ListWebhookConfigs handles GET /admin/webhook-configs.
func (h *AdminHandler) ListWebhookConfigs(c *gin.Context) {
	cfgs, err := h.webhookSvc.ListConfigs(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	out := make([]dto.WebhookConfigResponse, 0, len(cfgs))
	for i := range cfgs {
		out = append(out, toWebhookConfigResponse(&cfgs[i]))
	}
	response.OK(c, out)
}

// GetWebhookConfig handles GET /admin/webhook-configs/:id.
func (h *AdminHandler) GetWebhookConfig(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	cfg, err := h.webhookSvc.GetConfig(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toWebhookConfigResponse(cfg))
}

// CreateWebhookConfig handles POST /admin/webhook-configs.
func (h *AdminHandler) CreateWebhookConfig(c *gin.Context) {
	var req dto.WebhookConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	cfg := h.webhookSvc.DefaultConfig()
	applyWebhookConfig(cfg, req)

	created, err := h.webhookSvc.CreateConfig(c.Request.Context(), cfg)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, toWebhookConfigResponse(created))
}

// UpdateWebhookConfig handles PUT /admin/webhook-configs/:id. An absent
// secret keeps the stored one; an empty string clears it. Absent
// retry_count and timeout_seconds keep their stored values.
func (h *AdminHandler) UpdateWebhookConfig(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req dto.WebhookConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	cfg, err := h.webhookSvc.GetConfig(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	applyWebhookConfig(cfg, req)

	updated, err := h.webhookSvc.UpdateConfig(c.Request.Context(), cfg)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, toWebhookConfigResponse(updated))
}

// DeleteWebhookConfig handles DELETE /admin/webhook-configs/:id.
func (h *AdminHandler) DeleteWebhookConfig(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if err := h.webhookSvc.DeleteConfig(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListWebhookLogs handles GET /admin/webhook-logs.
func (h *AdminHandler) ListWebhookLogs(c *gin.Context) {
	var q dto.WebhookLogQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	if q.Page == 0 {
		q.Page = defaultPage
	}
	if q.Limit == 0 {
		q.Limit = defaultLimit
	}

	filter := ports.WebhookLogFilter{Page: q.Page, PageSize: q.Limit}
	if q.WebhookConfigID != "" {
		id := uuid.MustParse(q.WebhookConfigID) // validated by the uuid binding tag
		filter.WebhookConfigID = &id
	}
	if q.EventType != "" {
		filter.EventType = &q.EventType
	}

	logs, total, err := h.webhookSvc.ListLogs(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, response.NewPage(logs, total, q.Page, q.Limit))
}

// DeleteWebhookLogs handles POST /admin/webhook-logs/delete.
func (h *AdminHandler) DeleteWebhookLogs(c *gin.Context) {
	var req dto.DeleteWebhookLogsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	n, err := h.webhookSvc.DeleteLogs(c.Request.Context(), req.IDs, req.Before)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"deleted": n})
}

// ListProductMappings handles GET /admin/product-mappings.
func (h *AdminHandler) ListProductMappings(c *gin.Context) {
	mappings, err := h.webhookSvc.ListProductMappings(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, mappings)
}

// CreateProductMapping handles POST /admin/product-mappings.
func (h *AdminHandler) CreateProductMapping(c *gin.Context) {
	var req dto.ProductMappingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	m, err := h.webhookSvc.CreateProductMapping(c.Request.Context(), &domain.ProductMapping{
		ExternalProductID: req.ExternalProductID,
		CourseID:          req.CourseID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, m)
}

// ListAPIKeys handles GET /admin/api-keys.
func (h *AdminHandler) ListAPIKeys(c *gin.Context) {
	keys, err := h.keySvc.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	out := make([]dto.APIKeyResponse, 0, len(keys))
	for i := range keys {
		out = append(out, toAPIKeyResponse(&keys[i], ""))
	}
	response.OK(c, out)
}

// CreateAPIKey handles POST /admin/api-keys. The raw key is only returned
// here.
func (h *AdminHandler) CreateAPIKey(c *gin.Context) {
	var req dto.CreateAPIKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	perms, err := domain.ParsePermissionSet(req.Permissions)
	if err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	created, err := h.keySvc.Create(c.Request.Context(), ports.CreateAPIKeyRequest{
		Name:        req.Name,
		Permissions: perms,
		RateLimit:   req.RateLimit,
		ExpiresAt:   req.ExpiresAt,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, toAPIKeyResponse(created.Key, created.RawKey))
}

// RevokeAPIKey handles DELETE /admin/api-keys/:id.
func (h *AdminHandler) RevokeAPIKey(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if err := h.keySvc.Revoke(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func applyWebhookConfig(cfg *domain.WebhookConfig, req dto.WebhookConfigRequest) {
	cfg.Name = req.Name
	cfg.URL = req.URL
	if req.Secret != nil {
		if *req.Secret == "" {
			cfg.Secret = nil
		} else {
			secret := *req.Secret
			cfg.Secret = &secret
		}
	}
	if req.Active != nil {
		cfg.Active = *req.Active
	}
	cfg.Events = req.Events
	cfg.Headers = req.Headers
	if req.RetryCount != nil {
		cfg.RetryCount = *req.RetryCount
	}
	if req.TimeoutSeconds != nil {
		cfg.TimeoutSeconds = *req.TimeoutSeconds
	}
}

func toWebhookConfigResponse(cfg *domain.WebhookConfig) dto.WebhookConfigResponse {
	events := cfg.Events
	if events == nil {
		events = []string{}
	}
	return dto.WebhookConfigResponse{
		ID:             cfg.ID.String(),
		Name:           cfg.Name,
		URL:            cfg.URL,
		HasSecret:      cfg.HasSecret(),
		Active:         cfg.Active,
		Events:         events,
		Headers:        cfg.Headers,
		RetryCount:     cfg.RetryCount,
		TimeoutSeconds: cfg.TimeoutSeconds,
		CreatedAt:      cfg.CreatedAt,
		UpdatedAt:      cfg.UpdatedAt,
	}
}

func toAPIKeyResponse(k *domain.APIKey, raw string) dto.APIKeyResponse {
	return dto.APIKeyResponse{
		ID:          k.ID.String(),
		Name:        k.Name,
		KeyPrefix:   k.KeyPrefix,
		Permissions: k.Permissions.Strings(),
		RateLimit:   k.RateLimit,
		Active:      k.Active,
		ExpiresAt:   k.ExpiresAt,
		LastUsedAt:  k.LastUsedAt,
		CreatedAt:   k.CreatedAt,
		RawKey:      raw,
	}
}
