package handler

import (
	"fmt"
	"io"
	"net/http"

	"course-admin-gateway/internal/adapter/http/dto"
	"course-admin-gateway/internal/core/ports"
	"course-admin-gateway/pkg/apperror"
	"course-admin-gateway/pkg/response"

	"github.com/gin-gonic/gin"
)

const (
	HeaderWebhookSource    = "X-Webhook-Source"
	HeaderWebhookSignature = "X-Webhook-Signature"
	HeaderHubSignature     = "X-Hub-Signature-256"
)

// WebhookHandler serves the inbound receiver and the outbound sender. Both
// answer errors with the bare `{error}` shape.
type WebhookHandler struct {
	receiver           ports.ReceiverService
	sender             ports.SenderService
	partnerSigHeader   string
	signatureHeaderSeq []string
}

// NewWebhookHandler creates a new WebhookHandler. partnerName selects the
// partner signature header, e.g. "kwify" reads X-Kwify-Signature.
func NewWebhookHandler(receiver ports.ReceiverService, sender ports.SenderService, partnerName string) *WebhookHandler {
	partnerHeader := http.CanonicalHeaderKey(fmt.Sprintf("X-%s-Signature", partnerName))
	return &WebhookHandler{
		receiver:           receiver,
		sender:             sender,
		partnerSigHeader:   partnerHeader,
		signatureHeaderSeq: []string{HeaderWebhookSignature, HeaderHubSignature, partnerHeader},
	}
}

// Receive handles POST /webhook-receiver.
func (h *WebhookHandler) Receive(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.Bare(c, apperror.ErrMalformedPayload(err))
		return
	}

	req := ports.ReceiveRequest{
		RawBody:          raw,
		Source:           c.GetHeader(HeaderWebhookSource),
		PartnerSignature: c.GetHeader(h.partnerSigHeader) != "",
	}
	for _, name := range h.signatureHeaderSeq {
		if sig := c.GetHeader(name); sig != "" {
			req.Signature = sig
			break
		}
	}

	result, err := h.receiver.Receive(c.Request.Context(), req)
	if err != nil {
		response.Bare(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.WebhookReceiveResponse{
		Success:   true,
		EventType: result.EventType,
		Source:    result.Source,
	})
}

// Send handles POST /webhook-sender. Delivery failures are reported in the
// results, never as an error status.
func (h *WebhookHandler) Send(c *gin.Context) {
	var req dto.WebhookSendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Bare(c, apperror.Validation(err.Error()))
		return
	}

	summary, err := h.sender.Send(c.Request.Context(), ports.SendRequest{
		EventType: req.EventType,
		Data:      req.Data,
		ConfigIDs: req.WebhookConfigs,
	})
	if err != nil {
		response.Bare(c, err)
		return
	}

	results := make([]dto.DeliveryResultResponse, 0, len(summary.Results))
	for _, r := range summary.Results {
		results = append(results, dto.DeliveryResultResponse{
			WebhookConfigID: r.WebhookConfigID.String(),
			Name:            r.Name,
			Success:         r.Success,
			Attempts:        r.Attempts,
			StatusCode:      r.StatusCode,
			Error:           r.Error,
		})
	}

	c.JSON(http.StatusOK, dto.WebhookSendResponse{
		Success: true,
		Message: fmt.Sprintf("Sent to %d webhooks, %d failed", summary.Succeeded, summary.Failed),
		Results: results,
	})
}
