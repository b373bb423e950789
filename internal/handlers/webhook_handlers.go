package handlers

import (
	"errors"
	"io"
	"net/http"

	"roms_backend/internal/gateway"
	"roms_backend/internal/services"
	"roms_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// maxWebhookBodyBytes caps webhook payload size; gateway events are small.
const maxWebhookBodyBytes = 1 << 20

// WebhookHandler receives asynchronous payment events from the gateway.
type WebhookHandler struct {
	feeService    services.FeeService
	webhookSecret string
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(fs services.FeeService, webhookSecret string) *WebhookHandler {
	return &WebhookHandler{feeService: fs, webhookSecret: webhookSecret}
}

// HandleGatewayWebhook verifies the event signature against the raw body,
// then hands the event to the reconciliation engine. Signature failures are
// distinguishable from processing failures so gateway operators can tell a
// misconfigured secret from a transient error. Once the signature verifies,
// no-op events still return 200 so the gateway stops redelivering them.
func (h *WebhookHandler) HandleGatewayWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBodyBytes))
	if err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeBadRequest, "Failed to read request body.", err.Error()))
		return
	}

	event, err := gateway.ConstructEvent(payload, c.GetHeader(gateway.SignatureHeader), h.webhookSecret)
	if err != nil {
		if errors.Is(err, gateway.ErrInvalidSignature) {
			utils.LogWarn("Webhook signature verification failed", map[string]interface{}{"client_ip": c.ClientIP()})
			utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Invalid webhook signature.", ""))
			return
		}
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeBadRequest, "Malformed webhook payload.", err.Error()))
		return
	}

	if err := h.feeService.HandleGatewayEvent(event); err != nil {
		utils.LogError(err, "HandleGatewayWebhook: Error from feeService.HandleGatewayEvent")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to process event.", "Internal error"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}
