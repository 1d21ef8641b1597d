package handlers

import (
	"errors"
	"net/http"

	"agendazap/models"
	"agendazap/services/flow"
	"agendazap/services/tenant"
	"agendazap/services/wpp"
	"agendazap/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// WebhookHandler receives inbound message webhooks from the WhatsApp bridge.
type WebhookHandler struct {
	Registry   *tenant.Registry
	Dispatcher *flow.Dispatcher
}

func NewWebhookHandler(registry *tenant.Registry, dispatcher *flow.Dispatcher) *WebhookHandler {
	return &WebhookHandler{Registry: registry, Dispatcher: dispatcher}
}

func ignored(c *gin.Context, reason string) {
	c.JSON(http.StatusOK, gin.H{"status": "ignored", "reason": reason})
}

// HandleBridgeWebhook handles POST /waha/webhook. Tenant resolution may be
// overridden with ?empresa= or the X-Empresa header; otherwise the payload
// decides.
func (h *WebhookHandler) HandleBridgeWebhook(c *gin.Context) {
	var payload map[string]any
	if err := c.ShouldBindJSON(&payload); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid webhook payload", err.Error())
		return
	}

	msg := wpp.Normalize(payload)
	if msg.FromMe {
		ignored(c, "fromMe")
		return
	}
	if msg.ChatID == "" || msg.Text == "" {
		ignored(c, "empty")
		return
	}
	if msg.IsGroup() {
		ignored(c, "group")
		return
	}

	tenantID, err := h.Registry.Resolve(c.Query("empresa"), c.GetHeader("X-Empresa"), msg)
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Could not resolve tenant", err.Error())
		return
	}

	h.runDispatch(c, tenantID, msg)
}

// HandleTenantWebhook handles POST /webhook/:tenant, the path-addressed
// variant kept for bridges configured per tenant.
func (h *WebhookHandler) HandleTenantWebhook(c *gin.Context) {
	tenantID := c.Param("tenant")
	if !h.Registry.Has(tenantID) {
		utils.JSONError(c, http.StatusNotFound, "Unknown tenant", tenantID)
		return
	}

	var payload map[string]any
	if err := c.ShouldBindJSON(&payload); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid webhook payload", err.Error())
		return
	}

	msg := wpp.Normalize(payload)
	if msg.FromMe {
		ignored(c, "fromMe")
		return
	}
	if msg.ChatID == "" || msg.Text == "" {
		ignored(c, "empty")
		return
	}
	if msg.IsGroup() {
		ignored(c, "group")
		return
	}

	h.runDispatch(c, tenantID, msg)
}

func (h *WebhookHandler) runDispatch(c *gin.Context, tenantID string, msg models.NormalizedMessage) {
	ctx := c.Request.Context()

	if utils.SeenMessage(ctx, tenantID, msg.MessageID) {
		ignored(c, "duplicate")
		return
	}

	if err := h.Dispatcher.Dispatch(ctx, tenantID, msg); err != nil {
		if errors.Is(err, flow.ErrUnknownFlow) {
			utils.JSONError(c, http.StatusInternalServerError, "Tenant flow misconfigured", err.Error())
			return
		}
		utils.GetLogger().Error("message dispatch failed",
			zap.String("tenant", tenantID),
			zap.String("chat", msg.ChatID),
			zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "Failed to process message", err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}
