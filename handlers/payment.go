package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"agendazap/config"
	"agendazap/models"
	"agendazap/services/agenda"
	"agendazap/services/payment"
	"agendazap/services/tenant"
	"agendazap/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PaymentHandler receives payment provider webhooks and serves the in-process
// PIX charge endpoint.
type PaymentHandler struct {
	Registry *tenant.Registry
	Agenda   agenda.Service
	Payments payment.Service
}

func NewPaymentHandler(registry *tenant.Registry, ag agenda.Service, pay payment.Service) *PaymentHandler {
	return &PaymentHandler{Registry: registry, Agenda: ag, Payments: pay}
}

// HandleWebhookProbe answers the provider panel's GET/HEAD liveness checks.
func (h *PaymentHandler) HandleWebhookProbe(c *gin.Context) {
	if c.Request.Method == http.MethodHead {
		c.Status(http.StatusOK)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "msg": "webhook alive", "empresa": c.Param("tenant")})
}

// readWebhook verifies the signature and parses the notification body. The
// raw body is needed for signature candidates, so binding happens by hand.
func (h *PaymentHandler) readWebhook(c *gin.Context) (map[string]any, bool) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Unreadable webhook body", err.Error())
		return nil, false
	}

	ok := payment.VerifySignature(
		config.AppConfig.MPWebhookSecret,
		c.GetHeader("x-signature"),
		string(body),
		c.Request.URL.Path,
		c.Request.URL.RawQuery,
		config.AppConfig.MPRequireSignature,
	)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"status": "invalid_signature"})
		return nil, false
	}

	payload := map[string]any{}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &payload); err != nil {
			// some notification formats are query-only
			payload = map[string]any{}
		}
	}
	return payload, true
}

// HandleTenantWebhook handles POST /mp/:tenant/webhook.
func (h *PaymentHandler) HandleTenantWebhook(c *gin.Context) {
	tenantID := c.Param("tenant")
	t, err := h.Registry.Get(tenantID)
	if err != nil {
		utils.JSONError(c, http.StatusNotFound, "Unknown tenant", tenantID)
		return
	}

	payload, ok := h.readWebhook(c)
	if !ok {
		return
	}

	pid := payment.ExtractPaymentID(c.Query("topic"), c.Query("id"), payload)
	if pid == "" {
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	charge, err := h.Payments.GetCharge(c.Request.Context(), t, pid)
	if err != nil {
		utils.GetLogger().Warn("payment lookup failed",
			zap.String("tenant", tenantID), zap.String("payment", pid), zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"status": "payment_lookup_failed"})
		return
	}

	h.processApproved(c.Request.Context(), t, charge)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// HandleGenericWebhook handles POST /mp/webhook, for provider panels pointed
// at a single URL. The owning tenant is found by probing each tenant's
// credentials and reading the charge's reference payload.
func (h *PaymentHandler) HandleGenericWebhook(c *gin.Context) {
	payload, ok := h.readWebhook(c)
	if !ok {
		return
	}

	pid := payment.ExtractPaymentID(c.Query("topic"), c.Query("id"), payload)
	if pid == "" {
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	ctx := c.Request.Context()
	for _, id := range h.Registry.IDs() {
		t, err := h.Registry.Get(id)
		if err != nil || t.MPAccessToken == "" {
			continue
		}
		charge, err := h.Payments.GetCharge(ctx, t, pid)
		if err != nil {
			continue
		}
		ref, err := payment.DecodeReference(charge.ExternalReference)
		if err != nil || ref.Tenant == "" || !h.Registry.Has(ref.Tenant) {
			continue
		}
		owner, err := h.Registry.Get(ref.Tenant)
		if err != nil {
			continue
		}
		h.processApproved(ctx, owner, charge)
		c.JSON(http.StatusOK, gin.H{"status": "ok", "empresa": ref.Tenant})
		return
	}

	utils.GetLogger().Warn("generic payment webhook unresolved", zap.String("payment", pid))
	c.JSON(http.StatusOK, gin.H{"status": "ignored"})
}

// processApproved confirms the reservation for an approved charge and sends
// the customer a confirmation. Duplicate notifications are absorbed by the
// idempotent Confirm: only the actual Pending->Confirmed transition messages.
func (h *PaymentHandler) processApproved(ctx context.Context, t models.Tenant, charge *models.PixCharge) {
	if !strings.EqualFold(charge.Status, "approved") {
		return
	}

	ref, err := payment.DecodeReference(charge.ExternalReference)
	if err != nil || ref.ReservationID == "" {
		utils.GetLogger().Warn("approved charge without usable reference",
			zap.String("tenant", t.ID), zap.String("payment", charge.ID), zap.Error(err))
		return
	}
	if ref.Tenant != t.ID {
		utils.GetLogger().Warn("charge reference names another tenant",
			zap.String("route", t.ID), zap.String("reference", ref.Tenant))
		return
	}

	confirmed, err := h.Agenda.Confirm(ctx, t.ID, ref.ReservationID)
	if err != nil {
		utils.GetLogger().Error("reservation confirm failed",
			zap.String("tenant", t.ID), zap.String("reservation", ref.ReservationID), zap.Error(err))
		return
	}
	if !confirmed || ref.ChatID == "" {
		return
	}

	sender, err := h.Registry.Sender(t.ID)
	if err != nil {
		utils.GetLogger().Warn("no sender for payment confirmation",
			zap.String("tenant", t.ID), zap.Error(err))
		return
	}

	msg := h.confirmationMessage(ctx, t.ID, ref)
	if err := sender.SendText(ctx, ref.ChatID, msg); err != nil {
		utils.GetLogger().Warn("confirmation message failed",
			zap.String("tenant", t.ID), zap.String("chat", ref.ChatID), zap.Error(err))
	}
}

func (h *PaymentHandler) confirmationMessage(ctx context.Context, tenantID string, ref models.ChargeReference) string {
	service := ref.Service
	dateTxt := formatDisplayDate(ref.Date)
	slot := ref.TimeSlot
	total := ref.Total
	items := ref.LineItems

	// prefer the ledger row over the echoed reference when available
	if r, err := h.Agenda.Get(ctx, tenantID, ref.ReservationID); err == nil {
		if r.Service != "" {
			service = r.Service
		}
		if r.Date != "" {
			dateTxt = formatDisplayDate(r.Date)
		}
		if r.TimeSlot != "" {
			slot = r.TimeSlot
		}
		if r.Total > 0 {
			total = r.Total
		}
		if len(r.LineItems) > 0 {
			items = r.LineItems
		}
	}
	if service == "" {
		service = "Serviço"
	}

	msg := "✅ *Pagamento aprovado*\n\n" +
		"🎉 *Agendamento concluído!*\n" +
		"💈 " + service + "\n" +
		"📅 " + dateTxt + "  🕒 " + slot + "\n"

	if len(items) > 0 {
		var lines []string
		for _, it := range items {
			lines = append(lines, fmt.Sprintf("- %s: %s", it.Title, utils.FormatBRL(utils.RoundMoney(it.UnitPrice))))
		}
		msg += "\n🧾 Itens:\n" + strings.Join(lines, "\n") + "\n"
	}
	if total > 0 {
		msg += "Total: " + utils.FormatBRL(total) + "\n"
	}
	msg += "\nObrigado! Sessão encerrada ✅\nSe precisar, responda aqui. Para novo agendamento, digite *menu*."
	return msg
}

func formatDisplayDate(ledgerDate string) string {
	if d, err := time.Parse("2006-01-02", ledgerDate); err == nil {
		return d.Format("02/01/2006")
	}
	return ledgerDate
}

// pixRequest is the body of POST /mp/:tenant/pix.
type pixRequest struct {
	ReservationID string `json:"agendamento_id" binding:"required"`
	ChatID        string `json:"chat_id" binding:"required"`
	Name          string `json:"nome"`
	Instagram     string `json:"insta"`
	Date          string `json:"data" binding:"required"`
	TimeSlot      string `json:"horario" binding:"required"`
	PayerEmail    string `json:"payer_email"`
}

// HandleCreatePix issues a PIX charge for an existing Pending reservation.
// The flow engine calls the payment service directly; this endpoint exists
// for operator tooling and manual retries.
func (h *PaymentHandler) HandleCreatePix(c *gin.Context) {
	tenantID := c.Param("tenant")
	t, err := h.Registry.Get(tenantID)
	if err != nil {
		utils.JSONError(c, http.StatusNotFound, "Unknown tenant", tenantID)
		return
	}

	var req pixRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "missing_fields", err.Error())
		return
	}

	ctx := c.Request.Context()
	ok, err := h.Agenda.ReservationMatches(ctx, tenantID, req.ReservationID, req.Date, req.TimeSlot, req.ChatID)
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "ledger_error", err.Error())
		return
	}
	if !ok {
		c.JSON(http.StatusConflict, gin.H{"error": "slot_unavailable"})
		return
	}

	items, total, err := h.Agenda.Snapshot(ctx, tenantID, req.ReservationID)
	if err != nil || len(items) == 0 || total <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no_items"})
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = "Cliente"
	}

	var titles []string
	for _, it := range items {
		if s := strings.TrimSpace(it.Title); s != "" {
			titles = append(titles, s)
		}
	}
	service := strings.Join(titles, ", ")
	if service == "" {
		service = "Serviço"
	}

	charge, err := h.Payments.CreatePixCharge(ctx, t, payment.CreateChargeInput{
		Reference: models.ChargeReference{
			Tenant:        tenantID,
			ReservationID: req.ReservationID,
			ChatID:        req.ChatID,
			Name:          name,
			Instagram:     strings.TrimSpace(req.Instagram),
			Date:          req.Date,
			TimeSlot:      req.TimeSlot,
			Service:       service,
			Total:         total,
			LineItems:     items,
		},
		PayerEmail: req.PayerEmail,
	})
	if err != nil {
		utils.JSONError(c, http.StatusBadGateway, "mp_error", err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"payment_id": charge.ID,
		"status":     charge.Status,
		"qr_code":    charge.QRCode,
		"ticket_url": charge.TicketURL,
		"total":      total,
	})
}
