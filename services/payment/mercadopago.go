package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"agendazap/config"
	"agendazap/models"
	"agendazap/utils"

	"go.uber.org/zap"
)

// MercadoPago issues PIX charges through the Mercado Pago Payments API using
// each tenant's own access token.
type MercadoPago struct {
	baseURL string
	http    *http.Client
}

func NewMercadoPago() *MercadoPago {
	base := config.AppConfig.MPBaseURL
	if base == "" {
		base = "https://api.mercadopago.com"
	}
	return &MercadoPago{
		baseURL: strings.TrimRight(base, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

type mpPixRequest struct {
	TransactionAmount float64        `json:"transaction_amount"`
	Description       string         `json:"description"`
	PaymentMethodID   string         `json:"payment_method_id"`
	Payer             mpPayer        `json:"payer"`
	ExternalReference string         `json:"external_reference"`
	Metadata          map[string]any `json:"metadata"`
	DateOfExpiration  string         `json:"date_of_expiration"`
	NotificationURL   string         `json:"notification_url,omitempty"`
}

type mpPayer struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
}

type mpPaymentResponse struct {
	ID                 json.Number `json:"id"`
	Status             string      `json:"status"`
	ExternalReference  string      `json:"external_reference"`
	PointOfInteraction struct {
		TransactionData struct {
			QRCode    string `json:"qr_code"`
			TicketURL string `json:"ticket_url"`
		} `json:"transaction_data"`
	} `json:"point_of_interaction"`
	TransactionAmount float64 `json:"transaction_amount"`
}

func (m *MercadoPago) CreatePixCharge(ctx context.Context, tenant models.Tenant, in CreateChargeInput) (*models.PixCharge, error) {
	if tenant.MPAccessToken == "" {
		return nil, fmt.Errorf("%w: tenant %s", ErrNoCredentials, tenant.ID)
	}

	ref := in.Reference
	extRef, err := EncodeReference(ref)
	if err != nil {
		return nil, fmt.Errorf("encoding charge reference: %w", err)
	}

	payerEmail := in.PayerEmail
	if payerEmail == "" {
		payerEmail = fmt.Sprintf("cliente+%s@example.com", strings.ToLower(ref.ReservationID))
	}

	expiry := time.Now().UTC().Add(20 * time.Minute).Format("2006-01-02T15:04:05.000Z")
	notifyURL := ""
	if config.AppConfig.BaseURL != "" {
		notifyURL = strings.TrimRight(config.AppConfig.BaseURL, "/") + "/mp/" + tenant.ID + "/webhook"
	}

	body := mpPixRequest{
		TransactionAmount: ref.Total,
		Description:       fmt.Sprintf("Agendamento %s - %s %s", ref.Service, ref.Date, ref.TimeSlot),
		PaymentMethodID:   "pix",
		Payer:             mpPayer{Email: payerEmail, FirstName: truncate(ref.Name, 60)},
		ExternalReference: extRef,
		Metadata: map[string]any{
			"empresa":        tenant.ID,
			"agendamento_id": ref.ReservationID,
		},
		DateOfExpiration: expiry,
		NotificationURL:  notifyURL,
	}

	// Same inputs produce the same key, so retries do not double-charge.
	idemKey := fmt.Sprintf("pix:%s:%s:%s:%s:%.2f", tenant.ID, ref.ChatID, ref.Date, ref.TimeSlot, ref.Total)

	resp, err := m.do(ctx, http.MethodPost, "/v1/payments", tenant.MPAccessToken, idemKey, body)
	if err != nil {
		return nil, err
	}

	charge := &models.PixCharge{
		ID:                resp.ID.String(),
		Status:            resp.Status,
		QRCode:            resp.PointOfInteraction.TransactionData.QRCode,
		TicketURL:         resp.PointOfInteraction.TransactionData.TicketURL,
		Total:             resp.TransactionAmount,
		ExternalReference: resp.ExternalReference,
	}
	utils.GetLogger().Info("pix charge created",
		zap.String("tenant", tenant.ID),
		zap.String("payment", charge.ID),
		zap.String("reservation", ref.ReservationID),
		zap.Float64("total", ref.Total))
	return charge, nil
}

func (m *MercadoPago) GetCharge(ctx context.Context, tenant models.Tenant, paymentID string) (*models.PixCharge, error) {
	if tenant.MPAccessToken == "" {
		return nil, fmt.Errorf("%w: tenant %s", ErrNoCredentials, tenant.ID)
	}

	resp, err := m.do(ctx, http.MethodGet, "/v1/payments/"+paymentID, tenant.MPAccessToken, "", nil)
	if err != nil {
		return nil, err
	}
	return &models.PixCharge{
		ID:                resp.ID.String(),
		Status:            resp.Status,
		QRCode:            resp.PointOfInteraction.TransactionData.QRCode,
		TicketURL:         resp.PointOfInteraction.TransactionData.TicketURL,
		Total:             resp.TransactionAmount,
		ExternalReference: resp.ExternalReference,
	}, nil
}

func (m *MercadoPago) do(ctx context.Context, method, path, token, idemKey string, body any) (*mpPaymentResponse, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, m.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idemKey != "" {
		req.Header.Set("X-Idempotency-Key", idemKey)
	}

	res, err := m.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mercadopago request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(res.Body, 500))
		utils.GetLogger().Warn("mercadopago error response",
			zap.String("path", path),
			zap.Int("status", res.StatusCode),
			zap.ByteString("body", snippet))
		return nil, fmt.Errorf("%w: status %d", ErrChargeFailed, res.StatusCode)
	}

	var out mpPaymentResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding mercadopago response: %w", err)
	}
	return &out, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
