package payment

import (
	"context"
	"errors"

	"agendazap/models"
)

var (
	// ErrNoCredentials means the tenant has no payment provider access token.
	ErrNoCredentials = errors.New("tenant has no payment credentials configured")

	// ErrChargeFailed wraps provider-side rejections of a charge request.
	ErrChargeFailed = errors.New("payment provider rejected the charge")
)

// CreateChargeInput carries the reservation snapshot that backs one PIX charge.
type CreateChargeInput struct {
	Reference  models.ChargeReference
	PayerEmail string
}

// Service issues and looks up PIX charges for a tenant.
type Service interface {
	// CreatePixCharge creates a PIX payment for the referenced reservation and
	// returns the copy-paste code plus the hosted QR page URL.
	CreatePixCharge(ctx context.Context, tenant models.Tenant, in CreateChargeInput) (*models.PixCharge, error)

	// GetCharge fetches one charge by provider payment id.
	GetCharge(ctx context.Context, tenant models.Tenant, paymentID string) (*models.PixCharge, error)
}
