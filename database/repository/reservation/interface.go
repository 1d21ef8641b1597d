package reservationRepo

import (
	"context"

	"agendazap/models"
)

// Repository persists reservation rows. Implementations must keep an
// append-only backup trail: every mutating write also records a timestamped
// copy of the row, so a previously-Confirmed reservation can never be lost.
type Repository interface {
	Insert(ctx context.Context, r *models.Reservation) error
	Update(ctx context.Context, r *models.Reservation) error
	GetByID(ctx context.Context, tenantID, id string) (*models.Reservation, error)
	FindByTenantDate(ctx context.Context, tenantID, date string) ([]models.Reservation, error)
	FindByStatus(ctx context.Context, tenantID, status string) ([]models.Reservation, error)
	FindActiveBySlot(ctx context.Context, tenantID, date, slot string) ([]models.Reservation, error)
}
