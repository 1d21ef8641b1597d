package agenda

import (
	"context"
	"time"

	"agendazap/models"
)

// TimeBlocks is the fixed list of bookable slots per day. One reservation may
// hold each (date, block) at a time.
var TimeBlocks = []string{
	"08:00", "09:00", "10:00", "11:00",
	"13:00", "14:00", "15:00", "16:00",
	"17:00",
}

// ReserveRequest carries everything needed to open a Pending reservation.
type ReserveRequest struct {
	ChatID       string
	CustomerName string
	Instagram    string
	Date         string // YYYY-MM-DD
	TimeSlot     string
	LineItems    []models.LineItem
	TTL          time.Duration
}

// Service is the booking ledger: slot exclusivity, TTL-based expiry and
// status transitions over durable reservation rows.
type Service interface {
	// IsSlotFree reports whether no Pending/Confirmed reservation holds the
	// slot, after promoting stale Pending rows to Expired.
	IsSlotFree(ctx context.Context, tenantID, date, slot string) (bool, error)

	// Reserve atomically claims (date, slot) with a Pending reservation.
	// Returns ErrSlotUnavailable when the slot is taken at call time.
	Reserve(ctx context.Context, tenantID string, req ReserveRequest) (*models.Reservation, error)

	// Confirm transitions Pending -> Confirmed. It reports false without
	// error when the reservation is not currently Pending, which makes
	// confirmation idempotent under duplicate payment notifications.
	Confirm(ctx context.Context, tenantID, reservationID string) (bool, error)

	// ExpireStale promotes Pending reservations past their expiry to Expired.
	ExpireStale(ctx context.Context, tenantID string) error

	// Snapshot returns the line items and total captured at reservation time.
	Snapshot(ctx context.Context, tenantID, reservationID string) ([]models.LineItem, float64, error)

	// Get fetches one reservation.
	Get(ctx context.Context, tenantID, reservationID string) (*models.Reservation, error)

	// ReservationMatches verifies that a Pending reservation with the given
	// id still corresponds to the same date/slot (and chat, when provided).
	ReservationMatches(ctx context.Context, tenantID, reservationID, date, slot, chatID string) (bool, error)

	// ListDay returns all reservations of a tenant on a date.
	ListDay(ctx context.Context, tenantID, date string) ([]models.Reservation, error)

	// ListPending returns all Pending reservations of a tenant.
	ListPending(ctx context.Context, tenantID string) ([]models.Reservation, error)

	// ListExpired returns all Expired reservations of a tenant.
	ListExpired(ctx context.Context, tenantID string) ([]models.Reservation, error)

	// ExpiringWithin lists Pending reservations whose expiry falls inside
	// (now, now+window], for proactive reminders.
	ExpiringWithin(ctx context.Context, tenantID string, window time.Duration) ([]models.Reservation, error)
}
