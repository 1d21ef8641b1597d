package models

import "time"

// Reservation statuses as stored in the ledger. The wire values match the
// Portuguese labels the operators see in their reports.
const (
	StatusPending   = "Pendente"
	StatusConfirmed = "Confirmado"
	StatusExpired   = "Expirado"
	StatusCancelled = "Cancelado"
)

// LineItem is one billed service, captured as a snapshot at reservation time
// so later charges never re-derive prices from a possibly-changed catalog.
type LineItem struct {
	Title     string  `bson:"title" json:"title"`
	Quantity  int     `bson:"quantity" json:"quantity"`
	UnitPrice float64 `bson:"unitPrice" json:"unit_price"`
}

// Reservation is one row in the booking ledger. Status transitions:
// Pending -> Confirmed (payment approved) or Pending -> Expired (TTL elapsed);
// both terminal states are immutable afterwards.
type Reservation struct {
	ID           string     `bson:"id" json:"id"`
	TenantID     string     `bson:"tenantId" json:"tenantId"`
	CustomerName string     `bson:"customerName" json:"customerName"`
	Date         string     `bson:"date" json:"date"`         // YYYY-MM-DD
	TimeSlot     string     `bson:"timeSlot" json:"timeSlot"` // e.g. "08:00"
	Service      string     `bson:"service" json:"service"`   // display label
	Instagram    string     `bson:"instagram,omitempty" json:"instagram,omitempty"`
	Status       string     `bson:"status" json:"status"`
	CreatedAt    time.Time  `bson:"createdAt" json:"createdAt"`
	ExpiresAt    time.Time  `bson:"expiresAt,omitempty" json:"expiresAt,omitempty"`
	ChatID       string     `bson:"chatId" json:"chatId"`
	LineItems    []LineItem `bson:"lineItems" json:"lineItems"`
	Total        float64    `bson:"total" json:"total"`
}

// Active reports whether the reservation still holds its slot.
func (r *Reservation) Active() bool {
	return r.Status == StatusPending || r.Status == StatusConfirmed
}
