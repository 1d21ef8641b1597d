package models

// ChargeReference is the structured payload embedded in a charge's
// external_reference field. The provider echoes it back verbatim on payment
// webhooks, so the round-trip must be lossless for every field here.
type ChargeReference struct {
	Tenant        string     `json:"empresa"`
	ReservationID string     `json:"agendamento_id"`
	ChatID        string     `json:"chat_id"`
	Name          string     `json:"nome"`
	Instagram     string     `json:"insta,omitempty"`
	Date          string     `json:"data"`
	TimeSlot      string     `json:"horario"`
	Service       string     `json:"servico"`
	Total         float64    `json:"total"`
	LineItems     []LineItem `json:"itens,omitempty"`
}

// PixCharge is the subset of a provider charge the flow engine cares about.
type PixCharge struct {
	ID                string  `json:"payment_id"`
	Status            string  `json:"status"`
	QRCode            string  `json:"qr_code"`    // PIX copy-paste code
	TicketURL         string  `json:"ticket_url"` // hosted QR page, no login
	Total             float64 `json:"total"`
	ExternalReference string  `json:"-"`
}
