package agenda

import "errors"

var (
	// ErrSlotUnavailable means another Pending/Confirmed reservation already
	// holds the requested (date, slot). Flows re-prompt with refreshed
	// availability.
	ErrSlotUnavailable = errors.New("time slot is no longer available")

	// ErrNoLineItems means a reservation was attempted with nothing to bill.
	ErrNoLineItems = errors.New("reservation has no line items")
)
