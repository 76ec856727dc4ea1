package model

import "time"

// Reservation states.
const (
	StatusPending   = "PENDING"
	StatusPaid      = "PAID"
	StatusCancelled = "CANCELLED"
)

// Reservation is a confirmed booking of exactly one slot.  It is created
// only after the payment for it was confirmed.
//
// Fields:
//
//	ID               – primary key identifier.
//	UserID           – user who booked.
//	SlotID           – booked slot.
//	TotalAmountCents – slot price at booking time.
//	Status           – PENDING | PAID | CANCELLED.
//	CreatedAt        – booking instant, start of the cancellation window.
type Reservation struct {
	ID               uint64    `json:"id"`
	UserID           uint64    `json:"user_id"`
	SlotID           uint64    `json:"slot_id"`
	TotalAmountCents int64     `json:"total_amount_cents"`
	Status           string    `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
}

// Payment records a confirmed gateway intent.  One checkout produces one
// payment, linked to the first reservation of that checkout.
//
// Fields:
//
//	ID            – primary key identifier.
//	ReservationID – first reservation of the checkout.
//	IntentID      – gateway intent identifier, unique.
//	AmountCents   – sum over every reservation of the checkout.
//	Status        – gateway status at confirmation time.
//	CreatedAt     – confirmation instant.
type Payment struct {
	ID            uint64    `json:"id"`
	ReservationID uint64    `json:"reservation_id"`
	IntentID      string    `json:"intent_id"`
	AmountCents   int64     `json:"amount_cents"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

// PaymentSucceeded is the status stored for confirmed payments.
const PaymentSucceeded = "SUCCEEDED"

// Invoice is issued once per reservation.
//
// Fields:
//
//	ID            – primary key identifier.
//	ReservationID – invoiced reservation, unique.
//	Number        – FAC-yyyyMMdd-NNNNNN.
//	AmountCents   – invoiced amount.
//	IssuedAt      – issue instant.
type Invoice struct {
	ID            uint64    `json:"id"`
	ReservationID uint64    `json:"reservation_id"`
	Number        string    `json:"invoice_number"`
	AmountCents   int64     `json:"amount_cents"`
	IssuedAt      time.Time `json:"issued_at"`
}

// ReservationOwnership names the parties related to a reservation: the
// customer who booked and the supplier who owns the slot's venue.
type ReservationOwnership struct {
	ReservationID uint64
	UserID        uint64
	VenueOwnerID  uint64
}

// ReservationView is a reservation joined with its slot and venue for
// listings.
type ReservationView struct {
	ID               uint64        `json:"id"`
	UserID           uint64        `json:"user_id"`
	SlotID           uint64        `json:"slot_id"`
	VenueID          uint64        `json:"venue_id"`
	VenueName        string        `json:"venue_name"`
	Date             time.Time     `json:"-"`
	StartTime        time.Duration `json:"-"`
	EndTime          time.Duration `json:"-"`
	Status           string        `json:"status"`
	TotalAmountCents int64         `json:"total_amount_cents"`
	CreatedAt        time.Time     `json:"created_at"`
	InvoiceNumber    *string       `json:"invoice_number,omitempty"`
}
