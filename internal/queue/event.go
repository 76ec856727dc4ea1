// Package queue defines message payloads exchanged over the message broker.
package queue

import (
	"time"

	"github.com/google/uuid"
)

// Queue names, also used as routing keys on the default exchange.
const (
	ReservationConfirmedQueue = "reservation.confirmed"
	ReservationCancelledQueue = "reservation.cancelled"
)

// ReservedSlot is one booked slot inside a confirmation event.
type ReservedSlot struct {
	ReservationID uint64 `json:"reservation_id"`
	SlotID        uint64 `json:"slot_id"`
	VenueName     string `json:"venue_name"`
	StartsAt      string `json:"starts_at"`
	AmountCents   int64  `json:"amount_cents"`
	InvoiceNumber string `json:"invoice_number"`
}

// ReservationConfirmedEvent is published once per successful checkout.  It
// carries enough information for downstream consumers to log or notify
// without querying the primary database.
type ReservationConfirmedEvent struct {
	MessageID        string         `json:"message_id"`
	UserID           uint64         `json:"user_id"`
	PaymentIntentID  string         `json:"payment_intent_id"`
	TotalAmountCents int64          `json:"total_amount_cents"`
	Slots            []ReservedSlot `json:"slots"`
	ConfirmedAt      string         `json:"confirmed_at"`
}

// ReservationCancelledEvent is published after a cancellation committed.
type ReservationCancelledEvent struct {
	MessageID     string `json:"message_id"`
	ReservationID uint64 `json:"reservation_id"`
	UserID        uint64 `json:"user_id"`
	SlotID        uint64 `json:"slot_id"`
	CancelledAt   string `json:"cancelled_at"`
}

// NewMessageID returns a fresh id for an outgoing event.
func NewMessageID() string { return uuid.NewString() }

// Timestamp formats t the way every event carries time.
func Timestamp(t time.Time) string { return t.UTC().Format(time.RFC3339) }
