package service

import (
	"time"

	"github.com/iliyamo/slot-reservation/internal/model"
)

// CancellationPolicy allows cancelling a paid reservation only inside a
// window that is both soon after booking and well before the slot.
type CancellationPolicy struct {
	AfterBooking time.Duration // cancellable until createdAt + AfterBooking
	BeforeSlot   time.Duration // cancellable until slotStart - BeforeSlot
}

// DefaultCancellationPolicy is 24h after booking and 24h before the slot.
var DefaultCancellationPolicy = CancellationPolicy{AfterBooking: 24 * time.Hour, BeforeSlot: 24 * time.Hour}

// Evaluate checks, in order, the status, the after-booking window and the
// before-slot window.  A nil result means the reservation may be
// cancelled at now.  The bounds are inclusive.
func (p CancellationPolicy) Evaluate(res model.Reservation, slotStart, now time.Time) error {
	if res.Status != model.StatusPaid {
		return ErrNotPaid
	}
	if now.After(res.CreatedAt.Add(p.AfterBooking)) {
		return ErrWindowExpired
	}
	if now.After(slotStart.Add(-p.BeforeSlot)) {
		return ErrTooCloseToSlot
	}
	return nil
}
