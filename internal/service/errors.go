// Package service holds the booking core: slot inventory, the cart, the
// checkout orchestrator, the cancellation policy and the supplier-side
// venue management.  Services depend on narrow repository interfaces
// declared in ports.go and report failures with the sentinels below.
package service

import (
	"errors"

	"github.com/iliyamo/slot-reservation/internal/repository"
)

var (
	// ErrNotFound is returned when the entity is absent or not owned by
	// the caller.  The two cases are deliberately indistinguishable.
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("forbidden")

	ErrSlotUnavailable      = errors.New("slot is not available")
	ErrAlreadyInCart        = errors.New("slot is already in your cart")
	ErrVenueHasReservations = errors.New("venue has reservations")

	ErrNotPaid        = errors.New("only paid reservations can be cancelled")
	ErrWindowExpired  = errors.New("cancellation window after booking has expired")
	ErrTooCloseToSlot = errors.New("too close to the slot start to cancel")

	ErrExternalFailure     = errors.New("payment provider unavailable")
	ErrPaymentNotConfirmed = errors.New("payment not confirmed")
	ErrIntentNotFound      = errors.New("no pending payment for this intent")
	ErrCartChanged         = errors.New("cart changed since the payment was started")

	ErrEmptyCart     = errors.New("cart is empty")
	ErrInvalidFilter = errors.New("exact venue name and free-text search cannot be combined")
	ErrInvalidInput  = errors.New("invalid input")
)

// IsConflict reports whether err is an inventory or cart conflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrSlotUnavailable) ||
		errors.Is(err, ErrAlreadyInCart) ||
		errors.Is(err, ErrCartChanged) ||
		errors.Is(err, ErrVenueHasReservations)
}

// IsPolicyViolation reports whether err comes from the cancellation policy.
func IsPolicyViolation(err error) bool {
	return errors.Is(err, ErrNotPaid) ||
		errors.Is(err, ErrWindowExpired) ||
		errors.Is(err, ErrTooCloseToSlot)
}

// isExpected marks outcomes that are answers to the user, not faults.
func isExpected(err error) bool {
	return IsConflict(err) || IsPolicyViolation(err) ||
		errors.Is(err, ErrNotFound) || errors.Is(err, ErrForbidden) ||
		errors.Is(err, ErrEmptyCart) || errors.Is(err, ErrPaymentNotConfirmed) ||
		errors.Is(err, ErrIntentNotFound) || errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrInvalidFilter)
}

// mapRepoErr translates repository sentinels to service ones.
func mapRepoErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrForbidden):
		return ErrForbidden
	}
	return err
}
