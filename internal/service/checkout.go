package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/slot-reservation/internal/logger"
	"github.com/iliyamo/slot-reservation/internal/metrics"
	"github.com/iliyamo/slot-reservation/internal/model"
	"github.com/iliyamo/slot-reservation/internal/payment"
	"github.com/iliyamo/slot-reservation/internal/queue"
	"github.com/iliyamo/slot-reservation/internal/repository"
)

// CheckoutDeps wires a CheckoutService.
type CheckoutDeps struct {
	Tx           Transactor
	Cart         *CartService
	Carts        CartRepository
	Slots        SlotRepository
	Reservations ReservationRepository
	Payments     PaymentRepository
	Invoices     InvoiceRepository
	Intents      IntentStore
	Gateway      payment.Gateway
	Events       EventPublisher
	Currency     string
	Location     *time.Location
	Log          logger.Logger
	Metrics      *metrics.Metrics
}

// CheckoutService turns a cart into paid reservations in two requests:
// CreateIntent opens a payment for the cart total, ConfirmAndFinalize
// checks the payment and, only when it succeeded, writes reservations,
// the payment and invoices and empties the cart.  The slots stay held
// between the two calls; no lock spans the payment step.
type CheckoutService struct {
	d   CheckoutDeps
	now func() time.Time
}

func NewCheckoutService(d CheckoutDeps) *CheckoutService {
	if d.Events == nil {
		d.Events = nopPublisher{}
	}
	if d.Location == nil {
		d.Location = time.UTC
	}
	return &CheckoutService{d: d, now: time.Now}
}

// CheckoutResult describes a finalized checkout.
type CheckoutResult struct {
	Count           int                 `json:"count"`
	TotalCents      int64               `json:"total_cents"`
	PaymentIntentID string              `json:"payment_intent_id"`
	Reservations    []model.Reservation `json:"reservations"`
	Invoices        []model.Invoice     `json:"invoices"`
}

// CreateIntent opens a payment intent for the cart total and remembers it
// as the user's pending intent.
func (s *CheckoutService) CreateIntent(ctx context.Context, userID uint64) (payment.Intent, error) {
	lines, err := s.d.Cart.Lines(ctx, userID)
	if err != nil {
		return payment.Intent{}, err
	}
	if len(lines) == 0 {
		s.d.Metrics.Checkout("intent", metrics.OutcomeRejected)
		return payment.Intent{}, ErrEmptyCart
	}
	total := sumLines(lines)

	in, err := s.d.Gateway.CreateIntent(ctx, total, s.describe(lines), s.d.Currency)
	if err != nil {
		s.d.Metrics.Checkout("intent", metrics.OutcomeError)
		s.d.Log.Warn("checkout: create intent for user %d failed: %v", userID, err)
		return payment.Intent{}, fmt.Errorf("%w: %v", ErrExternalFailure, err)
	}
	if err := s.d.Intents.Put(ctx, userID, repository.PendingIntent{
		IntentID:    in.IntentID,
		AmountCents: total,
		CreatedAt:   s.now().UTC(),
	}); err != nil {
		s.d.Metrics.Checkout("intent", metrics.OutcomeError)
		return payment.Intent{}, fmt.Errorf("store pending intent: %w", err)
	}
	s.d.Metrics.Checkout("intent", metrics.OutcomeOK)
	s.d.Log.Info("checkout: user %d intent %s for %d cents", userID, in.IntentID, total)
	return in, nil
}

// describe renders the payment description: venue, date and time for a
// single slot, otherwise the slot count and the distinct venue names.
func (s *CheckoutService) describe(lines []model.CartLine) string {
	if len(lines) == 1 {
		l := lines[0]
		return fmt.Sprintf("Reservation - %s - %s %s", l.VenueName, l.Date.Format("02/01/2006"), model.FormatClock(l.StartTime))
	}
	seen := make(map[string]bool, len(lines))
	names := make([]string, 0, len(lines))
	for _, l := range lines {
		if !seen[l.VenueName] {
			seen[l.VenueName] = true
			names = append(names, l.VenueName)
		}
	}
	return fmt.Sprintf("Reservation of %d slots - %s", len(lines), strings.Join(names, ", "))
}

// ConfirmAndFinalize confirms the user's pending intent with the gateway
// and, on success, books every slot in the cart.  Nothing is written when
// the gateway does not report success; the cart and its holds survive so
// the user can retry.
func (s *CheckoutService) ConfirmAndFinalize(ctx context.Context, userID uint64, intentID string) (*CheckoutResult, error) {
	pending, err := s.d.Intents.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrIntentNotFound
		}
		return nil, fmt.Errorf("load pending intent: %w", err)
	}
	if pending.IntentID != intentID {
		return nil, ErrIntentNotFound
	}

	ok, err := s.d.Gateway.ConfirmIntent(ctx, intentID)
	if err != nil {
		s.d.Metrics.Checkout("confirm", metrics.OutcomeError)
		s.d.Log.Warn("checkout: confirm intent %s failed: %v", intentID, err)
		return nil, fmt.Errorf("%w: %v", ErrExternalFailure, err)
	}
	if !ok {
		s.d.Metrics.Checkout("confirm", metrics.OutcomeRejected)
		s.d.Log.Info("checkout: intent %s not confirmed", intentID)
		return nil, ErrPaymentNotConfirmed
	}

	lines, err := s.d.Cart.Lines(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		s.d.Metrics.Checkout("confirm", metrics.OutcomeRejected)
		return nil, ErrEmptyCart
	}
	total := sumLines(lines)
	if total != pending.AmountCents {
		s.d.Metrics.Checkout("confirm", metrics.OutcomeRejected)
		s.d.Log.Warn("checkout: user %d cart total %d differs from intent %s amount %d",
			userID, total, intentID, pending.AmountCents)
		return nil, ErrCartChanged
	}

	now := s.now().UTC().Truncate(time.Second)
	result := &CheckoutResult{Count: len(lines), TotalCents: total, PaymentIntentID: intentID}
	err = s.d.Tx.InTx(ctx, func(tx *sql.Tx) error {
		result.Reservations = result.Reservations[:0]
		result.Invoices = result.Invoices[:0]
		for _, l := range lines {
			if _, err := s.d.Slots.GetByIDTx(ctx, tx, l.SlotID); err != nil {
				return fmt.Errorf("lock slot %d: %w", l.SlotID, err)
			}
			taken, err := s.d.Reservations.HasActiveForSlotTx(ctx, tx, l.SlotID)
			if err != nil {
				return err
			}
			if taken {
				return ErrSlotUnavailable
			}
			res := model.Reservation{
				UserID:           userID,
				SlotID:           l.SlotID,
				TotalAmountCents: l.PriceCents,
				Status:           model.StatusPaid,
				CreatedAt:        now,
			}
			if err := s.d.Reservations.CreateTx(ctx, tx, &res); err != nil {
				return fmt.Errorf("create reservation: %w", err)
			}
			result.Reservations = append(result.Reservations, res)
		}

		pay := model.Payment{
			ReservationID: result.Reservations[0].ID,
			IntentID:      intentID,
			AmountCents:   total,
			Status:        model.PaymentSucceeded,
			CreatedAt:     now,
		}
		if err := s.d.Payments.CreateTx(ctx, tx, &pay); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrIntentNotFound
			}
			return fmt.Errorf("create payment: %w", err)
		}

		for _, res := range result.Reservations {
			inv := model.Invoice{
				ReservationID: res.ID,
				Number:        InvoiceNumber(now.In(s.d.Location), res.ID),
				AmountCents:   res.TotalAmountCents,
				IssuedAt:      now,
			}
			if err := s.d.Invoices.CreateTx(ctx, tx, &inv); err != nil {
				return fmt.Errorf("create invoice: %w", err)
			}
			result.Invoices = append(result.Invoices, inv)
		}

		// The holds become reservations: slots stay unavailable.
		return s.d.Carts.DeleteAllByUserTx(ctx, tx, userID)
	})
	if err != nil {
		if isExpected(err) {
			s.d.Metrics.Checkout("confirm", metrics.OutcomeRejected)
		} else {
			s.d.Metrics.Checkout("confirm", metrics.OutcomeError)
			s.d.Log.Error("checkout: finalize intent %s for user %d: %v", intentID, userID, err)
		}
		return nil, err
	}
	s.d.Metrics.Checkout("confirm", metrics.OutcomeOK)

	if err := s.d.Intents.Delete(ctx, userID); err != nil {
		s.d.Log.Warn("checkout: drop pending intent of user %d: %v", userID, err)
	}
	s.d.Log.Info("checkout: user %d booked %d slots with intent %s", userID, result.Count, intentID)
	s.publishConfirmed(ctx, userID, lines, result, now)
	return result, nil
}

func (s *CheckoutService) publishConfirmed(ctx context.Context, userID uint64, lines []model.CartLine, r *CheckoutResult, at time.Time) {
	ev := queue.ReservationConfirmedEvent{
		MessageID:        queue.NewMessageID(),
		UserID:           userID,
		PaymentIntentID:  r.PaymentIntentID,
		TotalAmountCents: r.TotalCents,
		ConfirmedAt:      queue.Timestamp(at),
	}
	for i, l := range lines {
		start := model.Slot{Date: l.Date, StartTime: l.StartTime}.StartsAt(s.d.Location)
		ev.Slots = append(ev.Slots, queue.ReservedSlot{
			ReservationID: r.Reservations[i].ID,
			SlotID:        l.SlotID,
			VenueName:     l.VenueName,
			StartsAt:      queue.Timestamp(start),
			AmountCents:   l.PriceCents,
			InvoiceNumber: r.Invoices[i].Number,
		})
	}
	if err := s.d.Events.ReservationConfirmed(ctx, ev); err != nil {
		s.d.Log.Warn("checkout: publish confirmation for user %d: %v", userID, err)
	}
}
