package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/iliyamo/slot-reservation/internal/logger"
	"github.com/iliyamo/slot-reservation/internal/metrics"
	"github.com/iliyamo/slot-reservation/internal/model"
	"github.com/iliyamo/slot-reservation/internal/queue"
)

// ReservationService lists a customer's reservations and cancels them.
type ReservationService struct {
	tx           Transactor
	reservations ReservationRepository
	slots        SlotRepository
	events       EventPublisher
	policy       CancellationPolicy
	loc          *time.Location
	now          func() time.Time
	log          logger.Logger
	metrics      *metrics.Metrics
}

func NewReservationService(tx Transactor, reservations ReservationRepository, slots SlotRepository,
	events EventPublisher, policy CancellationPolicy, loc *time.Location, log logger.Logger, m *metrics.Metrics) *ReservationService {
	if events == nil {
		events = nopPublisher{}
	}
	if loc == nil {
		loc = time.UTC
	}
	return &ReservationService{
		tx: tx, reservations: reservations, slots: slots, events: events,
		policy: policy, loc: loc, now: time.Now, log: log, metrics: m,
	}
}

// ReservationSummary is a reservation with its cancellability right now.
type ReservationSummary struct {
	model.ReservationView
	SlotDate    string `json:"slot_date"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	Cancellable bool   `json:"cancellable"`
}

// ListMine returns the user's reservations, newest first.
func (s *ReservationService) ListMine(ctx context.Context, userID uint64) ([]ReservationSummary, error) {
	views, err := s.reservations.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	now := s.now()
	out := make([]ReservationSummary, 0, len(views))
	for _, v := range views {
		start := model.Slot{Date: v.Date, StartTime: v.StartTime}.StartsAt(s.loc)
		res := model.Reservation{Status: v.Status, CreatedAt: v.CreatedAt}
		out = append(out, ReservationSummary{
			ReservationView: v,
			SlotDate:        v.Date.Format("2006-01-02"),
			StartTime:       model.FormatClock(v.StartTime),
			EndTime:         model.FormatClock(v.EndTime),
			Cancellable:     s.policy.Evaluate(res, start, now) == nil,
		})
	}
	return out, nil
}

// Cancel applies the cancellation policy and, when it allows, marks the
// reservation cancelled and releases its slot in one transaction.
func (s *ReservationService) Cancel(ctx context.Context, userID, reservationID uint64) (*model.Reservation, error) {
	var res *model.Reservation
	now := s.now()
	err := s.tx.InTx(ctx, func(tx *sql.Tx) error {
		var err error
		res, err = s.reservations.GetForUserTx(ctx, tx, reservationID, userID)
		if err != nil {
			return mapRepoErr(err)
		}
		slot, err := s.slots.GetByIDTx(ctx, tx, res.SlotID)
		if err != nil {
			return fmt.Errorf("load slot %d: %w", res.SlotID, err)
		}
		if err := s.policy.Evaluate(*res, slot.StartsAt(s.loc), now); err != nil {
			return err
		}
		if err := s.reservations.UpdateStatusTx(ctx, tx, res.ID, model.StatusCancelled); err != nil {
			return fmt.Errorf("cancel reservation: %w", err)
		}
		if err := s.slots.ReleaseTx(ctx, tx, res.SlotID); err != nil {
			return fmt.Errorf("release slot: %w", err)
		}
		return nil
	})
	if err != nil {
		if isExpected(err) {
			s.metrics.Cancellation(metrics.OutcomeRejected)
			s.log.Info("cancel: reservation %d by user %d refused: %v", reservationID, userID, err)
		} else {
			s.metrics.Cancellation(metrics.OutcomeError)
			s.log.Error("cancel: reservation %d by user %d: %v", reservationID, userID, err)
		}
		return nil, err
	}
	res.Status = model.StatusCancelled
	s.metrics.Cancellation(metrics.OutcomeOK)
	s.metrics.Released(1)

	ev := queue.ReservationCancelledEvent{
		MessageID:     queue.NewMessageID(),
		ReservationID: res.ID,
		UserID:        userID,
		SlotID:        res.SlotID,
		CancelledAt:   queue.Timestamp(now),
	}
	if err := s.events.ReservationCancelled(ctx, ev); err != nil {
		s.log.Warn("cancel: publish for reservation %d: %v", res.ID, err)
	}
	return res, nil
}
