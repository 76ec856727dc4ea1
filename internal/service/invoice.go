package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/slot-reservation/internal/logger"
	"github.com/iliyamo/slot-reservation/internal/model"
	"github.com/iliyamo/slot-reservation/internal/repository"
)

// InvoiceNumber formats FAC-yyyyMMdd-NNNNNN from the issue day and the
// reservation id.
func InvoiceNumber(issued time.Time, reservationID uint64) string {
	return fmt.Sprintf("FAC-%s-%06d", issued.Format("20060102"), reservationID)
}

// InvoiceService reads invoices under the access predicate and repairs
// paid reservations that lack one.
type InvoiceService struct {
	tx           Transactor
	reservations ReservationRepository
	invoices     InvoiceRepository
	loc          *time.Location
	now          func() time.Time
	log          logger.Logger
}

func NewInvoiceService(tx Transactor, reservations ReservationRepository, invoices InvoiceRepository,
	loc *time.Location, log logger.Logger) *InvoiceService {
	if loc == nil {
		loc = time.UTC
	}
	return &InvoiceService{tx: tx, reservations: reservations, invoices: invoices, loc: loc, now: time.Now, log: log}
}

// Get returns the reservation's invoice when p may read it.  Invoices the
// principal may not read are reported as not found.
func (s *InvoiceService) Get(ctx context.Context, p Principal, reservationID uint64) (*model.Invoice, error) {
	own, err := s.reservations.GetOwnership(ctx, reservationID)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	if !p.CanReadInvoice(*own) {
		return nil, ErrNotFound
	}
	inv, err := s.invoices.GetByReservationID(ctx, reservationID)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	return inv, nil
}

// Reconcile issues the missing invoices of up to limit paid reservations
// and returns how many it created.
func (s *InvoiceService) Reconcile(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = 100
	}
	missing, err := s.reservations.ListPaidWithoutInvoice(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("list reservations without invoice: %w", err)
	}
	created := 0
	for _, res := range missing {
		now := s.now().UTC().Truncate(time.Second)
		inv := model.Invoice{
			ReservationID: res.ID,
			Number:        InvoiceNumber(now.In(s.loc), res.ID),
			AmountCents:   res.TotalAmountCents,
			IssuedAt:      now,
		}
		err := s.tx.InTx(ctx, func(tx *sql.Tx) error {
			return s.invoices.CreateTx(ctx, tx, &inv)
		})
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			continue
		case err != nil:
			return created, fmt.Errorf("create invoice for reservation %d: %w", res.ID, err)
		}
		created++
		s.log.Info("reconcile: issued %s for reservation %d", inv.Number, res.ID)
	}
	return created, nil
}
