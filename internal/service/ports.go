package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/slot-reservation/internal/model"
	"github.com/iliyamo/slot-reservation/internal/queue"
	"github.com/iliyamo/slot-reservation/internal/repository"
)

// Transactor runs fn in one database transaction.
type Transactor interface {
	InTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

type SlotRepository interface {
	GetByID(ctx context.Context, id uint64) (*model.Slot, error)
	GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Slot, error)
	HoldIfAvailable(ctx context.Context, id uint64) (bool, error)
	Release(ctx context.Context, id uint64) error
	ReleaseTx(ctx context.Context, tx *sql.Tx, id uint64) error
	SearchAvailable(ctx context.Context, q repository.SlotSearchQuery) ([]model.SlotListing, int64, error)
	GetListing(ctx context.Context, id uint64) (*model.SlotListing, error)
	ListByVenue(ctx context.Context, venueID uint64, from time.Time) ([]model.Slot, error)
	CreateBulkTx(ctx context.Context, tx *sql.Tx, slots []model.Slot) error
	RepriceAvailableTx(ctx context.Context, tx *sql.Tx, venueID uint64, priceCents int64, from time.Time) error
	ReleaseStuck(ctx context.Context, grace time.Duration) (int64, error)
}

type CartRepository interface {
	Insert(ctx context.Context, userID, slotID uint64) (*model.CartHold, error)
	Exists(ctx context.Context, userID, slotID uint64) (bool, error)
	GetForUser(ctx context.Context, holdID, userID uint64) (*model.CartHold, error)
	ListByUser(ctx context.Context, userID uint64) ([]model.CartLine, error)
	Delete(ctx context.Context, holdID uint64) error
	DeleteAllByUser(ctx context.Context, userID uint64) error
	DeleteAllByUserTx(ctx context.Context, tx *sql.Tx, userID uint64) error
}

type ReservationRepository interface {
	CreateTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) error
	HasActiveForSlotTx(ctx context.Context, tx *sql.Tx, slotID uint64) (bool, error)
	GetForUserTx(ctx context.Context, tx *sql.Tx, id, userID uint64) (*model.Reservation, error)
	UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status string) error
	GetOwnership(ctx context.Context, id uint64) (*model.ReservationOwnership, error)
	ListByUser(ctx context.Context, userID uint64) ([]model.ReservationView, error)
	ListByVenue(ctx context.Context, venueID uint64) ([]model.ReservationView, error)
	ListPaidWithoutInvoice(ctx context.Context, limit int) ([]model.Reservation, error)
}

type PaymentRepository interface {
	CreateTx(ctx context.Context, tx *sql.Tx, p *model.Payment) error
}

type InvoiceRepository interface {
	CreateTx(ctx context.Context, tx *sql.Tx, inv *model.Invoice) error
	GetByReservationID(ctx context.Context, reservationID uint64) (*model.Invoice, error)
}

type VenueRepository interface {
	CreateTx(ctx context.Context, tx *sql.Tx, v *model.Venue) error
	GetByID(ctx context.Context, id uint64) (*model.Venue, error)
	ListByOwner(ctx context.Context, ownerID uint64) ([]model.Venue, error)
	UpdateTx(ctx context.Context, tx *sql.Tx, v *model.Venue) error
	HasReservations(ctx context.Context, venueID uint64) (bool, error)
	Delete(ctx context.Context, venueID uint64) error
}

// IntentStore keeps the single pending payment intent of each user.
type IntentStore interface {
	Put(ctx context.Context, userID uint64, in repository.PendingIntent) error
	Get(ctx context.Context, userID uint64) (*repository.PendingIntent, error)
	Delete(ctx context.Context, userID uint64) error
}

// EventPublisher announces reservation lifecycle events.  Publishing is
// best effort; services log a failure and carry on.
type EventPublisher interface {
	ReservationConfirmed(ctx context.Context, ev queue.ReservationConfirmedEvent) error
	ReservationCancelled(ctx context.Context, ev queue.ReservationCancelledEvent) error
}

type nopPublisher struct{}

func (nopPublisher) ReservationConfirmed(context.Context, queue.ReservationConfirmedEvent) error {
	return nil
}

func (nopPublisher) ReservationCancelled(context.Context, queue.ReservationCancelledEvent) error {
	return nil
}
