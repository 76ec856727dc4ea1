package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/slot-reservation/internal/model"
)

// InvoiceRepo stores one invoice per reservation.
type InvoiceRepo struct {
	db *sql.DB
}

func NewInvoiceRepo(db *sql.DB) *InvoiceRepo { return &InvoiceRepo{db: db} }

// CreateTx inserts the invoice.  A second invoice for the same reservation
// yields ErrDuplicate.
func (r *InvoiceRepo) CreateTx(ctx context.Context, tx *sql.Tx, inv *model.Invoice) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO invoices (reservation_id, invoice_number, amount_cents, issued_at) VALUES (?, ?, ?, ?)`,
		inv.ReservationID, inv.Number, inv.AmountCents, inv.IssuedAt.UTC())
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	inv.ID = uint64(id)
	return nil
}

// GetByReservationID returns ErrNotFound when the reservation has no invoice.
func (r *InvoiceRepo) GetByReservationID(ctx context.Context, reservationID uint64) (*model.Invoice, error) {
	var inv model.Invoice
	err := r.db.QueryRowContext(ctx,
		`SELECT id, reservation_id, invoice_number, amount_cents, issued_at FROM invoices WHERE reservation_id = ?`,
		reservationID).Scan(&inv.ID, &inv.ReservationID, &inv.Number, &inv.AmountCents, &inv.IssuedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &inv, nil
}
