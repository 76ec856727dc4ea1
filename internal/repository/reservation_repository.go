package repository

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"

	"github.com/iliyamo/slot-reservation/internal/model"
)

// ReservationRepo provides access to reservations.  A reservation books
// exactly one slot; a multi-slot checkout produces one row per slot.  All
// timestamps are stored in UTC.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// CreateTx inserts a reservation within the scope of an existing
// transaction and populates the generated ID.  CreatedAt must be set by
// the caller; it anchors the cancellation window.
func (r *ReservationRepo) CreateTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) error {
	result, err := tx.ExecContext(ctx,
		`INSERT INTO reservations (user_id, slot_id, total_amount_cents, status, created_at) VALUES (?, ?, ?, ?, ?)`,
		res.UserID, res.SlotID, res.TotalAmountCents, res.Status, res.CreatedAt.UTC())
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = uint64(id)
	return nil
}

// HasActiveForSlotTx reports whether a non-cancelled reservation already
// references the slot.  Callers lock the slot row first.
func (r *ReservationRepo) HasActiveForSlotTx(ctx context.Context, tx *sql.Tx, slotID uint64) (bool, error) {
	var exists bool
	err := tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM reservations WHERE slot_id = ? AND status <> ?)`,
		slotID, model.StatusCancelled).Scan(&exists)
	return exists, err
}

// GetForUserTx loads and row-locks a reservation that belongs to the user.
// It returns ErrNotFound when the reservation is missing or owned by
// someone else.
func (r *ReservationRepo) GetForUserTx(ctx context.Context, tx *sql.Tx, id, userID uint64) (*model.Reservation, error) {
	var res model.Reservation
	err := tx.QueryRowContext(ctx,
		`SELECT id, user_id, slot_id, total_amount_cents, status, created_at
		 FROM reservations WHERE id = ? AND user_id = ? FOR UPDATE`, id, userID).
		Scan(&res.ID, &res.UserID, &res.SlotID, &res.TotalAmountCents, &res.Status, &res.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &res, nil
}

// UpdateStatusTx sets the status of a reservation.
func (r *ReservationRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status string) error {
	res, err := tx.ExecContext(ctx, `UPDATE reservations SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetOwnership returns the booking customer and the owner of the slot's
// venue, the two parties that may see the reservation's invoice.
func (r *ReservationRepo) GetOwnership(ctx context.Context, id uint64) (*model.ReservationOwnership, error) {
	var o model.ReservationOwnership
	err := r.db.QueryRowContext(ctx,
		`SELECT res.id, res.user_id, v.owner_id
		 FROM reservations res
		 JOIN slots s  ON s.id = res.slot_id
		 JOIN venues v ON v.id = s.venue_id
		 WHERE res.id = ?`, id).Scan(&o.ReservationID, &o.UserID, &o.VenueOwnerID)
	if err != nil {
		return nil, notFound(err)
	}
	return &o, nil
}

func reservationViewSelect() sq.SelectBuilder {
	return sq.Select(
		"res.id", "res.user_id", "res.slot_id", "v.id", "v.name",
		"s.slot_date", "s.start_time", "s.end_time",
		"res.status", "res.total_amount_cents", "res.created_at", "i.invoice_number",
	).
		From("reservations res").
		Join("slots s ON s.id = res.slot_id").
		Join("venues v ON v.id = s.venue_id").
		LeftJoin("invoices i ON i.reservation_id = res.id")
}

func (r *ReservationRepo) listViews(ctx context.Context, b sq.SelectBuilder) ([]model.ReservationView, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.ReservationView, 0)
	for rows.Next() {
		var v model.ReservationView
		var start, end string
		var number sql.NullString
		if err := rows.Scan(&v.ID, &v.UserID, &v.SlotID, &v.VenueID, &v.VenueName,
			&v.Date, &start, &end, &v.Status, &v.TotalAmountCents, &v.CreatedAt, &number); err != nil {
			return nil, err
		}
		if v.StartTime, err = model.ParseClock(start); err != nil {
			return nil, err
		}
		if v.EndTime, err = model.ParseClock(end); err != nil {
			return nil, err
		}
		if number.Valid {
			n := number.String
			v.InvoiceNumber = &n
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// ListByUser returns the user's reservations, newest first.
func (r *ReservationRepo) ListByUser(ctx context.Context, userID uint64) ([]model.ReservationView, error) {
	return r.listViews(ctx, reservationViewSelect().
		Where(sq.Eq{"res.user_id": userID}).
		OrderBy("res.created_at DESC", "res.id DESC"))
}

// ListByVenue returns the reservations on a venue's slots in slot order.
func (r *ReservationRepo) ListByVenue(ctx context.Context, venueID uint64) ([]model.ReservationView, error) {
	return r.listViews(ctx, reservationViewSelect().
		Where(sq.Eq{"v.id": venueID}).
		OrderBy("s.slot_date ASC", "s.start_time ASC", "res.id ASC"))
}

// ListPaidWithoutInvoice returns up to limit paid reservations that have
// no invoice, oldest first.  It feeds the invoice reconciliation job.
func (r *ReservationRepo) ListPaidWithoutInvoice(ctx context.Context, limit int) ([]model.Reservation, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT res.id, res.user_id, res.slot_id, res.total_amount_cents, res.status, res.created_at
		 FROM reservations res
		 LEFT JOIN invoices i ON i.reservation_id = res.id
		 WHERE res.status = ? AND i.id IS NULL
		 ORDER BY res.id
		 LIMIT ?`, model.StatusPaid, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Reservation, 0)
	for rows.Next() {
		var res model.Reservation
		if err := rows.Scan(&res.ID, &res.UserID, &res.SlotID, &res.TotalAmountCents, &res.Status, &res.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}
