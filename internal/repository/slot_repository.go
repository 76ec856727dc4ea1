package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/slot-reservation/internal/model"
)

// SlotRepo owns the slots table.  The available flag is the single
// mutual-exclusion point of the booking flow: HoldIfAvailable flips it with
// a conditional UPDATE so that, under concurrent callers, at most one
// statement matches the row.
type SlotRepo struct {
	db *sql.DB
}

func NewSlotRepo(db *sql.DB) *SlotRepo { return &SlotRepo{db: db} }

// DB exposes the handle for callers that start their own transactions.
func (r *SlotRepo) DB() *sql.DB { return r.db }

const slotColumns = `id, venue_id, slot_date, start_time, end_time, price_cents, available`

// bulkInsertChunk bounds the number of rows per INSERT statement.
const bulkInsertChunk = 500

func scanSlot(row interface{ Scan(...any) error }) (*model.Slot, error) {
	var s model.Slot
	var start, end string
	if err := row.Scan(&s.ID, &s.VenueID, &s.Date, &start, &end, &s.PriceCents, &s.Available); err != nil {
		return nil, notFound(err)
	}
	var err error
	if s.StartTime, err = model.ParseClock(start); err != nil {
		return nil, err
	}
	if s.EndTime, err = model.ParseClock(end); err != nil {
		return nil, err
	}
	return &s, nil
}

// CreateBulkTx inserts slots in chunks.  Rows colliding with an existing
// (venue, date, start) are left untouched, which makes schedule top-ups
// idempotent.
func (r *SlotRepo) CreateBulkTx(ctx context.Context, tx *sql.Tx, slots []model.Slot) error {
	for start := 0; start < len(slots); start += bulkInsertChunk {
		end := start + bulkInsertChunk
		if end > len(slots) {
			end = len(slots)
		}
		chunk := slots[start:end]
		var b strings.Builder
		b.WriteString(`INSERT INTO slots (venue_id, slot_date, start_time, end_time, price_cents, available) VALUES `)
		args := make([]any, 0, len(chunk)*6)
		for i, s := range chunk {
			if i > 0 {
				b.WriteString(",")
			}
			b.WriteString("(?, ?, ?, ?, ?, ?)")
			args = append(args, s.VenueID, s.Date.Format("2006-01-02"), model.SQLClock(s.StartTime),
				model.SQLClock(s.EndTime), s.PriceCents, s.Available)
		}
		b.WriteString(` ON DUPLICATE KEY UPDATE id = id`)
		if _, err := tx.ExecContext(ctx, b.String(), args...); err != nil {
			return err
		}
	}
	return nil
}

// GetByID returns ErrNotFound when no slot has the id.
func (r *SlotRepo) GetByID(ctx context.Context, id uint64) (*model.Slot, error) {
	return scanSlot(r.db.QueryRowContext(ctx, `SELECT `+slotColumns+` FROM slots WHERE id = ?`, id))
}

// GetByIDTx reads the slot with a row lock held until the transaction ends.
func (r *SlotRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Slot, error) {
	return scanSlot(tx.QueryRowContext(ctx, `SELECT `+slotColumns+` FROM slots WHERE id = ? FOR UPDATE`, id))
}

// HoldIfAvailable marks the slot unavailable only if it is currently
// available.  It returns true when this call won the row.  A false result
// does not distinguish "already held" from "no such slot".
func (r *SlotRepo) HoldIfAvailable(ctx context.Context, id uint64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE slots SET available = FALSE WHERE id = ? AND available = TRUE`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Release marks the slot available.  Releasing an available slot is a
// no-op success; ErrNotFound is returned only when the id is unknown.
func (r *SlotRepo) Release(ctx context.Context, id uint64) error {
	return release(ctx, r.db, id)
}

// ReleaseTx is Release inside an existing transaction.
func (r *SlotRepo) ReleaseTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	return release(ctx, tx, id)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func release(ctx context.Context, db execer, id uint64) error {
	res, err := db.ExecContext(ctx, `UPDATE slots SET available = TRUE WHERE id = ?`, id)
	if err != nil {
		return err
	}
	// clientFoundRows=true: matched rows, not changed rows.
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByVenue returns every slot of a venue from the given day on, in
// (date, start) order, whatever their availability.
func (r *SlotRepo) ListByVenue(ctx context.Context, venueID uint64, from time.Time) ([]model.Slot, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+slotColumns+` FROM slots WHERE venue_id = ? AND slot_date >= ? ORDER BY slot_date, start_time`,
		venueID, from.Format("2006-01-02"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Slot, 0)
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// RepriceAvailableTx sets a new price on the venue's still-available slots
// from the given day on.  Held and booked slots keep the price they were
// taken at.
func (r *SlotRepo) RepriceAvailableTx(ctx context.Context, tx *sql.Tx, venueID uint64, priceCents int64, from time.Time) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE slots SET price_cents = ? WHERE venue_id = ? AND available = TRUE AND slot_date >= ?`,
		priceCents, venueID, from.Format("2006-01-02"))
	return err
}

// ReleaseStuck makes available again the slots that are unavailable while
// nothing explains it: no cart hold and no non-cancelled reservation.  The
// grace period skips slots touched recently, which covers a hold whose
// cart insert is still in flight.
func (r *SlotRepo) ReleaseStuck(ctx context.Context, grace time.Duration) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE slots s SET s.available = TRUE
		 WHERE s.available = FALSE
		   AND s.updated_at < (NOW() - INTERVAL ? SECOND)
		   AND NOT EXISTS (SELECT 1 FROM cart_holds c WHERE c.slot_id = s.id)
		   AND NOT EXISTS (SELECT 1 FROM reservations res WHERE res.slot_id = s.id AND res.status <> ?)`,
		int64(grace/time.Second), model.StatusCancelled)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
