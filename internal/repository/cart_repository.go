package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/slot-reservation/internal/model"
)

// CartRepo provides access to cart_holds.  A (user, slot) pair is unique;
// inserting it twice yields ErrDuplicate.
type CartRepo struct {
	db *sql.DB
}

func NewCartRepo(db *sql.DB) *CartRepo { return &CartRepo{db: db} }

// Insert records a hold and returns it with its generated id.
func (r *CartRepo) Insert(ctx context.Context, userID, slotID uint64) (*model.CartHold, error) {
	now := time.Now().UTC().Truncate(time.Second)
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO cart_holds (user_id, slot_id, created_at) VALUES (?, ?, ?)`, userID, slotID, now)
	if err != nil {
		if isDuplicate(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &model.CartHold{ID: uint64(id), UserID: userID, SlotID: slotID, CreatedAt: now}, nil
}

// Exists reports whether the user already holds the slot.
func (r *CartRepo) Exists(ctx context.Context, userID, slotID uint64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM cart_holds WHERE user_id = ? AND slot_id = ?)`, userID, slotID).Scan(&exists)
	return exists, err
}

// GetForUser returns the hold only if it belongs to the user.
func (r *CartRepo) GetForUser(ctx context.Context, holdID, userID uint64) (*model.CartHold, error) {
	var h model.CartHold
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, slot_id, created_at FROM cart_holds WHERE id = ? AND user_id = ?`, holdID, userID).
		Scan(&h.ID, &h.UserID, &h.SlotID, &h.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &h, nil
}

// ListByUser returns the user's holds joined with slot and venue, in the
// order they were added.
func (r *CartRepo) ListByUser(ctx context.Context, userID uint64) ([]model.CartLine, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT c.id, s.id, v.id, v.name, s.slot_date, s.start_time, s.end_time, s.price_cents, s.available, c.created_at
		 FROM cart_holds c
		 JOIN slots s  ON s.id = c.slot_id
		 JOIN venues v ON v.id = s.venue_id
		 WHERE c.user_id = ?
		 ORDER BY c.created_at, c.id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.CartLine, 0)
	for rows.Next() {
		var l model.CartLine
		var start, end string
		if err := rows.Scan(&l.HoldID, &l.SlotID, &l.VenueID, &l.VenueName, &l.Date, &start, &end,
			&l.PriceCents, &l.SlotAvailable, &l.AddedAt); err != nil {
			return nil, err
		}
		if l.StartTime, err = model.ParseClock(start); err != nil {
			return nil, err
		}
		if l.EndTime, err = model.ParseClock(end); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// Delete removes one hold.  Deleting a missing hold is not an error.
func (r *CartRepo) Delete(ctx context.Context, holdID uint64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM cart_holds WHERE id = ?`, holdID)
	return err
}

// DeleteAllByUser empties the user's cart without touching slots.
func (r *CartRepo) DeleteAllByUser(ctx context.Context, userID uint64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM cart_holds WHERE user_id = ?`, userID)
	return err
}

// DeleteAllByUserTx is DeleteAllByUser inside a transaction.
func (r *CartRepo) DeleteAllByUserTx(ctx context.Context, tx *sql.Tx, userID uint64) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM cart_holds WHERE user_id = ?`, userID)
	return err
}
