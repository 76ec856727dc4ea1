package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/slot-reservation/internal/model"
)

// VenueRepo provides CRUD on the venues table.  Ownership checks are done
// by the service layer; queries here are plain by-id access.
type VenueRepo struct {
	db *sql.DB
}

func NewVenueRepo(db *sql.DB) *VenueRepo { return &VenueRepo{db: db} }

const venueColumns = `id, owner_id, name, COALESCE(description, ''), category, location, created_at, updated_at`

func scanVenue(row interface{ Scan(...any) error }) (*model.Venue, error) {
	var v model.Venue
	if err := row.Scan(&v.ID, &v.OwnerID, &v.Name, &v.Description, &v.Category, &v.Location, &v.CreatedAt, &v.UpdatedAt); err != nil {
		return nil, notFound(err)
	}
	return &v, nil
}

// CreateTx inserts a venue and fills its ID.  Slots for the venue are
// generated in the same transaction by the caller.
func (r *VenueRepo) CreateTx(ctx context.Context, tx *sql.Tx, v *model.Venue) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO venues (owner_id, name, description, category, location) VALUES (?, ?, ?, ?, ?)`,
		v.OwnerID, v.Name, v.Description, v.Category, v.Location)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	v.ID = uint64(id)
	return nil
}

// GetByID returns ErrNotFound when the venue does not exist.
func (r *VenueRepo) GetByID(ctx context.Context, id uint64) (*model.Venue, error) {
	return scanVenue(r.db.QueryRowContext(ctx, `SELECT `+venueColumns+` FROM venues WHERE id = ?`, id))
}

// ListByOwner returns the supplier's venues, newest first.
func (r *VenueRepo) ListByOwner(ctx context.Context, ownerID uint64) ([]model.Venue, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+venueColumns+` FROM venues WHERE owner_id = ? ORDER BY created_at DESC, id DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Venue, 0)
	for rows.Next() {
		v, err := scanVenue(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}

// UpdateTx overwrites the editable columns.
func (r *VenueRepo) UpdateTx(ctx context.Context, tx *sql.Tx, v *model.Venue) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE venues SET name = ?, description = ?, category = ?, location = ? WHERE id = ?`,
		v.Name, v.Description, v.Category, v.Location, v.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// HasReservations reports whether any slot of the venue is referenced by a
// reservation, whatever its status.
func (r *VenueRepo) HasReservations(ctx context.Context, venueID uint64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM reservations res JOIN slots s ON s.id = res.slot_id WHERE s.venue_id = ?)`,
		venueID).Scan(&exists)
	return exists, err
}

// Delete removes the venue; slots and cart holds on them cascade.  It
// re-checks for reservations inside the statement so a reservation created
// after HasReservations still blocks the delete.
func (r *VenueRepo) Delete(ctx context.Context, venueID uint64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM venues WHERE id = ? AND NOT EXISTS (
		     SELECT 1 FROM reservations res JOIN slots s ON s.id = res.slot_id WHERE s.venue_id = ?)`,
		venueID, venueID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetByID(ctx, venueID); err != nil {
			return err
		}
		return ErrConflict
	}
	return nil
}
