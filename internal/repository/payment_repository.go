package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/slot-reservation/internal/model"
)

// PaymentRepo stores confirmed payments.  intent_id is unique, so a
// replayed confirmation of the same intent fails with ErrDuplicate.
type PaymentRepo struct {
	db *sql.DB
}

func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

// CreateTx inserts the payment and fills its id.
func (r *PaymentRepo) CreateTx(ctx context.Context, tx *sql.Tx, p *model.Payment) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO payments (reservation_id, intent_id, amount_cents, status, created_at) VALUES (?, ?, ?, ?, ?)`,
		p.ReservationID, p.IntentID, p.AmountCents, p.Status, p.CreatedAt.UTC())
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
	p.ID = uint64(id)
	return nil
}

// GetByIntentID returns ErrNotFound when the intent was never recorded.
func (r *PaymentRepo) GetByIntentID(ctx context.Context, intentID string) (*model.Payment, error) {
	var p model.Payment
	err := r.db.QueryRowContext(ctx,
		`SELECT id, reservation_id, intent_id, amount_cents, status, created_at FROM payments WHERE intent_id = ?`,
		intentID).Scan(&p.ID, &p.ReservationID, &p.IntentID, &p.AmountCents, &p.Status, &p.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}
