package repository

import (
	"context"
	"database/sql"
)

// Transactor runs a function inside a database transaction.  The function
// receives the transaction; a nil return commits, anything else rolls back.
type Transactor struct {
	db *sql.DB
}

func NewTransactor(db *sql.DB) *Transactor { return &Transactor{db: db} }

// InTx begins a transaction, runs fn and commits.  On error or panic the
// transaction is rolled back.
func (t *Transactor) InTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
