package repository

import (
	"context"
	"database/sql"
	"time"
)

// SessionRepo keeps one row per login session, keyed by the SHA-256 of the
// refresh token handed to the client.  A refresh token is single use:
// Consume revokes the row it accepts.
type SessionRepo struct {
	DB  *sql.DB
	now func() time.Time
}

func NewSessionRepo(db *sql.DB) *SessionRepo {
	return &SessionRepo{DB: db, now: time.Now}
}

// Open records a new session for userID that ends at exp.
func (r *SessionRepo) Open(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?,?,?)",
		userID, tokenHash, exp.UTC())
	return err
}

// Consume locks the session row, checks that it is still live and revokes
// it in the same transaction, so two concurrent refreshes with one token
// cannot both succeed.  Unknown, revoked and expired sessions yield
// ErrNotFound.
func (r *SessionRepo) Consume(ctx context.Context, tokenHash string) (uint64, error) {
	var userID uint64
	err := NewTransactor(r.DB).InTx(ctx, func(tx *sql.Tx) error {
		var (
			id        uint64
			expiresAt time.Time
			revokedAt sql.NullTime
		)
		err := tx.QueryRowContext(ctx,
			"SELECT id, user_id, expires_at, revoked_at FROM refresh_tokens WHERE token_hash=? LIMIT 1 FOR UPDATE",
			tokenHash).Scan(&id, &userID, &expiresAt, &revokedAt)
		if err != nil {
			return notFound(err)
		}
		if revokedAt.Valid || !r.now().UTC().Before(expiresAt) {
			return ErrNotFound
		}
		_, err = tx.ExecContext(ctx,
			"UPDATE refresh_tokens SET revoked_at=UTC_TIMESTAMP() WHERE id=?", id)
		return err
	})
	if err != nil {
		return 0, err
	}
	return userID, nil
}

// CloseAll ends every open session of userID.
func (r *SessionRepo) CloseAll(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=UTC_TIMESTAMP() WHERE user_id=? AND revoked_at IS NULL",
		userID)
	return err
}
