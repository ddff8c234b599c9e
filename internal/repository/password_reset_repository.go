package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PasswordResetRepo persists reset tokens (single 'token' column holding
// the SHA‑256 hash) and consumes them.
type PasswordResetRepo struct{ DB *sql.DB }

func NewPasswordResetRepo(db *sql.DB) *PasswordResetRepo { return &PasswordResetRepo{DB: db} }

// Create inserts an unused reset row for userID.
func (r *PasswordResetRepo) Create(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO password_resets (usuario_id, token, expira_en, usado) VALUES (?,?,?,FALSE)",
		userID, tokenHash, exp.UTC())
	return err
}

// Consume marks the reset identified by tokenHash as used and stores
// passwordHash for its user, all in one transaction.  The row is locked
// while it is checked so two concurrent requests with the same token
// cannot both succeed.  Unknown, expired and already used tokens all
// yield ErrResetNotFound.
func (r *PasswordResetRepo) Consume(ctx context.Context, tokenHash, passwordHash string, now time.Time) (err error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var id, userID uint64
	err = tx.QueryRowContext(ctx,
		`SELECT id, usuario_id FROM password_resets
		 WHERE token = ? AND usado = FALSE AND expira_en > ?
		 LIMIT 1 FOR UPDATE`,
		tokenHash, now.UTC()).Scan(&id, &userID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrResetNotFound
	}
	if err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx,
		"UPDATE password_resets SET usado = TRUE WHERE id = ? AND usado = FALSE", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n != 1 {
		return ErrResetNotFound
	}

	res, err = tx.ExecContext(ctx, "UPDATE usuarios SET password = ? WHERE id = ?", passwordHash, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n != 1 {
		return ErrUserNotFound
	}
	return tx.Commit()
}
