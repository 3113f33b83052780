package reset

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"bioattend/internal/domain"
)

// PostgresRepo persists reset tokens in Postgres.
type PostgresRepo struct {
	db *sql.DB
}

// NewPostgresRepo creates a repo.
func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

// Save inserts a freshly minted token.
func (r *PostgresRepo) Save(ctx context.Context, t *domain.PasswordResetToken) error {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO password_reset_tokens (user_id, token, expires_at, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, t.UserID, t.Token, t.ExpiresAt, t.CreatedAt)
	return row.Scan(&t.ID)
}

// GetByToken returns a token row or nil.
func (r *PostgresRepo) GetByToken(ctx context.Context, token string) (*domain.PasswordResetToken, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, token, expires_at, used_at, created_at
		FROM password_reset_tokens WHERE token = $1
	`, token)
	var t domain.PasswordResetToken
	if err := row.Scan(&t.ID, &t.UserID, &t.Token, &t.ExpiresAt, &t.UsedAt, &t.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

// DeleteByUser removes a user's tokens so at most one live token exists.
func (r *PostgresRepo) DeleteByUser(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM password_reset_tokens WHERE user_id = $1`, userID)
	return err
}

// PurgeExpired is housekeeping run on each request.
func (r *PostgresRepo) PurgeExpired(ctx context.Context, now time.Time) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM password_reset_tokens WHERE expires_at < $1`, now)
	return err
}

// MarkUsed stamps used_at, making the token permanently inert.
func (r *PostgresRepo) MarkUsed(ctx context.Context, id int64, usedAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE password_reset_tokens SET used_at = $2 WHERE id = $1`, id, usedAt)
	return err
}
