package biometric

import (
	"context"
	"database/sql"
	"errors"

	"bioattend/internal/domain"
)

// PostgresRepo persists the enrollment ledger in Postgres.
type PostgresRepo struct {
	db *sql.DB
}

// NewPostgresRepo creates a repo.
func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

// Upsert writes the ledger row, preserving enrolled_at on conflict so the
// first-enrollment timestamp never moves.
func (r *PostgresRepo) Upsert(ctx context.Context, e *domain.BiometricEnrollment) error {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO biometric_enrollments (user_id, fingerprint_enrolled, face_enrolled, enrolled_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET
			fingerprint_enrolled = EXCLUDED.fingerprint_enrolled,
			face_enrolled = EXCLUDED.face_enrolled,
			updated_at = EXCLUDED.updated_at
		RETURNING id, enrolled_at
	`, e.UserID, e.FingerprintEnrolled, e.FaceEnrolled, e.EnrolledAt, e.UpdatedAt)
	return row.Scan(&e.ID, &e.EnrolledAt)
}

// GetByUserID returns the ledger row or nil.
func (r *PostgresRepo) GetByUserID(ctx context.Context, userID int64) (*domain.BiometricEnrollment, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, fingerprint_enrolled, face_enrolled, enrolled_at, updated_at
		FROM biometric_enrollments WHERE user_id = $1
	`, userID)
	var e domain.BiometricEnrollment
	if err := row.Scan(&e.ID, &e.UserID, &e.FingerprintEnrolled, &e.FaceEnrolled, &e.EnrolledAt, &e.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}
