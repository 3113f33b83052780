package identity

import (
	"context"
	"database/sql"
	"errors"

	"bioattend/internal/domain"
	"bioattend/internal/store"
)

// Advisory lock keys serializing sequence assignment per role.
const (
	lockStudentSeq = 4201
	lockStaffSeq   = 4202
)

// PostgresRepo persists users in Postgres.
type PostgresRepo struct {
	db *sql.DB
}

// NewPostgresRepo creates a repo.
func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

const userColumns = `id, email, password_hash, name, role, student_id, staff_id,
	student_sequence, staff_sequence, department, fingerprint_id, face_id,
	avatar, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Role,
		&u.StudentID, &u.StaffID, &u.StudentSeq, &u.StaffSeq, &u.Department,
		&u.FingerprintID, &u.FaceID, &u.Avatar, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// Create inserts the user, assigning the next role sequence inside the
// same transaction. A per-role advisory lock serializes the scan-derived
// sequence computation against concurrent registrations.
func (r *PostgresRepo) Create(ctx context.Context, u *domain.User) error {
	err := store.InTx(ctx, r.db, func(tx *sql.Tx) error {
		if u.Role == domain.RoleStudent || u.Role == domain.RoleLecturer {
			lockKey := lockStudentSeq
			if u.Role == domain.RoleLecturer {
				lockKey = lockStaffSeq
			}
			if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, lockKey); err != nil {
				return err
			}
			rows, err := r.seqSources(ctx, tx, u.Role)
			if err != nil {
				return err
			}
			seq := NextSequence(rows)
			u.SetRoleCode(domain.RoleCode{Seq: seq, Code: domain.FormatRoleCode(u.Role, seq)})
		}

		row := tx.QueryRowContext(ctx, `
			INSERT INTO users (email, password_hash, name, role, student_id, staff_id,
				student_sequence, staff_sequence, department, fingerprint_id, face_id,
				avatar, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
			RETURNING id
		`, u.Email, u.PasswordHash, u.Name, u.Role, u.StudentID, u.StaffID,
			u.StudentSeq, u.StaffSeq, u.Department, u.FingerprintID, u.FaceID,
			u.Avatar, u.CreatedAt, u.UpdatedAt)
		return row.Scan(&u.ID)
	})
	return mapUserConstraint(err)
}

func (r *PostgresRepo) seqSources(ctx context.Context, tx *sql.Tx, role domain.Role) ([]SeqSource, error) {
	col := "student_id, student_sequence"
	if role == domain.RoleLecturer {
		col = "staff_id, staff_sequence"
	}
	rows, err := tx.QueryContext(ctx, `SELECT `+col+` FROM users WHERE role = $1`, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SeqSource
	for rows.Next() {
		var src SeqSource
		if err := rows.Scan(&src.Code, &src.Seq); err != nil {
			return nil, err
		}
		out = append(out, src)
	}
	return out, rows.Err()
}

// Update writes the mutable fields plus role-code assignments from the
// backfill routine.
func (r *PostgresRepo) Update(ctx context.Context, u *domain.User) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET email = $2, name = $3, department = $4, fingerprint_id = $5,
			face_id = $6, avatar = $7, student_id = $8, staff_id = $9,
			student_sequence = $10, staff_sequence = $11, updated_at = $12
		WHERE id = $1
	`, u.ID, u.Email, u.Name, u.Department, u.FingerprintID, u.FaceID,
		u.Avatar, u.StudentID, u.StaffID, u.StudentSeq, u.StaffSeq, u.UpdatedAt)
	return mapUserConstraint(err)
}

// UpdatePasswordHash swaps the stored hash.
func (r *PostgresRepo) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1
	`, id, hash)
	return err
}

// GetByID returns a user or nil.
func (r *PostgresRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// GetByEmail returns a user or nil. Callers pass normalized emails.
func (r *PostgresRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

// GetByFingerprintID returns the owner of a fingerprint credential or nil.
func (r *PostgresRepo) GetByFingerprintID(ctx context.Context, fingerprintID string) (*domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE fingerprint_id = $1`, fingerprintID))
}

// List returns all users ordered by id.
func (r *PostgresRepo) List(ctx context.Context) ([]domain.User, error) {
	return r.list(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
}

// ListByRole returns users with the given role ordered by id.
func (r *PostgresRepo) ListByRole(ctx context.Context, role domain.Role) ([]domain.User, error) {
	return r.list(ctx, `SELECT `+userColumns+` FROM users WHERE role = $1 ORDER BY id`, role)
}

func (r *PostgresRepo) list(ctx context.Context, query string, args ...any) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// Count returns the total number of users.
func (r *PostgresRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

func mapUserConstraint(err error) error {
	switch {
	case err == nil:
		return nil
	case store.IsUniqueViolation(err, "uk_users_email"):
		return domain.ErrDuplicateEmail
	case store.IsUniqueViolation(err, "uk_users_fingerprint_id"):
		return domain.ErrDuplicateFingerprint
	case store.IsUniqueViolation(err, "uk_users_student_id"):
		return domain.ErrDuplicateStudentID
	case store.IsUniqueViolation(err, "uk_users_staff_id"):
		return domain.ErrDuplicateStaffID
	}
	return err
}
