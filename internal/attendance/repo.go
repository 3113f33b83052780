package attendance

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"bioattend/internal/domain"
	"bioattend/internal/store"
)

// PostgresRepo persists sessions and records in Postgres.
type PostgresRepo struct {
	db *sql.DB
}

// NewPostgresRepo creates a repo.
func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

const sessionColumns = `id, course_id, lecturer_id, session_date, start_time, end_time,
	started_at, ended_at, status, biometric_enabled, attendance_type, created_at`

func scanSession(row interface{ Scan(...any) error }) (*domain.AttendanceSession, error) {
	var s domain.AttendanceSession
	err := row.Scan(&s.ID, &s.CourseID, &s.LecturerID, &s.Date, &s.StartTime,
		&s.EndTime, &s.StartedAt, &s.EndedAt, &s.Status, &s.BiometricEnabled,
		&s.AttendanceType, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// CreateSession inserts a new session.
func (r *PostgresRepo) CreateSession(ctx context.Context, s *domain.AttendanceSession) error {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO attendance_sessions (course_id, lecturer_id, session_date, start_time,
			end_time, started_at, ended_at, status, biometric_enabled, attendance_type, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING id
	`, s.CourseID, s.LecturerID, s.Date, s.StartTime, s.EndTime, s.StartedAt,
		s.EndedAt, s.Status, s.BiometricEnabled, s.AttendanceType, s.CreatedAt)
	return row.Scan(&s.ID)
}

// UpdateSession writes the lifecycle and modality fields.
func (r *PostgresRepo) UpdateSession(ctx context.Context, s *domain.AttendanceSession) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE attendance_sessions
		SET end_time = $2, ended_at = $3, status = $4, biometric_enabled = $5, attendance_type = $6
		WHERE id = $1
	`, s.ID, s.EndTime, s.EndedAt, s.Status, s.BiometricEnabled, s.AttendanceType)
	return err
}

// GetSession returns a session or nil.
func (r *PostgresRepo) GetSession(ctx context.Context, id int64) (*domain.AttendanceSession, error) {
	return scanSession(r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM attendance_sessions WHERE id = $1`, id))
}

// ListSessions returns sessions matching the filter, newest first.
func (r *PostgresRepo) ListSessions(ctx context.Context, f SessionFilter) ([]domain.AttendanceSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM attendance_sessions`
	var clauses []string
	var args []any
	if f.CourseID != 0 {
		args = append(args, f.CourseID)
		clauses = append(clauses, "course_id = $"+strconv.Itoa(len(args)))
	}
	if f.LecturerID != 0 {
		args = append(args, f.LecturerID)
		clauses = append(clauses, "lecturer_id = $"+strconv.Itoa(len(args)))
	}
	if f.Date != "" {
		args = append(args, f.Date)
		clauses = append(clauses, "session_date = $"+strconv.Itoa(len(args)))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		clauses = append(clauses, "status = $"+strconv.Itoa(len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var sessions []domain.AttendanceSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

const recordColumns = `id, student_id, course_id, session_id, marked_at, method, status,
	verification_score, created_at`

func scanRecord(row interface{ Scan(...any) error }) (*domain.AttendanceRecord, error) {
	var rec domain.AttendanceRecord
	err := row.Scan(&rec.ID, &rec.StudentID, &rec.CourseID, &rec.SessionID,
		&rec.Timestamp, &rec.Method, &rec.Status, &rec.VerificationScore, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

// CreateRecord inserts a record; the (student, session) pair constraint is
// the authoritative duplicate-mark guard.
func (r *PostgresRepo) CreateRecord(ctx context.Context, rec *domain.AttendanceRecord) error {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO attendance_records (student_id, course_id, session_id, marked_at,
			method, status, verification_score, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING id
	`, rec.StudentID, rec.CourseID, rec.SessionID, rec.Timestamp, rec.Method,
		rec.Status, rec.VerificationScore, rec.CreatedAt)
	err := row.Scan(&rec.ID)
	if store.IsUniqueViolation(err, "uk_records_student_session") {
		return domain.ErrDuplicateMark
	}
	return err
}

// RecordExists reports whether a (student, session) record exists.
func (r *PostgresRepo) RecordExists(ctx context.Context, studentID, sessionID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM attendance_records WHERE student_id = $1 AND session_id = $2)
	`, studentID, sessionID).Scan(&exists)
	return exists, err
}

// GetRecord returns a record or nil.
func (r *PostgresRepo) GetRecord(ctx context.Context, id int64) (*domain.AttendanceRecord, error) {
	return scanRecord(r.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM attendance_records WHERE id = $1`, id))
}

// UpdateRecordStatus updates status and score after administrative review;
// all other columns stay untouched.
func (r *PostgresRepo) UpdateRecordStatus(ctx context.Context, id int64, status domain.MarkStatus, score *float64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE attendance_records
		SET status = $2, verification_score = COALESCE($3, verification_score)
		WHERE id = $1
	`, id, status, score)
	return err
}

// ListRecords returns records matching the filter, newest first.
func (r *PostgresRepo) ListRecords(ctx context.Context, f RecordFilter) ([]domain.AttendanceRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM attendance_records`
	var clauses []string
	var args []any
	if f.StudentID != 0 {
		args = append(args, f.StudentID)
		clauses = append(clauses, "student_id = $"+strconv.Itoa(len(args)))
	}
	if f.CourseID != 0 {
		args = append(args, f.CourseID)
		clauses = append(clauses, "course_id = $"+strconv.Itoa(len(args)))
	}
	if f.SessionID != 0 {
		args = append(args, f.SessionID)
		clauses = append(clauses, "session_id = $"+strconv.Itoa(len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY marked_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var records []domain.AttendanceRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// InsertAbsentees writes ABSENT records for the given students, skipping
// any (student, session) pair that already has a mark.
func (r *PostgresRepo) InsertAbsentees(ctx context.Context, session *domain.AttendanceSession, studentIDs []int64) (int, error) {
	ts := session.CreatedAt
	if session.EndedAt != nil {
		ts = *session.EndedAt
	}
	inserted := 0
	err := store.InTx(ctx, r.db, func(tx *sql.Tx) error {
		for _, studentID := range studentIDs {
			res, err := tx.ExecContext(ctx, `
				INSERT INTO attendance_records (student_id, course_id, session_id, marked_at,
					method, status, created_at)
				VALUES ($1,$2,$3,$4,$5,$6,NOW())
				ON CONFLICT (student_id, session_id) DO NOTHING
			`, studentID, session.CourseID, session.ID, ts, domain.MethodManual, domain.StatusAbsent)
			if err != nil {
				return err
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			inserted += int(n)
		}
		return nil
	})
	return inserted, err
}
