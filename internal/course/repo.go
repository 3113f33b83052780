package course

import (
	"context"
	"database/sql"
	"errors"

	"bioattend/internal/domain"
	"bioattend/internal/store"
)

// PostgresRepo persists courses and enrollments in Postgres.
type PostgresRepo struct {
	db *sql.DB
}

// NewPostgresRepo creates a repo.
func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

const courseColumns = `id, code, name, lecturer_id, department, credits, schedule, created_at, updated_at`

func scanCourse(row interface{ Scan(...any) error }) (*domain.Course, error) {
	var c domain.Course
	err := row.Scan(&c.ID, &c.Code, &c.Name, &c.LecturerID, &c.Department,
		&c.Credits, &c.Schedule, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

// CreateCourse inserts a course; the code's unique constraint is the
// authoritative duplicate guard.
func (r *PostgresRepo) CreateCourse(ctx context.Context, c *domain.Course) error {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO courses (code, name, lecturer_id, department, credits, schedule, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING id
	`, c.Code, c.Name, c.LecturerID, c.Department, c.Credits, c.Schedule, c.CreatedAt, c.UpdatedAt)
	err := row.Scan(&c.ID)
	if store.IsUniqueViolation(err, "uk_courses_code") {
		return domain.ErrDuplicateCourseCode
	}
	return err
}

// UpdateCourse writes the mutable metadata fields.
func (r *PostgresRepo) UpdateCourse(ctx context.Context, c *domain.Course) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE courses
		SET name = $2, department = $3, credits = $4, schedule = $5, updated_at = $6
		WHERE id = $1
	`, c.ID, c.Name, c.Department, c.Credits, c.Schedule, c.UpdatedAt)
	return err
}

// GetCourse returns a course or nil.
func (r *PostgresRepo) GetCourse(ctx context.Context, id int64) (*domain.Course, error) {
	return scanCourse(r.db.QueryRowContext(ctx,
		`SELECT `+courseColumns+` FROM courses WHERE id = $1`, id))
}

// GetCourseByCode returns a course or nil.
func (r *PostgresRepo) GetCourseByCode(ctx context.Context, code string) (*domain.Course, error) {
	return scanCourse(r.db.QueryRowContext(ctx,
		`SELECT `+courseColumns+` FROM courses WHERE code = $1`, code))
}

// ListCourses returns all courses ordered by code.
func (r *PostgresRepo) ListCourses(ctx context.Context) ([]domain.Course, error) {
	return r.listCourses(ctx, `SELECT `+courseColumns+` FROM courses ORDER BY code`)
}

// ListCoursesByLecturer returns a lecturer's courses ordered by code.
func (r *PostgresRepo) ListCoursesByLecturer(ctx context.Context, lecturerID int64) ([]domain.Course, error) {
	return r.listCourses(ctx,
		`SELECT `+courseColumns+` FROM courses WHERE lecturer_id = $1 ORDER BY code`, lecturerID)
}

func (r *PostgresRepo) listCourses(ctx context.Context, query string, args ...any) ([]domain.Course, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var courses []domain.Course
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, err
		}
		courses = append(courses, *c)
	}
	return courses, rows.Err()
}

// CreateEnrollment inserts a (student, course) pair; the pair constraint
// is the authoritative duplicate guard.
func (r *PostgresRepo) CreateEnrollment(ctx context.Context, e *domain.CourseEnrollment) error {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO course_enrollments (student_id, course_id, enrolled_at)
		VALUES ($1, $2, $3)
		RETURNING id
	`, e.StudentID, e.CourseID, e.EnrolledAt)
	err := row.Scan(&e.ID)
	if store.IsUniqueViolation(err, "uk_enrollments_pair") {
		return domain.ErrDuplicateEnrollment
	}
	return err
}

// DeleteEnrollment removes a pair, reporting whether a row existed.
func (r *PostgresRepo) DeleteEnrollment(ctx context.Context, studentID, courseID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM course_enrollments WHERE student_id = $1 AND course_id = $2
	`, studentID, courseID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// EnrollmentExists reports whether the pair is registered.
func (r *PostgresRepo) EnrollmentExists(ctx context.Context, studentID, courseID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM course_enrollments WHERE student_id = $1 AND course_id = $2)
	`, studentID, courseID).Scan(&exists)
	return exists, err
}

// ListEnrollmentsByStudent returns a student's registrations.
func (r *PostgresRepo) ListEnrollmentsByStudent(ctx context.Context, studentID int64) ([]domain.CourseEnrollment, error) {
	return r.listEnrollments(ctx, `
		SELECT id, student_id, course_id, enrolled_at
		FROM course_enrollments WHERE student_id = $1 ORDER BY enrolled_at
	`, studentID)
}

// ListEnrollmentsByCourse returns a course's registrations.
func (r *PostgresRepo) ListEnrollmentsByCourse(ctx context.Context, courseID int64) ([]domain.CourseEnrollment, error) {
	return r.listEnrollments(ctx, `
		SELECT id, student_id, course_id, enrolled_at
		FROM course_enrollments WHERE course_id = $1 ORDER BY enrolled_at
	`, courseID)
}

func (r *PostgresRepo) listEnrollments(ctx context.Context, query string, args ...any) ([]domain.CourseEnrollment, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.CourseEnrollment
	for rows.Next() {
		var e domain.CourseEnrollment
		if err := rows.Scan(&e.ID, &e.StudentID, &e.CourseID, &e.EnrolledAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
