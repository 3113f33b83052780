package course

import (
	"context"
	"strings"

	"bioattend/internal/domain"
)

// Repo persists courses and course enrollments.
type Repo interface {
	CreateCourse(ctx context.Context, c *domain.Course) error
	UpdateCourse(ctx context.Context, c *domain.Course) error
	GetCourse(ctx context.Context, id int64) (*domain.Course, error)
	GetCourseByCode(ctx context.Context, code string) (*domain.Course, error)
	ListCourses(ctx context.Context) ([]domain.Course, error)
	ListCoursesByLecturer(ctx context.Context, lecturerID int64) ([]domain.Course, error)

	CreateEnrollment(ctx context.Context, e *domain.CourseEnrollment) error
	DeleteEnrollment(ctx context.Context, studentID, courseID int64) (bool, error)
	EnrollmentExists(ctx context.Context, studentID, courseID int64) (bool, error)
	ListEnrollmentsByStudent(ctx context.Context, studentID int64) ([]domain.CourseEnrollment, error)
	ListEnrollmentsByCourse(ctx context.Context, courseID int64) ([]domain.CourseEnrollment, error)
}

// Users resolves user references for validation.
type Users interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}

// Service is the course and enrollment directory. It supplies the
// authorization facts the session lifecycle depends on.
type Service struct {
	repo  Repo
	users Users
	now   domain.Clock
}

// NewService creates the directory.
func NewService(repo Repo, users Users, now domain.Clock) *Service {
	if now == nil {
		now = domain.SystemClock
	}
	return &Service{repo: repo, users: users, now: now}
}

// CreateInput carries course creation fields.
type CreateInput struct {
	Code       string
	Name       string
	LecturerID int64
	Department string
	Credits    int
	Schedule   string
}

// Create registers a course under its assigned lecturer.
func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.Course, error) {
	code := strings.ToUpper(strings.TrimSpace(in.Code))
	if code == "" {
		return nil, domain.Validationf("course code is required")
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, domain.Validationf("course name is required")
	}

	lecturer, err := s.users.GetByID(ctx, in.LecturerID)
	if err != nil {
		return nil, err
	}
	if lecturer == nil {
		return nil, domain.ErrUserNotFound
	}
	if lecturer.Role != domain.RoleLecturer {
		return nil, domain.ErrNotLecturer
	}

	if existing, err := s.repo.GetCourseByCode(ctx, code); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, domain.ErrDuplicateCourseCode
	}

	now := s.now()
	c := &domain.Course{
		Code:       code,
		Name:       strings.TrimSpace(in.Name),
		LecturerID: in.LecturerID,
		Department: strings.TrimSpace(in.Department),
		Credits:    in.Credits,
		Schedule:   strings.TrimSpace(in.Schedule),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.CreateCourse(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// UpdateInput carries the mutable course fields.
type UpdateInput struct {
	Name       string
	Department string
	Credits    int
	Schedule   string
}

// Update edits course metadata; code and lecturer assignment are fixed.
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (*domain.Course, error) {
	c, err := s.repo.GetCourse(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, domain.ErrCourseNotFound
	}
	if strings.TrimSpace(in.Name) != "" {
		c.Name = strings.TrimSpace(in.Name)
	}
	c.Department = strings.TrimSpace(in.Department)
	c.Credits = in.Credits
	c.Schedule = strings.TrimSpace(in.Schedule)
	c.UpdatedAt = s.now()
	if err := s.repo.UpdateCourse(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Get resolves a course or reports NotFound.
func (s *Service) Get(ctx context.Context, id int64) (*domain.Course, error) {
	c, err := s.repo.GetCourse(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, domain.ErrCourseNotFound
	}
	return c, nil
}

// List returns all courses.
func (s *Service) List(ctx context.Context) ([]domain.Course, error) {
	return s.repo.ListCourses(ctx)
}

// ListByLecturer returns the courses assigned to a lecturer.
func (s *Service) ListByLecturer(ctx context.Context, lecturerID int64) ([]domain.Course, error) {
	return s.repo.ListCoursesByLecturer(ctx, lecturerID)
}

// EnrollStudent registers a student in a course, unique per pair.
func (s *Service) EnrollStudent(ctx context.Context, studentID, courseID int64) (*domain.CourseEnrollment, error) {
	student, err := s.users.GetByID(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if student == nil {
		return nil, domain.ErrUserNotFound
	}
	if student.Role != domain.RoleStudent {
		return nil, domain.ErrNotStudent
	}
	if _, err := s.Get(ctx, courseID); err != nil {
		return nil, err
	}

	if exists, err := s.repo.EnrollmentExists(ctx, studentID, courseID); err != nil {
		return nil, err
	} else if exists {
		return nil, domain.ErrDuplicateEnrollment
	}

	e := &domain.CourseEnrollment{
		StudentID:  studentID,
		CourseID:   courseID,
		EnrolledAt: s.now(),
	}
	if err := s.repo.CreateEnrollment(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// UnenrollStudent removes a (student, course) registration.
func (s *Service) UnenrollStudent(ctx context.Context, studentID, courseID int64) error {
	removed, err := s.repo.DeleteEnrollment(ctx, studentID, courseID)
	if err != nil {
		return err
	}
	if !removed {
		return domain.ErrEnrollmentNotFound
	}
	return nil
}

// IsLecturerAssigned reports whether the lecturer owns the course.
func (s *Service) IsLecturerAssigned(ctx context.Context, lecturerID, courseID int64) (bool, error) {
	c, err := s.repo.GetCourse(ctx, courseID)
	if err != nil {
		return false, err
	}
	return c != nil && c.LecturerID == lecturerID, nil
}

// IsStudentEnrolled reports whether the student is registered in the course.
func (s *Service) IsStudentEnrolled(ctx context.Context, studentID, courseID int64) (bool, error) {
	return s.repo.EnrollmentExists(ctx, studentID, courseID)
}

// ListEnrollmentsByStudent returns a student's course registrations.
func (s *Service) ListEnrollmentsByStudent(ctx context.Context, studentID int64) ([]domain.CourseEnrollment, error) {
	return s.repo.ListEnrollmentsByStudent(ctx, studentID)
}

// ListEnrolledStudents returns the IDs of students registered in a course.
func (s *Service) ListEnrolledStudents(ctx context.Context, courseID int64) ([]int64, error) {
	enrollments, err := s.repo.ListEnrollmentsByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(enrollments))
	for _, e := range enrollments {
		ids = append(ids, e.StudentID)
	}
	return ids, nil
}
