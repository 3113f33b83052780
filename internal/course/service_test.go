package course

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bioattend/internal/domain"
)

type fakeRepo struct {
	courses     map[int64]*domain.Course
	enrollments map[int64]*domain.CourseEnrollment
	nextCourse  int64
	nextEnroll  int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		courses:     make(map[int64]*domain.Course),
		enrollments: make(map[int64]*domain.CourseEnrollment),
	}
}

func (f *fakeRepo) CreateCourse(_ context.Context, c *domain.Course) error {
	for _, existing := range f.courses {
		if existing.Code == c.Code {
			return domain.ErrDuplicateCourseCode
		}
	}
	f.nextCourse++
	c.ID = f.nextCourse
	clone := *c
	f.courses[c.ID] = &clone
	return nil
}

func (f *fakeRepo) UpdateCourse(_ context.Context, c *domain.Course) error {
	clone := *c
	f.courses[c.ID] = &clone
	return nil
}

func (f *fakeRepo) GetCourse(_ context.Context, id int64) (*domain.Course, error) {
	c, ok := f.courses[id]
	if !ok {
		return nil, nil
	}
	clone := *c
	return &clone, nil
}

func (f *fakeRepo) GetCourseByCode(_ context.Context, code string) (*domain.Course, error) {
	for _, c := range f.courses {
		if c.Code == code {
			clone := *c
			return &clone, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) ListCourses(_ context.Context) ([]domain.Course, error) {
	var out []domain.Course
	for _, c := range f.courses {
		out = append(out, *c)
	}
	return out, nil
}

func (f *fakeRepo) ListCoursesByLecturer(_ context.Context, lecturerID int64) ([]domain.Course, error) {
	var out []domain.Course
	for _, c := range f.courses {
		if c.LecturerID == lecturerID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeRepo) CreateEnrollment(_ context.Context, e *domain.CourseEnrollment) error {
	for _, existing := range f.enrollments {
		if existing.StudentID == e.StudentID && existing.CourseID == e.CourseID {
			return domain.ErrDuplicateEnrollment
		}
	}
	f.nextEnroll++
	e.ID = f.nextEnroll
	clone := *e
	f.enrollments[e.ID] = &clone
	return nil
}

func (f *fakeRepo) DeleteEnrollment(_ context.Context, studentID, courseID int64) (bool, error) {
	for id, e := range f.enrollments {
		if e.StudentID == studentID && e.CourseID == courseID {
			delete(f.enrollments, id)
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepo) EnrollmentExists(_ context.Context, studentID, courseID int64) (bool, error) {
	for _, e := range f.enrollments {
		if e.StudentID == studentID && e.CourseID == courseID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepo) ListEnrollmentsByStudent(_ context.Context, studentID int64) ([]domain.CourseEnrollment, error) {
	var out []domain.CourseEnrollment
	for _, e := range f.enrollments {
		if e.StudentID == studentID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListEnrollmentsByCourse(_ context.Context, courseID int64) ([]domain.CourseEnrollment, error) {
	var out []domain.CourseEnrollment
	for _, e := range f.enrollments {
		if e.CourseID == courseID {
			out = append(out, *e)
		}
	}
	return out, nil
}

type fakeUsers struct {
	users map[int64]*domain.User
}

func (f *fakeUsers) GetByID(_ context.Context, id int64) (*domain.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, nil
	}
	return u, nil
}

func newFixture() (*Service, *fakeRepo) {
	repo := newFakeRepo()
	users := &fakeUsers{users: map[int64]*domain.User{
		1: {ID: 1, Role: domain.RoleLecturer},
		2: {ID: 2, Role: domain.RoleStudent},
		3: {ID: 3, Role: domain.RoleStudent},
	}}
	clock := func() time.Time { return time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC) }
	return NewService(repo, users, clock), repo
}

func TestCreate_UppercasesCodeAndChecksRole(t *testing.T) {
	ctx := context.Background()
	svc, _ := newFixture()

	c, err := svc.Create(ctx, CreateInput{Code: " cs101 ", Name: "Intro", LecturerID: 1})
	require.NoError(t, err)
	assert.Equal(t, "CS101", c.Code)

	_, err = svc.Create(ctx, CreateInput{Code: "CS102", Name: "Intro", LecturerID: 2})
	assert.ErrorIs(t, err, domain.ErrNotLecturer)

	_, err = svc.Create(ctx, CreateInput{Code: "CS103", Name: "Intro", LecturerID: 999})
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestCreate_RejectsDuplicateCode(t *testing.T) {
	ctx := context.Background()
	svc, _ := newFixture()

	_, err := svc.Create(ctx, CreateInput{Code: "CS101", Name: "Intro", LecturerID: 1})
	require.NoError(t, err)

	_, err = svc.Create(ctx, CreateInput{Code: "cs101", Name: "Intro Again", LecturerID: 1})
	assert.ErrorIs(t, err, domain.ErrDuplicateCourseCode)
}

func TestEnrollStudent(t *testing.T) {
	ctx := context.Background()
	svc, _ := newFixture()

	c, err := svc.Create(ctx, CreateInput{Code: "CS101", Name: "Intro", LecturerID: 1})
	require.NoError(t, err)

	_, err = svc.EnrollStudent(ctx, 1, c.ID)
	assert.ErrorIs(t, err, domain.ErrNotStudent)

	_, err = svc.EnrollStudent(ctx, 2, 999)
	assert.ErrorIs(t, err, domain.ErrCourseNotFound)

	e, err := svc.EnrollStudent(ctx, 2, c.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), e.StudentID)

	_, err = svc.EnrollStudent(ctx, 2, c.ID)
	assert.ErrorIs(t, err, domain.ErrDuplicateEnrollment)
}

func TestUnenrollStudent(t *testing.T) {
	ctx := context.Background()
	svc, _ := newFixture()

	c, err := svc.Create(ctx, CreateInput{Code: "CS101", Name: "Intro", LecturerID: 1})
	require.NoError(t, err)
	_, err = svc.EnrollStudent(ctx, 2, c.ID)
	require.NoError(t, err)

	require.NoError(t, svc.UnenrollStudent(ctx, 2, c.ID))
	err = svc.UnenrollStudent(ctx, 2, c.ID)
	assert.ErrorIs(t, err, domain.ErrEnrollmentNotFound)
}

func TestIsLecturerAssigned(t *testing.T) {
	ctx := context.Background()
	svc, _ := newFixture()

	c, err := svc.Create(ctx, CreateInput{Code: "CS101", Name: "Intro", LecturerID: 1})
	require.NoError(t, err)

	ok, err := svc.IsLecturerAssigned(ctx, 1, c.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.IsLecturerAssigned(ctx, 2, c.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestListEnrolledStudents(t *testing.T) {
	ctx := context.Background()
	svc, _ := newFixture()

	c, err := svc.Create(ctx, CreateInput{Code: "CS101", Name: "Intro", LecturerID: 1})
	require.NoError(t, err)
	_, err = svc.EnrollStudent(ctx, 2, c.ID)
	require.NoError(t, err)
	_, err = svc.EnrollStudent(ctx, 3, c.ID)
	require.NoError(t, err)

	ids, err := svc.ListEnrolledStudents(ctx, c.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{2, 3}, ids)
}
