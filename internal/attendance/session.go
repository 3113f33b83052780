package attendance

import (
	"context"
	"log"
	"time"

	"bioattend/internal/domain"
)

// SessionRepo persists attendance sessions.
type SessionRepo interface {
	CreateSession(ctx context.Context, s *domain.AttendanceSession) error
	UpdateSession(ctx context.Context, s *domain.AttendanceSession) error
	GetSession(ctx context.Context, id int64) (*domain.AttendanceSession, error)
	ListSessions(ctx context.Context, f SessionFilter) ([]domain.AttendanceSession, error)
}

// Users resolves user references for guard checks.
type Users interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}

// Directory supplies the course-side authorization facts.
type Directory interface {
	IsLecturerAssigned(ctx context.Context, lecturerID, courseID int64) (bool, error)
	Get(ctx context.Context, courseID int64) (*domain.Course, error)
	ListEnrolledStudents(ctx context.Context, courseID int64) ([]int64, error)
}

// SessionFilter narrows session listings; zero values mean "any".
type SessionFilter struct {
	CourseID   int64
	LecturerID int64
	Date       string
	Status     domain.SessionStatus
}

// SessionService governs the ACTIVE -> CLOSED session lifecycle.
type SessionService struct {
	repo     SessionRepo
	users    Users
	courses  Directory
	now      domain.Clock
	onClosed func(ctx context.Context, sessionID int64) error
}

// NewSessionService creates the session state machine. onClosed, when
// non-nil, is invoked after a successful close (queue publication for the
// absentee worker); its failure is logged, never surfaced.
func NewSessionService(repo SessionRepo, users Users, courses Directory, now domain.Clock, onClosed func(ctx context.Context, sessionID int64) error) *SessionService {
	if now == nil {
		now = domain.SystemClock
	}
	return &SessionService{repo: repo, users: users, courses: courses, now: now, onClosed: onClosed}
}

// OpenInput carries session creation fields.
type OpenInput struct {
	LecturerID       int64
	CourseID         int64
	AttendanceType   domain.AttendanceType
	BiometricEnabled bool
}

// Open creates a session in ACTIVE state with the acceptance window
// starting immediately. Only the course's assigned lecturer may open.
func (s *SessionService) Open(ctx context.Context, in OpenInput) (*domain.AttendanceSession, error) {
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

	if _, err := s.courses.Get(ctx, in.CourseID); err != nil {
		return nil, err
	}
	assigned, err := s.courses.IsLecturerAssigned(ctx, in.LecturerID, in.CourseID)
	if err != nil {
		return nil, err
	}
	if !assigned {
		return nil, domain.ErrNotCourseOwner
	}

	attType := in.AttendanceType
	switch attType {
	case domain.TypeFingerprint, domain.TypeFace, domain.TypeBoth:
	case "":
		attType = domain.TypeFingerprint
	default:
		return nil, domain.Validationf("attendance type must be FINGERPRINT, FACE or BOTH")
	}

	now := s.now()
	session := &domain.AttendanceSession{
		CourseID:         in.CourseID,
		LecturerID:       in.LecturerID,
		Date:             now.Format("2006-01-02"),
		StartTime:        now.Format("15:04"),
		StartedAt:        &now,
		Status:           domain.SessionActive,
		BiometricEnabled: in.BiometricEnabled,
		AttendanceType:   attType,
		CreatedAt:        now,
	}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Close transitions a session to CLOSED, stamping the end fields exactly
// once. Closing an already-closed session is a no-op that does not
// re-stamp endedAt. Only the session's lecturer or an admin may close.
func (s *SessionService) Close(ctx context.Context, requesterID, sessionID int64) (*domain.AttendanceSession, error) {
	requester, err := s.users.GetByID(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	if requester == nil {
		return nil, domain.ErrUserNotFound
	}

	session, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, domain.ErrSessionNotFound
	}
	if requester.Role != domain.RoleAdmin && session.LecturerID != requesterID {
		return nil, domain.ErrNotSessionOwner
	}

	if session.Status == domain.SessionClosed {
		return session, nil
	}

	endedAt := s.now()
	endTime := endedAt.Format("15:04")
	session.Status = domain.SessionClosed
	session.EndedAt = &endedAt
	session.EndTime = &endTime
	if err := s.repo.UpdateSession(ctx, session); err != nil {
		return nil, err
	}

	if s.onClosed != nil {
		if err := s.onClosed(ctx, session.ID); err != nil {
			log.Printf("session %d close event publish failed: %v", session.ID, err)
		}
	}
	return session, nil
}

// Adjust updates the modality settings of an open session.
func (s *SessionService) Adjust(ctx context.Context, sessionID int64, biometricEnabled *bool, attType *domain.AttendanceType) (*domain.AttendanceSession, error) {
	session, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, domain.ErrSessionNotFound
	}
	if session.Status != domain.SessionActive {
		return nil, domain.ErrSessionClosed
	}
	if biometricEnabled != nil {
		session.BiometricEnabled = *biometricEnabled
	}
	if attType != nil {
		session.AttendanceType = *attType
	}
	if err := s.repo.UpdateSession(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Get resolves a session or reports NotFound.
func (s *SessionService) Get(ctx context.Context, id int64) (*domain.AttendanceSession, error) {
	session, err := s.repo.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// List returns sessions matching the filter.
func (s *SessionService) List(ctx context.Context, f SessionFilter) ([]domain.AttendanceSession, error) {
	return s.repo.ListSessions(ctx, f)
}

// IsOpenForAttendance reports whether the session accepts marks at
// attemptTime.
func (s *SessionService) IsOpenForAttendance(session *domain.AttendanceSession, attemptTime time.Time) bool {
	return session.OpenForAttendance(attemptTime)
}
