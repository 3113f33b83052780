package attendance

import (
	"context"

	"bioattend/internal/domain"
)

// RecordRepo persists attendance records. CreateRecord must surface
// ErrDuplicateMark for the (student, session) pair constraint so the
// database stays the authoritative uniqueness guard.
type RecordRepo interface {
	CreateRecord(ctx context.Context, r *domain.AttendanceRecord) error
	RecordExists(ctx context.Context, studentID, sessionID int64) (bool, error)
	GetRecord(ctx context.Context, id int64) (*domain.AttendanceRecord, error)
	UpdateRecordStatus(ctx context.Context, id int64, status domain.MarkStatus, score *float64) error
	ListRecords(ctx context.Context, f RecordFilter) ([]domain.AttendanceRecord, error)
	InsertAbsentees(ctx context.Context, session *domain.AttendanceSession, studentIDs []int64) (int, error)
}

// EnrollmentGate is the biometric prerequisite check.
type EnrollmentGate interface {
	HasFingerprintEnrollment(ctx context.Context, userID int64) (bool, error)
}

// RecordFilter narrows record listings; zero values mean "any".
type RecordFilter struct {
	StudentID int64
	CourseID  int64
	SessionID int64
}

// MarkingService validates, classifies and commits attendance marks.
type MarkingService struct {
	records     RecordRepo
	sessions    SessionRepo
	users       Users
	courses     Directory
	enrollments EnrollmentGate
	now         domain.Clock
}

// NewMarkingService creates the marking protocol.
func NewMarkingService(records RecordRepo, sessions SessionRepo, users Users, courses Directory, enrollments EnrollmentGate, now domain.Clock) *MarkingService {
	if now == nil {
		now = domain.SystemClock
	}
	return &MarkingService{
		records:     records,
		sessions:    sessions,
		users:       users,
		courses:     courses,
		enrollments: enrollments,
		now:         now,
	}
}

// MarkInput is one mark attempt.
type MarkInput struct {
	StudentID int64
	CourseID  int64
	SessionID int64
	Method    domain.MarkMethod // defaults to FINGERPRINT
}

// Mark commits an immutable attendance record exactly once per
// (student, session):
//
//  1. the student must exist and hold the STUDENT role,
//  2. the session must exist and be ACTIVE,
//  3. the session must belong to the requested course,
//  4. no record may already exist for the pair,
//  5. the student must have a fingerprint enrollment,
//  6. the mark is LATE strictly after startedAt+15m, PRESENT otherwise.
//
// ABSENT is never assigned here; the reconciliation worker backfills it
// for students who never marked.
func (s *MarkingService) Mark(ctx context.Context, in MarkInput) (*domain.AttendanceRecord, error) {
	student, err := s.users.GetByID(ctx, in.StudentID)
	if err != nil {
		return nil, err
	}
	if student == nil {
		return nil, domain.ErrUserNotFound
	}
	if student.Role != domain.RoleStudent {
		return nil, domain.ErrNotStudent
	}

	session, err := s.sessions.GetSession(ctx, in.SessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, domain.ErrSessionNotFound
	}
	if session.Status != domain.SessionActive {
		return nil, domain.ErrSessionClosed
	}
	if session.CourseID != in.CourseID {
		return nil, domain.ErrCourseMismatch
	}

	if exists, err := s.records.RecordExists(ctx, in.StudentID, in.SessionID); err != nil {
		return nil, err
	} else if exists {
		return nil, domain.ErrDuplicateMark
	}

	if enrolled, err := s.enrollments.HasFingerprintEnrollment(ctx, in.StudentID); err != nil {
		return nil, err
	} else if !enrolled {
		return nil, domain.ErrEnrollmentRequired
	}

	method := in.Method
	switch method {
	case domain.MethodFingerprint, domain.MethodFace, domain.MethodManual:
	case "":
		method = domain.MethodFingerprint
	default:
		return nil, domain.Validationf("method must be FINGERPRINT, FACE or MANUAL")
	}

	now := s.now()
	start := now
	if session.StartedAt != nil {
		start = *session.StartedAt
	}

	record := &domain.AttendanceRecord{
		StudentID: in.StudentID,
		CourseID:  in.CourseID,
		SessionID: in.SessionID,
		Timestamp: now,
		Method:    method,
		Status:    domain.ClassifyMark(start, now),
		CreatedAt: now,
	}
	if err := s.records.CreateRecord(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// UpdateRecord is the administrative override: status and score only,
// every other field stays immutable.
func (s *MarkingService) UpdateRecord(ctx context.Context, id int64, status domain.MarkStatus, score *float64) (*domain.AttendanceRecord, error) {
	switch status {
	case domain.StatusPresent, domain.StatusLate, domain.StatusAbsent:
	default:
		return nil, domain.Validationf("status must be PRESENT, LATE or ABSENT")
	}

	record, err := s.records.GetRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, domain.ErrRecordNotFound
	}
	if err := s.records.UpdateRecordStatus(ctx, id, status, score); err != nil {
		return nil, err
	}
	record.Status = status
	if score != nil {
		record.VerificationScore = score
	}
	return record, nil
}

// Get resolves a record or reports NotFound.
func (s *MarkingService) Get(ctx context.Context, id int64) (*domain.AttendanceRecord, error) {
	record, err := s.records.GetRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, domain.ErrRecordNotFound
	}
	return record, nil
}

// List returns records matching the filter.
func (s *MarkingService) List(ctx context.Context, f RecordFilter) ([]domain.AttendanceRecord, error) {
	return s.records.ListRecords(ctx, f)
}

// ReconcileAbsentees backfills ABSENT records for enrolled students with
// no mark in a closed session. Invoked by the worker on session-close
// events; safe to re-run, existing records are left untouched.
func (s *MarkingService) ReconcileAbsentees(ctx context.Context, sessionID int64) (int, error) {
	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	if session == nil {
		return 0, domain.ErrSessionNotFound
	}
	if session.Status != domain.SessionClosed {
		return 0, domain.ErrSessionStillActive
	}

	studentIDs, err := s.courses.ListEnrolledStudents(ctx, session.CourseID)
	if err != nil {
		return 0, err
	}
	if len(studentIDs) == 0 {
		return 0, nil
	}
	return s.records.InsertAbsentees(ctx, session, studentIDs)
}
