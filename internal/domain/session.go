package domain

import "time"

// SessionStatus is the session lifecycle state. CLOSED is terminal.
type SessionStatus string

const (
	SessionActive SessionStatus = "ACTIVE"
	SessionClosed SessionStatus = "CLOSED"
)

// AttendanceType selects which biometric modalities a session accepts.
type AttendanceType string

const (
	TypeFingerprint AttendanceType = "FINGERPRINT"
	TypeFace        AttendanceType = "FACE"
	TypeBoth        AttendanceType = "BOTH"
)

// AttendanceSession is one live teaching occurrence of a course. It is
// created ACTIVE with StartedAt stamped from the service clock and
// transitions exactly once to CLOSED.
type AttendanceSession struct {
	ID               int64          `json:"id"`
	CourseID         int64          `json:"course_id"`
	LecturerID       int64          `json:"lecturer_id"`
	Date             string         `json:"date"`       // 2006-01-02
	StartTime        string         `json:"start_time"` // 15:04
	EndTime          *string        `json:"end_time,omitempty"`
	StartedAt        *time.Time     `json:"started_at,omitempty"`
	EndedAt          *time.Time     `json:"ended_at,omitempty"`
	Status           SessionStatus  `json:"status"`
	BiometricEnabled bool           `json:"biometric_enabled"`
	AttendanceType   AttendanceType `json:"attendance_type"`
	CreatedAt        time.Time      `json:"created_at"`
}

// StartInstant returns the moment the acceptance window opened. When the
// StartedAt timestamp is unset it is reconstructed from Date and
// StartTime, so the window survives records seeded without timestamps.
func (s *AttendanceSession) StartInstant() (time.Time, bool) {
	if s.StartedAt != nil {
		return *s.StartedAt, true
	}
	t, err := time.ParseInLocation("2006-01-02 15:04", s.Date+" "+s.StartTime, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// OpenForAttendance reports whether a mark attempted at attemptTime falls
// inside the session's acceptance window.
func (s *AttendanceSession) OpenForAttendance(attemptTime time.Time) bool {
	if s.Status != SessionActive {
		return false
	}
	start, ok := s.StartInstant()
	if !ok {
		return false
	}
	return !attemptTime.Before(start)
}
