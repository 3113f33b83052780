package domain

import "time"

// MarkMethod is how an attendance mark was captured.
type MarkMethod string

const (
	MethodFingerprint MarkMethod = "FINGERPRINT"
	MethodFace        MarkMethod = "FACE"
	MethodManual      MarkMethod = "MANUAL"
)

// MarkStatus classifies a mark. ABSENT is assigned only by the absentee
// reconciliation worker after a session closes, never by the marking path.
type MarkStatus string

const (
	StatusPresent MarkStatus = "PRESENT"
	StatusLate    MarkStatus = "LATE"
	StatusAbsent  MarkStatus = "ABSENT"
)

// LateThreshold is how far past session start a mark still counts as
// PRESENT. The comparison is strict: a mark exactly at the threshold is
// PRESENT.
const LateThreshold = 15 * time.Minute

// AttendanceRecord is one student's mark for one session, unique per
// (student, session). Student, course, session and timestamp are immutable
// once written; status and score may be corrected administratively.
type AttendanceRecord struct {
	ID                int64      `json:"id"`
	StudentID         int64      `json:"student_id"`
	CourseID          int64      `json:"course_id"`
	SessionID         int64      `json:"session_id"`
	Timestamp         time.Time  `json:"timestamp"`
	Method            MarkMethod `json:"method"`
	Status            MarkStatus `json:"status"`
	VerificationScore *float64   `json:"verification_score,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

// ClassifyMark applies the lateness rule: LATE strictly after
// sessionStart + LateThreshold, PRESENT otherwise.
func ClassifyMark(sessionStart, now time.Time) MarkStatus {
	if now.After(sessionStart.Add(LateThreshold)) {
		return StatusLate
	}
	return StatusPresent
}
