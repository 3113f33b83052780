package domain

import "errors"

// Code classifies an error for the transport layer. Handlers map codes to
// HTTP statuses; services return the sentinel values below untranslated.
type Code string

const (
	CodeNotFound          Code = "not_found"
	CodeForbidden         Code = "forbidden"
	CodeConflict          Code = "conflict"
	CodeInvalidState      Code = "invalid_state"
	CodeInvalidToken      Code = "invalid_token"
	CodeInvalidCredential Code = "invalid_credential"
	CodeValidation        Code = "validation"
)

// Error is a semantic error carried across service boundaries.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string { return e.Message }

var (
	ErrUserNotFound       = &Error{CodeNotFound, "user not found"}
	ErrCourseNotFound     = &Error{CodeNotFound, "course not found"}
	ErrSessionNotFound    = &Error{CodeNotFound, "session not found"}
	ErrRecordNotFound     = &Error{CodeNotFound, "record not found"}
	ErrEnrollmentNotFound = &Error{CodeNotFound, "enrollment not found"}

	ErrNotLecturer     = &Error{CodeForbidden, "only lecturers can start sessions"}
	ErrNotStudent      = &Error{CodeForbidden, "only students can sign attendance"}
	ErrNotCourseOwner  = &Error{CodeForbidden, "lecturer is not assigned to this course"}
	ErrNotSessionOwner = &Error{CodeForbidden, "session belongs to another lecturer"}

	ErrDuplicateEmail       = &Error{CodeConflict, "email already registered"}
	ErrDuplicateFingerprint = &Error{CodeConflict, "fingerprint already bound to another user"}
	ErrDuplicateCourseCode  = &Error{CodeConflict, "course code already exists"}
	ErrDuplicateEnrollment  = &Error{CodeConflict, "student already enrolled in course"}
	ErrDuplicateMark        = &Error{CodeConflict, "attendance already marked for this session"}
	ErrDuplicateStudentID   = &Error{CodeConflict, "student id already assigned"}
	ErrDuplicateStaffID     = &Error{CodeConflict, "staff id already assigned"}

	ErrSessionClosed        = &Error{CodeInvalidState, "session is not active"}
	ErrSessionStillActive   = &Error{CodeInvalidState, "session has not been closed yet"}
	ErrCourseMismatch       = &Error{CodeInvalidState, "session does not belong to this course"}
	ErrEnrollmentRequired   = &Error{CodeInvalidState, "fingerprint enrollment required before signing in"}
	ErrMissingFingerprintID = &Error{CodeInvalidState, "fingerprint id required for fingerprint enrollment"}

	ErrInvalidToken = &Error{CodeInvalidToken, "reset token is invalid"}
	ErrTokenExpired = &Error{CodeInvalidToken, "reset token has expired"}
	ErrTokenUsed    = &Error{CodeInvalidToken, "reset token was already used"}

	ErrInvalidCredential = &Error{CodeInvalidCredential, "invalid email or password"}
)

// Validationf builds a field-validation error.
func Validationf(msg string) *Error {
	return &Error{CodeValidation, msg}
}

// CodeOf extracts the semantic code, or "" for unclassified errors.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}
