package domain

import "time"

// BiometricEnrollment is the per-user ledger row recording which
// modalities are usable for marking. One row per user; EnrolledAt is
// fixed at first creation.
type BiometricEnrollment struct {
	ID                  int64     `json:"id"`
	UserID              int64     `json:"user_id"`
	FingerprintEnrolled bool      `json:"fingerprint_enrolled"`
	FaceEnrolled        bool      `json:"face_enrolled"`
	EnrolledAt          time.Time `json:"enrolled_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}
