package domain

import (
	"fmt"
	"time"
)

// Role is a user's fixed role, assigned at registration.
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleLecturer Role = "LECTURER"
	RoleStudent  Role = "STUDENT"
)

// ValidRole reports whether r is one of the known roles.
func ValidRole(r Role) bool {
	return r == RoleAdmin || r == RoleLecturer || r == RoleStudent
}

// User is an account in the identity registry. Exactly one of the
// student-id family and staff-id family is populated, selected by Role;
// both stay nil for admins. Use SetRoleCode to keep that invariant.
type User struct {
	ID            int64      `json:"id"`
	Email         string     `json:"email"`
	PasswordHash  string     `json:"-"`
	Name          string     `json:"name"`
	Role          Role       `json:"role"`
	StudentID     *string    `json:"student_id,omitempty"`
	StaffID       *string    `json:"staff_id,omitempty"`
	StudentSeq    *int64     `json:"-"`
	StaffSeq      *int64     `json:"-"`
	Department    string     `json:"department,omitempty"`
	FingerprintID *string    `json:"fingerprint_id,omitempty"`
	FaceID        *string    `json:"face_id,omitempty"`
	Avatar        string     `json:"avatar,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// RoleCode is the human-readable identifier behind a role: the numeric
// sequence plus its formatted form (STU-00001 / LEC-00001).
type RoleCode struct {
	Seq  int64
	Code string
}

// FormatRoleCode renders a sequence number in the role's ID format.
func FormatRoleCode(role Role, seq int64) string {
	switch role {
	case RoleStudent:
		return fmt.Sprintf("STU-%05d", seq)
	case RoleLecturer:
		return fmt.Sprintf("LEC-%05d", seq)
	}
	return ""
}

// SetRoleCode assigns the role-specific identifier pair and clears the
// opposite role's fields, so at most one family is ever populated.
func (u *User) SetRoleCode(rc RoleCode) {
	switch u.Role {
	case RoleStudent:
		u.StudentID, u.StudentSeq = &rc.Code, &rc.Seq
		u.StaffID, u.StaffSeq = nil, nil
	case RoleLecturer:
		u.StaffID, u.StaffSeq = &rc.Code, &rc.Seq
		u.StudentID, u.StudentSeq = nil, nil
	default:
		u.StudentID, u.StudentSeq = nil, nil
		u.StaffID, u.StaffSeq = nil, nil
	}
}

// RoleCode returns the populated identifier pair, if any.
func (u *User) RoleCode() (RoleCode, bool) {
	switch u.Role {
	case RoleStudent:
		if u.StudentID != nil && u.StudentSeq != nil {
			return RoleCode{Seq: *u.StudentSeq, Code: *u.StudentID}, true
		}
	case RoleLecturer:
		if u.StaffID != nil && u.StaffSeq != nil {
			return RoleCode{Seq: *u.StaffSeq, Code: *u.StaffID}, true
		}
	}
	return RoleCode{}, false
}
