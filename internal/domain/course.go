package domain

import "time"

// Course maps a course code to its assigned lecturer. The lecturer
// reference is the authorization source of truth for session opening.
type Course struct {
	ID         int64     `json:"id"`
	Code       string    `json:"code"`
	Name       string    `json:"name"`
	LecturerID int64     `json:"lecturer_id"`
	Department string    `json:"department,omitempty"`
	Credits    int       `json:"credits"`
	Schedule   string    `json:"schedule,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// CourseEnrollment registers a student in a course, unique per pair.
type CourseEnrollment struct {
	ID         int64     `json:"id"`
	StudentID  int64     `json:"student_id"`
	CourseID   int64     `json:"course_id"`
	EnrolledAt time.Time `json:"enrolled_at"`
}
