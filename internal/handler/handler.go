package handler

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"bioattend/internal/attendance"
	"bioattend/internal/avatar"
	"bioattend/internal/biometric"
	"bioattend/internal/course"
	"bioattend/internal/domain"
	"bioattend/internal/identity"
	"bioattend/internal/reset"
)

// Handler wires the domain services to gin routes.
type Handler struct {
	users     *identity.Service
	biometric *biometric.Service
	courses   *course.Service
	sessions  *attendance.SessionService
	marks     *attendance.MarkingService
	reset     *reset.Service
	avatars   *avatar.Client // nil when Cloudinary not configured
}

// New creates a handler.
func New(users *identity.Service, bio *biometric.Service, courses *course.Service,
	sessions *attendance.SessionService, marks *attendance.MarkingService,
	resetSvc *reset.Service, avatars *avatar.Client) *Handler {
	return &Handler{
		users:     users,
		biometric: bio,
		courses:   courses,
		sessions:  sessions,
		marks:     marks,
		reset:     resetSvc,
		avatars:   avatars,
	}
}

// RegisterValidators installs custom binding validators on gin's engine.
func RegisterValidators() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
			return domain.ValidRole(domain.Role(fl.Field().String()))
		})
	}
}

// respondErr maps semantic error codes onto HTTP statuses.
func respondErr(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch domain.CodeOf(err) {
	case domain.CodeValidation, domain.CodeInvalidCredential, domain.CodeInvalidToken:
		status = http.StatusBadRequest
	case domain.CodeForbidden:
		status = http.StatusForbidden
	case domain.CodeNotFound:
		status = http.StatusNotFound
	case domain.CodeConflict:
		status = http.StatusConflict
	case domain.CodeInvalidState:
		status = http.StatusUnprocessableEntity
	default:
		log.Printf("internal error: %v", err)
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

func queryID(c *gin.Context, name string) int64 {
	id, _ := strconv.ParseInt(c.Query(name), 10, 64)
	return id
}

// ListUsers returns all users, optionally filtered by role.
func (h *Handler) ListUsers(c *gin.Context) {
	var (
		users []domain.User
		err   error
	)
	if role := c.Query("role"); role != "" {
		users, err = h.users.ListByRole(c.Request.Context(), domain.Role(role))
	} else {
		users, err = h.users.List(c.Request.Context())
	}
	if err != nil {
		respondErr(c, err)
		return
	}
	if users == nil {
		users = []domain.User{}
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

type createCourseRequest struct {
	Code       string `json:"code" binding:"required"`
	Name       string `json:"name" binding:"required"`
	LecturerID int64  `json:"lecturer_id" binding:"required"`
	Department string `json:"department"`
	Credits    int    `json:"credits"`
	Schedule   string `json:"schedule"`
}

// CreateCourse registers a course under its assigned lecturer.
func (h *Handler) CreateCourse(c *gin.Context) {
	var req createCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	created, err := h.courses.Create(c.Request.Context(), course.CreateInput{
		Code:       req.Code,
		Name:       req.Name,
		LecturerID: req.LecturerID,
		Department: req.Department,
		Credits:    req.Credits,
		Schedule:   req.Schedule,
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

type updateCourseRequest struct {
	Name       string `json:"name"`
	Department string `json:"department"`
	Credits    int    `json:"credits"`
	Schedule   string `json:"schedule"`
}

// UpdateCourse edits course metadata.
func (h *Handler) UpdateCourse(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req updateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	updated, err := h.courses.Update(c.Request.Context(), id, course.UpdateInput{
		Name:       req.Name,
		Department: req.Department,
		Credits:    req.Credits,
		Schedule:   req.Schedule,
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// ListCourses returns courses, optionally filtered by lecturer.
func (h *Handler) ListCourses(c *gin.Context) {
	var (
		courses []domain.Course
		err     error
	)
	if lecturerID := queryID(c, "lecturer_id"); lecturerID != 0 {
		courses, err = h.courses.ListByLecturer(c.Request.Context(), lecturerID)
	} else {
		courses, err = h.courses.List(c.Request.Context())
	}
	if err != nil {
		respondErr(c, err)
		return
	}
	if courses == nil {
		courses = []domain.Course{}
	}
	c.JSON(http.StatusOK, gin.H{"courses": courses})
}

// GetCourse returns one course.
func (h *Handler) GetCourse(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	found, err := h.courses.Get(c.Request.Context(), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, found)
}

type enrollmentRequest struct {
	StudentID int64 `json:"student_id" binding:"required"`
	CourseID  int64 `json:"course_id" binding:"required"`
}

// CreateEnrollment registers a student in a course.
func (h *Handler) CreateEnrollment(c *gin.Context) {
	var req enrollmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	e, err := h.courses.EnrollStudent(c.Request.Context(), req.StudentID, req.CourseID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, e)
}

// DeleteEnrollment removes a (student, course) registration.
func (h *Handler) DeleteEnrollment(c *gin.Context) {
	var req enrollmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.courses.UnenrollStudent(c.Request.Context(), req.StudentID, req.CourseID); err != nil {
		respondErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListEnrollments returns a student's registrations.
func (h *Handler) ListEnrollments(c *gin.Context) {
	studentID := queryID(c, "student_id")
	if studentID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "student_id is required"})
		return
	}
	enrollments, err := h.courses.ListEnrollmentsByStudent(c.Request.Context(), studentID)
	if err != nil {
		respondErr(c, err)
		return
	}
	if enrollments == nil {
		enrollments = []domain.CourseEnrollment{}
	}
	c.JSON(http.StatusOK, gin.H{"enrollments": enrollments})
}
