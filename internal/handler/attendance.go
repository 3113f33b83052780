package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bioattend/internal/attendance"
	"bioattend/internal/biometric"
	"bioattend/internal/domain"
	"bioattend/internal/metrics"
)

type openSessionRequest struct {
	LecturerID       int64  `json:"lecturer_id" binding:"required"`
	CourseID         int64  `json:"course_id" binding:"required"`
	AttendanceType   string `json:"attendance_type"`
	BiometricEnabled *bool  `json:"biometric_enabled"`
}

// OpenSession starts an ACTIVE session for a course.
func (h *Handler) OpenSession(c *gin.Context) {
	var req openSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	biometricEnabled := true
	if req.BiometricEnabled != nil {
		biometricEnabled = *req.BiometricEnabled
	}
	session, err := h.sessions.Open(c.Request.Context(), attendance.OpenInput{
		LecturerID:       req.LecturerID,
		CourseID:         req.CourseID,
		AttendanceType:   domain.AttendanceType(req.AttendanceType),
		BiometricEnabled: biometricEnabled,
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	metrics.SessionsTotal.WithLabelValues("opened").Inc()
	c.JSON(http.StatusCreated, session)
}

type closeSessionRequest struct {
	RequesterID int64 `json:"requester_id" binding:"required"`
}

// CloseSession transitions a session to CLOSED; idempotent.
func (h *Handler) CloseSession(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req closeSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	session, err := h.sessions.Close(c.Request.Context(), req.RequesterID, id)
	if err != nil {
		respondErr(c, err)
		return
	}
	metrics.SessionsTotal.WithLabelValues("closed").Inc()
	c.JSON(http.StatusOK, session)
}

type adjustSessionRequest struct {
	BiometricEnabled *bool   `json:"biometric_enabled"`
	AttendanceType   *string `json:"attendance_type"`
}

// AdjustSession edits the modality settings of an open session.
func (h *Handler) AdjustSession(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req adjustSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var attType *domain.AttendanceType
	if req.AttendanceType != nil {
		t := domain.AttendanceType(*req.AttendanceType)
		attType = &t
	}
	session, err := h.sessions.Adjust(c.Request.Context(), id, req.BiometricEnabled, attType)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// GetSession returns one session.
func (h *Handler) GetSession(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	session, err := h.sessions.Get(c.Request.Context(), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// ListSessions returns sessions matching the query filters.
func (h *Handler) ListSessions(c *gin.Context) {
	sessions, err := h.sessions.List(c.Request.Context(), attendance.SessionFilter{
		CourseID:   queryID(c, "course_id"),
		LecturerID: queryID(c, "lecturer_id"),
		Date:       c.Query("date"),
		Status:     domain.SessionStatus(c.Query("status")),
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	if sessions == nil {
		sessions = []domain.AttendanceSession{}
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

type markRequest struct {
	StudentID int64  `json:"student_id" binding:"required"`
	CourseID  int64  `json:"course_id" binding:"required"`
	SessionID int64  `json:"session_id" binding:"required"`
	Method    string `json:"method"`
}

// Mark commits one attendance record.
func (h *Handler) Mark(c *gin.Context) {
	var req markRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	record, err := h.marks.Mark(c.Request.Context(), attendance.MarkInput{
		StudentID: req.StudentID,
		CourseID:  req.CourseID,
		SessionID: req.SessionID,
		Method:    domain.MarkMethod(req.Method),
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	metrics.MarksTotal.WithLabelValues(string(record.Status), string(record.Method)).Inc()
	c.JSON(http.StatusCreated, record)
}

type updateRecordRequest struct {
	Status string   `json:"status" binding:"required"`
	Score  *float64 `json:"verification_score"`
}

// UpdateRecord is the administrative status/score override.
func (h *Handler) UpdateRecord(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req updateRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	record, err := h.marks.UpdateRecord(c.Request.Context(), id, domain.MarkStatus(req.Status), req.Score)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

// GetRecord returns one record.
func (h *Handler) GetRecord(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	record, err := h.marks.Get(c.Request.Context(), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

// ListRecords returns records matching the query filters.
func (h *Handler) ListRecords(c *gin.Context) {
	records, err := h.marks.List(c.Request.Context(), attendance.RecordFilter{
		StudentID: queryID(c, "student_id"),
		CourseID:  queryID(c, "course_id"),
		SessionID: queryID(c, "session_id"),
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	if records == nil {
		records = []domain.AttendanceRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}

type enrollBiometricRequest struct {
	UserID              int64 `json:"user_id" binding:"required"`
	FingerprintEnrolled bool  `json:"fingerprint_enrolled"`
	FaceEnrolled        bool  `json:"face_enrolled"`
}

// EnrollBiometric records modality flags for a user.
func (h *Handler) EnrollBiometric(c *gin.Context) {
	var req enrollBiometricRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	e, err := h.biometric.Enroll(c.Request.Context(), req.UserID, biometric.Flags{
		FingerprintEnrolled: req.FingerprintEnrolled,
		FaceEnrolled:        req.FaceEnrolled,
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, e)
}

type updateBiometricRequest struct {
	FingerprintEnrolled bool `json:"fingerprint_enrolled"`
	FaceEnrolled        bool `json:"face_enrolled"`
}

// UpdateBiometric edits an existing ledger row.
func (h *Handler) UpdateBiometric(c *gin.Context) {
	userID, ok := pathID(c, "userId")
	if !ok {
		return
	}
	var req updateBiometricRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	e, err := h.biometric.Update(c.Request.Context(), userID, biometric.Flags{
		FingerprintEnrolled: req.FingerprintEnrolled,
		FaceEnrolled:        req.FaceEnrolled,
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

// GetBiometric returns a user's ledger row.
func (h *Handler) GetBiometric(c *gin.Context) {
	userID, ok := pathID(c, "userId")
	if !ok {
		return
	}
	e, err := h.biometric.GetByUserID(c.Request.Context(), userID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}
