package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bioattend/internal/domain"
	"bioattend/internal/identity"
	"bioattend/internal/metrics"
)

type registerRequest struct {
	Name          string  `json:"name" binding:"required"`
	Email         string  `json:"email" binding:"required,email"`
	Password      string  `json:"password" binding:"required,min=6"`
	Role          string  `json:"role" binding:"required,role"`
	Department    string  `json:"department"`
	FingerprintID *string `json:"fingerprint_id"`
}

// Register creates a user account.
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, err := h.users.Register(c.Request.Context(), identity.RegisterInput{
		Name:          req.Name,
		Email:         req.Email,
		Password:      req.Password,
		Role:          domain.Role(req.Role),
		Department:    req.Department,
		FingerprintID: req.FingerprintID,
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login performs the stateless credential check.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, err := h.users.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// GetUser returns one user.
func (h *Handler) GetUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	user, err := h.users.GetByID(c.Request.Context(), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

type updateUserRequest struct {
	Name          string  `json:"name" binding:"required"`
	Email         string  `json:"email" binding:"required,email"`
	Department    string  `json:"department"`
	Avatar        *string `json:"avatar"`
	FingerprintID *string `json:"fingerprint_id"`
	FaceID        *string `json:"face_id"`
}

// UpdateUser edits a profile.
func (h *Handler) UpdateUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, err := h.users.Update(c.Request.Context(), id, identity.UpdateInput{
		Name:          req.Name,
		Email:         req.Email,
		Department:    req.Department,
		Avatar:        req.Avatar,
		FingerprintID: req.FingerprintID,
		FaceID:        req.FaceID,
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// UploadAvatar stores a profile image and records its URL.
func (h *Handler) UploadAvatar(c *gin.Context) {
	if h.avatars == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "avatar storage not configured"})
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file field required"})
		return
	}
	defer file.Close()

	url, err := h.avatars.Upload(c.Request.Context(), id, file, header.Filename)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "avatar upload failed"})
		return
	}
	user, err := h.users.SetAvatar(c.Request.Context(), id, url)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

type changePasswordRequest struct {
	UserID          int64  `json:"user_id" binding:"required"`
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=6"`
}

// ChangePassword swaps a password after verifying the current one.
func (h *Handler) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.users.ChangePassword(c.Request.Context(), req.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "password changed"})
}

type forgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

const resetSentMessage = "If the email exists, a reset link has been sent."

// ForgotPassword requests a reset link. The response is uniform whether or
// not the account exists; the fallback URL appears only when mail delivery
// could not be confirmed for a real account.
func (h *Handler) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := h.reset.Request(c.Request.Context(), req.Email)
	if err != nil {
		// degrade to the uniform message; never leak infrastructure state
		c.JSON(http.StatusOK, gin.H{"message": resetSentMessage})
		return
	}

	outcome := "delivered"
	message := resetSentMessage
	body := gin.H{}
	if result.AccountFound && !result.Delivered {
		outcome = "fallback"
		message = "Email service is not configured. Use the fallback reset link."
		body["reset_url"] = result.FallbackURL
	} else if !result.AccountFound {
		outcome = "unknown_account"
	}
	metrics.ResetRequestsTotal.WithLabelValues(outcome).Inc()
	body["message"] = message
	c.JSON(http.StatusOK, body)
}

type resetPasswordRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=6"`
}

// ResetPassword redeems a reset token.
func (h *Handler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.reset.Redeem(c.Request.Context(), req.Token, req.NewPassword); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "password reset successful"})
}
