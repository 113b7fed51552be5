package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"flyte-sync/internal/models"
	"flyte-sync/internal/session"
)

// SessionHandler manages the local session endpoints.
type SessionHandler struct {
	session *session.Bootstrap
}

// NewSessionHandler builds a SessionHandler.
func NewSessionHandler(s *session.Bootstrap) *SessionHandler {
	return &SessionHandler{session: s}
}

// Get returns the logged-in user.
func (h *SessionHandler) Get(c *gin.Context) {
	user, err := h.session.Current(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// Login stores the user as the single local session.
func (h *SessionHandler) Login(c *gin.Context) {
	var req struct {
		ID             string  `json:"id" binding:"required"`
		Name           string  `json:"name" binding:"required"`
		Email          string  `json:"email"`
		ProfilePicture *string `json:"profilePicture"`
		Token          string  `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user := models.User{
		ID:                req.ID,
		Name:              req.Name,
		Email:             req.Email,
		ProfilePictureURL: req.ProfilePicture,
		Token:             req.Token,
	}
	if err := h.session.Login(c.Request.Context(), user); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// Logout clears the local session.
func (h *SessionHandler) Logout(c *gin.Context) {
	if err := h.session.Logout(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
