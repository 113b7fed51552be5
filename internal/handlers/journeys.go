package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"flyte-sync/internal/models"
)

// JourneyHandler creates journeys upstream and persists their rooms.
type JourneyHandler struct {
	syncer Syncer
}

// NewJourneyHandler builds a JourneyHandler.
func NewJourneyHandler(syncer Syncer) *JourneyHandler {
	return &JourneyHandler{syncer: syncer}
}

// Create asks the backend for a new journey and stores the three rooms
// it comes back with.
func (h *JourneyHandler) Create(c *gin.Context) {
	var req models.JourneyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.UserID == "" {
		req.UserID = c.GetString("userID")
	}

	resp, err := h.syncer.SyncJourney(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}
