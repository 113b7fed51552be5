package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"flyte-sync/internal/store"
)

// Realtime is the channel surface the handlers need.
type Realtime interface {
	Open(roomID, userID string)
	Send(text, userID, roomID string) error
	Close()
}

// RealtimeHandler attaches and detaches the broker channel and sends
// messages through it.
type RealtimeHandler struct {
	channel Realtime
	store   *store.Store
}

// NewRealtimeHandler builds a RealtimeHandler.
func NewRealtimeHandler(ch Realtime, st *store.Store) *RealtimeHandler {
	return &RealtimeHandler{channel: ch, store: st}
}

// Open attaches the realtime channel to a room. Opening a different
// room moves the channel over.
func (h *RealtimeHandler) Open(c *gin.Context) {
	roomID := c.Param("room_id")

	if _, err := h.store.GetRoom(c.Request.Context(), roomID); err != nil {
		writeError(c, err)
		return
	}

	h.channel.Open(roomID, c.GetString("userID"))
	c.Status(http.StatusNoContent)
}

// Detach closes the realtime channel. Idempotent.
func (h *RealtimeHandler) Detach(c *gin.Context) {
	h.channel.Close()
	c.Status(http.StatusNoContent)
}

// Send publishes a message to the open room. The message lands in the
// store when the broker echoes it back.
func (h *RealtimeHandler) Send(c *gin.Context) {
	roomID := c.Param("room_id")

	var req struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.channel.Send(req.Text, c.GetString("userID"), roomID); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}
