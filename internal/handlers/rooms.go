package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"flyte-sync/internal/store"
)

// RoomsHandler serves the locally persisted rooms and messages.
type RoomsHandler struct {
	store  *store.Store
	syncer Syncer
}

// NewRoomsHandler builds a RoomsHandler.
func NewRoomsHandler(st *store.Store, syncer Syncer) *RoomsHandler {
	return &RoomsHandler{store: st, syncer: syncer}
}

// List returns the room list, most recent activity first. Expired
// rooms are excluded unless `?all=true`.
func (h *RoomsHandler) List(c *gin.Context) {
	includeExpired := c.Query("all") == "true"

	rooms, err := h.store.ListRooms(c.Request.Context(), includeExpired, time.Now().UnixMilli())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load rooms"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

// Messages returns one room's messages, newest first. `?refresh=true`
// pulls the room's history from the backend before reading.
func (h *RoomsHandler) Messages(c *gin.Context) {
	roomID := c.Param("room_id")

	if _, err := h.store.GetRoom(c.Request.Context(), roomID); err != nil {
		writeError(c, err)
		return
	}

	if c.Query("refresh") == "true" {
		if _, err := h.syncer.RoomHistory(c.Request.Context(), roomID); err != nil {
			writeError(c, err)
			return
		}
	}

	messages, err := h.store.ListRoomMessages(c.Request.Context(), roomID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}
