package ws

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"flyte-sync/internal/models"
	"flyte-sync/internal/store"
)

// RoomMessagesStreamHandler streams one room's message history to UI
// clients.
type RoomMessagesStreamHandler struct {
	hub   *Hub
	store *store.Store
}

// NewRoomMessagesStreamHandler constructs a RoomMessagesStreamHandler.
func NewRoomMessagesStreamHandler(hub *Hub, st *store.Store) *RoomMessagesStreamHandler {
	return &RoomMessagesStreamHandler{hub: hub, store: st}
}

// Handle upgrades the connection and pushes the room's messages on
// every change. Unknown rooms are rejected before the upgrade.
func (h *RoomMessagesStreamHandler) Handle(c *gin.Context) {
	roomID := c.Param("room_id")

	if _, err := h.store.GetRoom(c.Request.Context(), roomID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load room"})
		return
	}

	serveStream(h.hub, c, "messages",
		func(ctx context.Context) (<-chan []models.Message, func()) {
			return h.store.ObserveRoomMessages(ctx, roomID)
		},
		func(msgs []models.Message) interface{} {
			return models.RoomMessagesEvent{Type: "messages", RoomID: roomID, Messages: msgs}
		})
}
