package ws

import (
	"context"

	"github.com/gin-gonic/gin"

	"flyte-sync/internal/models"
	"flyte-sync/internal/store"
)

// RoomsStreamHandler streams the live room list to UI clients.
type RoomsStreamHandler struct {
	hub   *Hub
	store *store.Store
}

// NewRoomsStreamHandler constructs a RoomsStreamHandler.
func NewRoomsStreamHandler(hub *Hub, st *store.Store) *RoomsStreamHandler {
	return &RoomsStreamHandler{hub: hub, store: st}
}

// Handle upgrades the connection and pushes the room list on every
// change. `?all=true` includes expired rooms.
func (h *RoomsStreamHandler) Handle(c *gin.Context) {
	includeExpired := c.Query("all") == "true"

	serveStream(h.hub, c, "rooms",
		func(ctx context.Context) (<-chan []models.Room, func()) {
			return h.store.ObserveRooms(ctx, includeExpired)
		},
		func(rooms []models.Room) interface{} {
			return models.RoomsEvent{Type: "rooms", Rooms: rooms}
		})
}
