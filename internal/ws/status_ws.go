package ws

import (
	"context"

	"github.com/gin-gonic/gin"

	"flyte-sync/internal/models"
	"flyte-sync/internal/realtime"
)

// StatusStreamHandler streams the realtime channel's connection state
// to UI clients.
type StatusStreamHandler struct {
	hub     *Hub
	channel *realtime.Channel
}

// NewStatusStreamHandler constructs a StatusStreamHandler.
func NewStatusStreamHandler(hub *Hub, ch *realtime.Channel) *StatusStreamHandler {
	return &StatusStreamHandler{hub: hub, channel: ch}
}

// Handle upgrades the connection and pushes the channel state on every
// transition, starting with the current state.
func (h *StatusStreamHandler) Handle(c *gin.Context) {
	serveStream(h.hub, c, "status",
		func(ctx context.Context) (<-chan realtime.State, func()) {
			return h.channel.Status()
		},
		func(s realtime.State) interface{} {
			return models.StatusEvent{Type: "status", State: s.String()}
		})
}
