package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"flyte-sync/internal/models"
	syncpkg "flyte-sync/internal/sync"
)

// Syncer is the reconciler surface the handlers need.
type Syncer interface {
	Sync(ctx context.Context, userID string) (syncpkg.Summary, error)
	FullResync(ctx context.Context, userID string) (syncpkg.Summary, error)
	SyncJourney(ctx context.Context, req models.JourneyRequest) (models.JourneyResponse, error)
	RoomHistory(ctx context.Context, roomID string) (int, error)
}

// SyncHandler triggers backend reconciliation runs.
type SyncHandler struct {
	syncer Syncer
}

// NewSyncHandler builds a SyncHandler.
func NewSyncHandler(syncer Syncer) *SyncHandler {
	return &SyncHandler{syncer: syncer}
}

// Run performs a snapshot sync for the logged-in user. `?full=true`
// replaces the local room set with the backend's.
func (h *SyncHandler) Run(c *gin.Context) {
	userID := c.GetString("userID")

	run := h.syncer.Sync
	if c.Query("full") == "true" {
		run = h.syncer.FullResync
	}

	summary, err := run(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
