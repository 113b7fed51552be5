package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"flyte-sync/internal/realtime"
	"flyte-sync/internal/rest"
	"flyte-sync/internal/session"
	"flyte-sync/internal/store"
)

// writeError maps domain errors onto HTTP statuses for the UI layer.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, session.ErrNoSession), errors.Is(err, rest.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not logged in"})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, realtime.ErrNotConnected):
		c.JSON(http.StatusConflict, gin.H{"error": "realtime channel not connected"})
	case errors.Is(err, rest.ErrNetwork), errors.Is(err, rest.ErrParse):
		c.JSON(http.StatusBadGateway, gin.H{"error": "backend unavailable"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
