package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// CurrentUserFunc resolves the locally logged-in user.
type CurrentUserFunc func(ctx context.Context) (userID string, err error)

// RequireSession guards routes that need a logged-in user. When no
// session exists the request is aborted with 401; otherwise the user id
// is stored on the context for handlers.
func RequireSession(current CurrentUserFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := current(c.Request.Context())
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not logged in"})
			return
		}

		c.Set("userID", userID)
		c.Next()
	}
}
