package middleware

import (
	"context"
	"net/http"

	"github.com/ErlanBelekov/ops-dashboard/internal/domain"
	"github.com/gin-gonic/gin"
)

const (
	errUnauthorized = "Unauthorized"

	// EmailKey holds the signed-in address in the gin context.
	EmailKey = "email"
)

type sessionResolver interface {
	CurrentUser(ctx context.Context, sessionID string) (*domain.Session, error)
}

// RequireSession resolves the session cookie and sets EmailKey in the gin
// context, or aborts with 401.
func RequireSession(resolver sessionResolver, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, err := c.Cookie(cookieName)
		if err != nil || sessionID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"ok": false, "error": errUnauthorized})
			return
		}

		session, err := resolver.CurrentUser(c.Request.Context(), sessionID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"ok": false, "error": errUnauthorized})
			return
		}

		c.Set(EmailKey, session.Email)
		c.Next()
	}
}
