package middleware

import (
	"context"
	"net/http"
	"strings"

	"coin_ledger/internal/domain"
	"coin_ledger/internal/http/handlers"
	"coin_ledger/internal/service"

	"github.com/gin-gonic/gin"
)

const ctxAccountID = handlers.CtxAccountID

// Authenticator resolves a bearer token to a live session.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*service.Identity, error)
}

// Auth requires "Authorization: Bearer <token>" backed by the account's
// current session. Displaced and idle sessions are refused here.
func Auth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token", "code": "unauthenticated"})
			return
		}

		id, err := auth.Authenticate(c.Request.Context(), strings.TrimSpace(token))
		if err != nil {
			status := handlers.StatusFor(err)
			if status == http.StatusInternalServerError {
				c.AbortWithStatusJSON(status, gin.H{"error": "internal error", "code": domain.Code(err)})
				return
			}
			c.AbortWithStatusJSON(status, gin.H{"error": err.Error(), "code": domain.Code(err)})
			return
		}

		c.Set(handlers.CtxAccountID, id.Account.ID)
		c.Set(handlers.CtxSessionID, id.SessionID)
		c.Set(handlers.CtxRole, string(id.Account.Role))
		c.Next()
	}
}

// RequireAdmin must run after Auth. Services re-check the role against
// the stored account.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(handlers.CtxRole) != string(domain.RoleAdmin) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin only", "code": "forbidden"})
			return
		}
		c.Next()
	}
}
