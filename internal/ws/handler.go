package ws

import (
	"context"
	"net/http"
	"slices"

	"coin_ledger/internal/domain"
	"coin_ledger/internal/logger"
	"coin_ledger/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Authenticator resolves a session token.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*service.Identity, error)
}

// HandleWS upgrades an authenticated request to the event feed.
// Browsers cannot set headers on the upgrade, so the token comes in the query.
// An empty allowedOrigins accepts any origin.
func HandleWS(hub *Hub, auth Authenticator, allowedOrigins []string) gin.HandlerFunc {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			return slices.Contains(allowedOrigins, r.Header.Get("Origin"))
		},
	}

	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "token required", "code": "unauthenticated"})
			return
		}

		id, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			code := domain.Code(err)
			status := http.StatusUnauthorized
			if !domain.IsExpected(err) {
				status = http.StatusInternalServerError
			}
			c.JSON(status, gin.H{"error": "invalid session", "code": code})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("ws upgrade error", "error", err)
			return
		}

		client := NewClient(id.Account.ID, id.SessionID, id.Account.IsAdmin(), conn, hub)
		go client.Run()
	}
}
