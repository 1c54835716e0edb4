package handlers

import (
	"errors"
	"net/http"

	"coin_ledger/internal/domain"
	"coin_ledger/internal/logger"
	"coin_ledger/internal/service"

	"github.com/gin-gonic/gin"
)

// Context keys set by the auth middleware.
const (
	CtxAccountID = "account_id"
	CtxSessionID = "session_id"
	CtxRole      = "role"
)

type Handler struct {
	Auth     *service.AuthService
	Accounts *service.AccountService
	Games    *service.GameService
	TopUps   *service.TopUpService
	Admin    *service.AdminService
}

// getAccountID извлекает account_id из контекста Gin
func getAccountID(c *gin.Context) (string, bool) {
	v, ok := c.Get(CtxAccountID)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}

func getSessionID(c *gin.Context) string {
	return c.GetString(CtxSessionID)
}

// StatusFor maps an error to its HTTP status.
func StatusFor(err error) int {
	switch domain.Code(err) {
	case "invalid_amount", "invalid_transfer", "invalid_bet",
		"amount_out_of_range", "invalid_input":
		return http.StatusBadRequest
	case "unauthenticated", "session_displaced", "session_expired", "invalid_credentials":
		return http.StatusUnauthorized
	case "account_banned", "forbidden":
		return http.StatusForbidden
	case "not_found", "unknown_party":
		return http.StatusNotFound
	case "insufficient_funds", "insufficient_pool_funds", "already_processed", "email_taken":
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// respondError writes the error body. Integrity faults never leak details.
func respondError(c *gin.Context, err error) {
	status := StatusFor(err)
	code := domain.Code(err)
	if status == http.StatusInternalServerError {
		logger.WithContext(c.Request.Context()).Error("request failed",
			"path", c.FullPath(), "error", err)
		c.JSON(status, gin.H{"error": "internal error", "code": code})
		return
	}

	body := gin.H{"error": err.Error(), "code": code}
	var banned *domain.BannedError
	if errors.As(err, &banned) && banned.Reason != "" {
		body["reason"] = banned.Reason
	}
	c.JSON(status, body)
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg, "code": "invalid_input"})
}

func unauthorized(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated", "code": "unauthenticated"})
}
