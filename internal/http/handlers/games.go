package handlers

import (
	"net/http"

	"coin_ledger/internal/domain"

	"github.com/gin-gonic/gin"
)

type PlayRequest struct {
	Bet    int64   `json:"bet"`
	Choice *string `json:"choice"`
}

func (h *Handler) ListGames(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"games": h.Games.Catalog()})
}

// Play settles one round. The outcome is drawn on the server.
func (h *Handler) Play(c *gin.Context) {
	accountID, ok := getAccountID(c)
	if !ok {
		unauthorized(c)
		return
	}

	var req PlayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "bad request")
		return
	}

	res, err := h.Games.PlayRound(c.Request.Context(), accountID, domain.GameType(c.Param("type")), req.Bet, req.Choice)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
