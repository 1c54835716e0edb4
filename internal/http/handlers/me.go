package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

func (h *Handler) Me(c *gin.Context) {
	accountID, ok := getAccountID(c)
	if !ok {
		unauthorized(c)
		return
	}

	acc, err := h.Accounts.Get(c.Request.Context(), accountID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, acc)
}

func (h *Handler) MyTransactions(c *gin.Context) {
	accountID, ok := getAccountID(c)
	if !ok {
		unauthorized(c)
		return
	}

	txs, err := h.Accounts.Transactions(c.Request.Context(), accountID, queryLimit(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": txs})
}

func (h *Handler) MyGames(c *gin.Context) {
	accountID, ok := getAccountID(c)
	if !ok {
		unauthorized(c)
		return
	}

	games, total, err := h.Games.History(c.Request.Context(), accountID, queryLimit(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"games": games, "total": total})
}

func (h *Handler) MyTopUps(c *gin.Context) {
	accountID, ok := getAccountID(c)
	if !ok {
		unauthorized(c)
		return
	}

	list, err := h.Accounts.TopUps(c.Request.Context(), accountID, queryLimit(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"topups": list})
}

// queryLimit reads ?limit=, 0 means the default page size.
func queryLimit(c *gin.Context) int {
	n, err := strconv.Atoi(c.Query("limit"))
	if err != nil {
		return 0
	}
	return n
}
