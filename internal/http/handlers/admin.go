package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type BanRequest struct {
	Reason string `json:"reason"`
}

type FundPoolRequest struct {
	Amount int64  `json:"amount" binding:"required"`
	Note   string `json:"note"`
}

func (h *Handler) GetAccount(c *gin.Context) {
	acc, err := h.Admin.Account(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, acc)
}

func (h *Handler) BanAccount(c *gin.Context) {
	adminID, ok := getAccountID(c)
	if !ok {
		unauthorized(c)
		return
	}

	var req BanRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "bad request")
			return
		}
	}

	acc, err := h.Admin.Ban(c.Request.Context(), adminID, c.Param("id"), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, acc)
}

func (h *Handler) UnbanAccount(c *gin.Context) {
	adminID, ok := getAccountID(c)
	if !ok {
		unauthorized(c)
		return
	}

	acc, err := h.Admin.Unban(c.Request.Context(), adminID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, acc)
}

func (h *Handler) Pool(c *gin.Context) {
	p, err := h.Admin.Pool(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) FundPool(c *gin.Context) {
	adminID, ok := getAccountID(c)
	if !ok {
		unauthorized(c)
		return
	}

	var req FundPoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "bad request")
		return
	}

	row, err := h.Admin.FundPool(c.Request.Context(), adminID, req.Amount, req.Note)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"balance": row.BalanceAfter, "transaction": row})
}

func (h *Handler) Stats(c *gin.Context) {
	st, err := h.Admin.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *Handler) LedgerAudit(c *gin.Context) {
	audit, err := h.Admin.LedgerAudit(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	status := http.StatusOK
	if !audit.Conserved || !audit.Balanced {
		status = http.StatusConflict
	}
	c.JSON(status, audit)
}

func (h *Handler) AuditLog(c *gin.Context) {
	logs, err := h.Admin.AuditLog(c.Request.Context(), queryLimit(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs})
}
