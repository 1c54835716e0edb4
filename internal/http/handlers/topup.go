package handlers

import (
	"net/http"

	"coin_ledger/internal/domain"

	"github.com/gin-gonic/gin"
)

type TopUpRequest struct {
	Amount       int64   `json:"amount" binding:"required"`
	PaymentProof *string `json:"payment_proof"`
}

type DecisionRequest struct {
	Notes *string `json:"notes"`
}

func (h *Handler) SubmitTopUp(c *gin.Context) {
	accountID, ok := getAccountID(c)
	if !ok {
		unauthorized(c)
		return
	}

	var req TopUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "bad request")
		return
	}

	r, err := h.TopUps.Submit(c.Request.Context(), accountID, req.Amount, req.PaymentProof)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"request_id": r.ID, "topup": r})
}

// ListTopUps is the admin queue, ?status= narrows it.
func (h *Handler) ListTopUps(c *gin.Context) {
	list, err := h.TopUps.List(c.Request.Context(), domain.TopUpFilter{
		AccountID: c.Query("account_id"),
		Status:    domain.TopUpStatus(c.Query("status")),
		Limit:     queryLimit(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"topups": list})
}

func (h *Handler) ApproveTopUp(c *gin.Context) {
	h.decide(c, true)
}

func (h *Handler) RejectTopUp(c *gin.Context) {
	h.decide(c, false)
}

func (h *Handler) decide(c *gin.Context, approve bool) {
	adminID, ok := getAccountID(c)
	if !ok {
		unauthorized(c)
		return
	}

	var req DecisionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "bad request")
			return
		}
	}

	var (
		r   *domain.TopUpRequest
		err error
	)
	if approve {
		r, err = h.TopUps.Approve(c.Request.Context(), c.Param("id"), adminID, req.Notes)
	} else {
		r, err = h.TopUps.Reject(c.Request.Context(), c.Param("id"), adminID, req.Notes)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "topup": r})
}
