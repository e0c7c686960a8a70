package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/brenlab/bren-backend/internal/http/response"
	"github.com/brenlab/bren-backend/internal/services"
)

type WalletHandler struct {
	wallet services.WalletService
}

func NewWalletHandler(wallet services.WalletService) *WalletHandler {
	return &WalletHandler{wallet: wallet}
}

// GET /api/v1/wallet
func (h *WalletHandler) Get(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	wallet, err := h.wallet.Get(c.Request.Context(), userID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"wallet":          wallet,
		"minimum_balance": h.wallet.MinimumBalance(),
	})
}

// GET /api/v1/wallet/transactions?limit=50
func (h *WalletHandler) Transactions(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	txns, err := h.wallet.Transactions(c.Request.Context(), userID, queryLimit(c, 50))
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"transactions": txns})
}

type creditReq struct {
	AmountUSD     string `json:"amount_usd"`
	SourceEventID string `json:"source_event_id"`
}

// POST /api/v1/wallet/credit
func (h *WalletHandler) Credit(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req creditReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	amount, err := decimal.NewFromString(req.AmountUSD)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	wallet, err := h.wallet.Credit(c.Request.Context(), userID, amount, req.SourceEventID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"wallet": wallet})
}
