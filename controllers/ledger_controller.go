package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/landfund/impactportal/services"
	"github.com/landfund/impactportal/utils"
)

// LedgerController exposes balances, history and spending.
type LedgerController struct {
	ledger  *services.Ledger
	balance *services.BalanceService
}

// NewLedgerController creates a new controller instance.
func NewLedgerController(ledger *services.Ledger, balance *services.BalanceService) *LedgerController {
	return &LedgerController{ledger: ledger, balance: balance}
}

// Balance returns the spendable balance and lifetime score.
func (l *LedgerController) Balance(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	spendable, err := l.balance.SpendableBalance(userID)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	lifetime, err := l.balance.LifetimeScore(userID)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	utils.Success(ctx, gin.H{
		"spendable_balance": spendable,
		"lifetime_earned":   lifetime,
	})
}

// History returns a page of the user's earn transactions, newest first.
func (l *LedgerController) History(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))
	entries, total, err := l.ledger.History(userID, page, pageSize)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	utils.Success(ctx, gin.H{
		"items": entries,
		"pagination": gin.H{
			"page":        page,
			"page_size":   pageSize,
			"total":       total,
			"total_pages": int((total + int64(pageSize) - 1) / int64(pageSize)),
		},
	})
}

// Spend debits credits for a product. The balance check and the write are
// atomic; overspending is rejected with a distinct code.
func (l *LedgerController) Spend(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	type request struct {
		ProductID string `json:"product_id" binding:"required"`
		Quantity  int    `json:"quantity"`
		Credits   int64  `json:"credits" binding:"required"`
	}
	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	txID, err := l.ledger.Debit(userID, req.Credits, req.ProductID, req.Quantity)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	balance, err := l.ledger.BalanceOf(userID)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	utils.Success(ctx, gin.H{
		"transaction_id":    txID,
		"spendable_balance": balance,
	})
}
