package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/landfund/impactportal/services"
	"github.com/landfund/impactportal/utils"
)

// TierController exposes the public tier catalog.
type TierController struct {
	tiers *services.TierResolver
}

// NewTierController creates a new controller instance.
func NewTierController(tiers *services.TierResolver) *TierController {
	return &TierController{tiers: tiers}
}

// List returns the active tier catalog in ascending threshold order.
func (t *TierController) List(ctx *gin.Context) {
	tiers, err := t.tiers.ActiveTiers()
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"tiers": tiers})
}

// Resolve previews which tier a contribution amount would land in.
func (t *TierController) Resolve(ctx *gin.Context) {
	amountStr := ctx.Query("amount")
	if amountStr == "" {
		utils.Error(ctx, http.StatusBadRequest, 40001, "amount query parameter is required")
		return
	}

	amount, err := services.ParseAmount(amountStr)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	tier, err := t.tiers.Resolve(amount)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	if tier == nil {
		utils.Success(ctx, gin.H{"tier": nil, "message": "amount below every tier minimum"})
		return
	}
	utils.Success(ctx, gin.H{"tier": tier})
}
