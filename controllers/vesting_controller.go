package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/landfund/impactportal/services"
	"github.com/landfund/impactportal/utils"
)

// VestingController exposes the read-only vesting view over the ledger.
type VestingController struct {
	vesting *services.VestingCalculator
}

// NewVestingController creates a new controller instance.
func NewVestingController(vesting *services.VestingCalculator) *VestingController {
	return &VestingController{vesting: vesting}
}

// Balance returns the vested balance and per-tranche breakdown. This is an
// informational metric, distinct from the spendable balance.
func (v *VestingController) Balance(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	now := time.Now()
	vested, err := v.vesting.VestedBalance(userID, now)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	tranches, err := v.vesting.Tranches(userID, now)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	utils.Success(ctx, gin.H{
		"vested_balance": vested,
		"tranches":       tranches,
		"as_of":          now,
	})
}
