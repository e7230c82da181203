package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/landfund/impactportal/config"
	"github.com/landfund/impactportal/services"
	"github.com/landfund/impactportal/utils"
)

const leaderboardCacheKey = "leaderboard:top"

// PioneerController exposes the lifetime-score ranking and the pioneer
// access workflow.
type PioneerController struct {
	balance *services.BalanceService
}

// NewPioneerController creates a new controller instance.
func NewPioneerController(balance *services.BalanceService) *PioneerController {
	return &PioneerController{balance: balance}
}

// Leaderboard returns the top lifetime scores. Served from the redis cache
// when warm; the ledger stays the source of truth.
func (p *PioneerController) Leaderboard(ctx *gin.Context) {
	if b, ok := utils.CacheGetBytes(leaderboardCacheKey); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	entries, err := p.balance.Leaderboard(25)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	payload := utils.JSONResponse{Code: 0, Message: "success", Data: gin.H{"leaderboard": entries}}
	ttl := time.Duration(config.Get().LeaderboardCacheSecs) * time.Second
	utils.CacheSetJSON(leaderboardCacheKey, payload, ttl)
	ctx.JSON(http.StatusOK, payload)
}

// Me returns the user's pioneer metric (lifetime score cache plus access
// status), recomputed from the ledger on read.
func (p *PioneerController) Me(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	metric, err := p.balance.RecomputeMetric(userID)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"metric": metric})
}

// Approve grants pioneer access and the one-time bonus (admin).
func (p *PioneerController) Approve(ctx *gin.Context) {
	targetID, ok := paramUserID(ctx)
	if !ok {
		return
	}
	if err := p.balance.Approve(ctx.Request.Context(), targetID); err != nil {
		respondServiceError(ctx, err)
		return
	}
	utils.InvalidateByPrefix(leaderboardCacheKey)
	utils.Success(ctx, gin.H{"user_id": targetID, "access_status": "approved"})
}

// Revoke demotes an approved user (admin). No credit clawback.
func (p *PioneerController) Revoke(ctx *gin.Context) {
	targetID, ok := paramUserID(ctx)
	if !ok {
		return
	}
	if err := p.balance.Revoke(targetID); err != nil {
		respondServiceError(ctx, err)
		return
	}
	utils.InvalidateByPrefix(leaderboardCacheKey)
	utils.Success(ctx, gin.H{"user_id": targetID, "access_status": "revoked"})
}

// Reject denies a pending request, terminally (admin).
func (p *PioneerController) Reject(ctx *gin.Context) {
	targetID, ok := paramUserID(ctx)
	if !ok {
		return
	}
	if err := p.balance.Reject(targetID); err != nil {
		respondServiceError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"user_id": targetID, "access_status": "rejected"})
}

// Sweep demotes approved users ranked beyond the cutoff (admin). Re-running
// it yields the same final state.
func (p *PioneerController) Sweep(ctx *gin.Context) {
	type request struct {
		KeepTop int `json:"keep_top"`
	}
	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil || req.KeepTop <= 0 {
		req.KeepTop = config.Get().PioneerKeepTopN
	}

	demoted, err := p.balance.EnforceTopN(ctx.Request.Context(), req.KeepTop)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	utils.InvalidateByPrefix(leaderboardCacheKey)
	utils.Success(ctx, gin.H{"keep_top": req.KeepTop, "demoted": demoted})
}

func paramUserID(ctx *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil || id == 0 {
		utils.Error(ctx, http.StatusBadRequest, 40005, "invalid user id")
		return 0, false
	}
	return uint(id), true
}
