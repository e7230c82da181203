package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/landfund/impactportal/services"
	"github.com/landfund/impactportal/utils"
)

// RewardController exposes the reward engine's execution triggers.
type RewardController struct {
	engine *services.Engine
}

// NewRewardController creates a new controller instance.
func NewRewardController(engine *services.Engine) *RewardController {
	return &RewardController{engine: engine}
}

// Execute runs a named action for the authenticated user.
func (r *RewardController) Execute(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	type request struct {
		ActionKey       string `json:"action_key" binding:"required"`
		MissionID       string `json:"mission_id"`
		CreditsOverride *int64 `json:"credits_override"`
		OriginEventID   string `json:"origin_event_id"`
	}
	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	result, err := r.engine.Execute(ctx.Request.Context(), userID, req.ActionKey, &services.ExecuteContext{
		MissionID:       req.MissionID,
		CreditsOverride: req.CreditsOverride,
		OriginEventID:   req.OriginEventID,
	})
	r.respond(ctx, result, err)
}

// Contribute reacts to a recorded contribution: resolves the amount to a
// tier and issues the tier's credits. Funds are assumed already received.
func (r *RewardController) Contribute(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	type request struct {
		Amount        string `json:"amount" binding:"required"`
		OriginEventID string `json:"origin_event_id"`
	}
	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	amount, err := services.ParseAmount(req.Amount)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	result, err := r.engine.Execute(ctx.Request.Context(), userID, services.ActionContributionKey, &services.ExecuteContext{
		Amount:        &amount,
		OriginEventID: req.OriginEventID,
	})
	r.respond(ctx, result, err)
}

// DailySignIn executes the daily sign-in quest. The per-day completion key
// makes it once per calendar day.
func (r *RewardController) DailySignIn(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	result, err := r.engine.Execute(ctx.Request.Context(), userID, services.ActionDailySignin, nil)
	r.respond(ctx, result, err)
}

// respond maps an execution outcome to the API envelope. ALREADY_COMPLETED
// and partial referral failures are successful responses with detail, per
// the caller-visible contract.
func (r *RewardController) respond(ctx *gin.Context, result services.Result, err error) {
	var partial *services.PartialFailureError
	if err != nil && !errors.As(err, &partial) {
		respondServiceError(ctx, err)
		return
	}

	payload := gin.H{"result": result}
	if partial != nil {
		payload["referral_warning"] = partial.Error()
	}
	utils.Success(ctx, payload)
}
