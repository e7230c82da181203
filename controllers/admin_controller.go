package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/landfund/impactportal/models"
	"github.com/landfund/impactportal/services"
	"github.com/landfund/impactportal/utils"
)

// AdminController manages the tier catalog, action definitions and manual
// credit grants.
type AdminController struct {
	db     *gorm.DB
	ledger *services.Ledger
	tiers  *services.TierResolver
}

// NewAdminController creates a new controller instance.
func NewAdminController(db *gorm.DB, ledger *services.Ledger, tiers *services.TierResolver) *AdminController {
	return &AdminController{db: db, ledger: ledger, tiers: tiers}
}

type tierRequest struct {
	Slug               string `json:"slug" binding:"required"`
	MinAmount          string `json:"min_amount" binding:"required"`
	ImpactCreditReward int64  `json:"impact_credit_reward" binding:"required"`
	LandDollarReward   string `json:"land_dollar_reward"`
	IsActive           *bool  `json:"is_active"`
	DisplayOrder       int    `json:"display_order"`
}

// CreateTier adds a tier to the catalog. Duplicate minimum amounts are a
// configuration error and rejected here rather than resolved at runtime.
func (a *AdminController) CreateTier(ctx *gin.Context) {
	var req tierRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	tier, err := a.tierFromRequest(&req)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	if err := a.db.Create(tier).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			utils.Error(ctx, http.StatusConflict, 40902, "tier slug already exists")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50020, "failed to create tier")
		return
	}

	if err := a.tiers.ValidateCatalog(); err != nil {
		// The row is saved but flagged: two tiers sharing a threshold
		// need an admin decision, not silent tie-breaking.
		utils.Success(ctx, gin.H{"tier": tier, "warning": err.Error()})
		return
	}
	utils.Success(ctx, gin.H{"tier": tier})
}

// UpdateTier edits a tier's reward figures or active flag.
func (a *AdminController) UpdateTier(ctx *gin.Context) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40005, "invalid tier id")
		return
	}

	var tier models.Tier
	if err := a.db.First(&tier, uint(id)).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40412, "tier not found")
		return
	}

	var req tierRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}
	updated, err := a.tierFromRequest(&req)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	tier.Slug = updated.Slug
	tier.MinAmount = updated.MinAmount
	tier.ImpactCreditReward = updated.ImpactCreditReward
	tier.LandDollarReward = updated.LandDollarReward
	tier.IsActive = updated.IsActive
	tier.DisplayOrder = updated.DisplayOrder

	if err := a.db.Save(&tier).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50021, "failed to update tier")
		return
	}
	utils.Success(ctx, gin.H{"tier": tier})
}

func (a *AdminController) tierFromRequest(req *tierRequest) (*models.Tier, error) {
	minAmount, err := services.ParseAmount(req.MinAmount)
	if err != nil {
		return nil, err
	}
	landDollar := minAmount.Copy()
	if req.LandDollarReward != "" {
		landDollar, err = services.ParseAmount(req.LandDollarReward)
		if err != nil {
			return nil, err
		}
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	return &models.Tier{
		Slug:               req.Slug,
		MinAmount:          minAmount,
		ImpactCreditReward: req.ImpactCreditReward,
		LandDollarReward:   landDollar,
		IsActive:           active,
		DisplayOrder:       req.DisplayOrder,
	}, nil
}

type actionRequest struct {
	ActionKey        string `json:"action_key" binding:"required"`
	ActionType       string `json:"action_type"`
	CreditValue      int64  `json:"credit_value"`
	Source           string `json:"source"`
	Frequency        string `json:"frequency"`
	ReferralEligible bool   `json:"referral_eligible"`
	IsActive         *bool  `json:"is_active"`
}

// CreateAction adds an admin-configurable action definition. The engine
// reads these per execution, so the new value applies immediately.
func (a *AdminController) CreateAction(ctx *gin.Context) {
	var req actionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	action := actionFromRequest(&req)
	if err := a.db.Create(action).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			utils.Error(ctx, http.StatusConflict, 40903, "action key already exists")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50022, "failed to create action")
		return
	}
	utils.Success(ctx, gin.H{"action": action})
}

// UpdateAction edits an action's credit value or flags.
func (a *AdminController) UpdateAction(ctx *gin.Context) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40005, "invalid action id")
		return
	}

	var action models.RewardAction
	if err := a.db.First(&action, uint(id)).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40413, "action not found")
		return
	}

	var req actionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	updated := actionFromRequest(&req)
	action.ActionKey = updated.ActionKey
	action.ActionType = updated.ActionType
	action.CreditValue = updated.CreditValue
	action.Source = updated.Source
	action.Frequency = updated.Frequency
	action.ReferralEligible = updated.ReferralEligible
	action.IsActive = updated.IsActive

	if err := a.db.Save(&action).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50023, "failed to update action")
		return
	}
	utils.Success(ctx, gin.H{"action": action})
}

func actionFromRequest(req *actionRequest) *models.RewardAction {
	action := &models.RewardAction{
		ActionKey:        req.ActionKey,
		ActionType:       models.ActionStatic,
		CreditValue:      req.CreditValue,
		Source:           models.SourceQuest,
		Frequency:        models.FrequencyOnce,
		ReferralEligible: req.ReferralEligible,
		IsActive:         true,
	}
	if req.ActionType != "" {
		action.ActionType = models.ActionType(req.ActionType)
	}
	if req.Source != "" {
		action.Source = models.CreditSource(req.Source)
	}
	if req.Frequency != "" {
		action.Frequency = models.ActionFrequency(req.Frequency)
	}
	if req.IsActive != nil {
		action.IsActive = *req.IsActive
	}
	return action
}

// GrantCredits issues a manual admin grant straight to the ledger.
func (a *AdminController) GrantCredits(ctx *gin.Context) {
	targetID, ok := paramUserID(ctx)
	if !ok {
		return
	}

	type request struct {
		Credits     int64  `json:"credits" binding:"required"`
		Description string `json:"description"`
	}
	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}
	if req.Description == "" {
		req.Description = "manual admin grant"
	}

	txID, err := a.ledger.Credit(targetID, req.Credits, models.SourceAdminGrant, req.Description, nil, uuid.NewString())
	if err != nil {
		respondServiceError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"transaction_id": txID, "user_id": targetID, "credits": req.Credits})
}
