package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/landfund/impactportal/models"
	"github.com/landfund/impactportal/utils"
)

// ReferralController exposes a user's position in the referral graph.
type ReferralController struct {
	db *gorm.DB
}

// NewReferralController creates a new controller instance.
func NewReferralController(db *gorm.DB) *ReferralController {
	return &ReferralController{db: db}
}

// Me returns the user's referrer, direct referral count and referral
// earnings.
func (r *ReferralController) Me(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var referrerID *uint
	var edge models.ReferralEdge
	err := r.db.First(&edge, "user_id = ?", userID).Error
	if err == nil {
		referrerID = &edge.ReferrerID
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		utils.Error(ctx, http.StatusInternalServerError, 50010, "temporary failure, please retry")
		return
	}

	var directCount int64
	if err := r.db.Model(&models.ReferralEdge{}).Where("referrer_id = ?", userID).Count(&directCount).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50010, "temporary failure, please retry")
		return
	}

	var referralEarned int64
	if err := r.db.Model(&models.CreditTransaction{}).
		Where("user_id = ? AND source IN ?", userID, []models.CreditSource{models.SourceReferralDirect, models.SourceReferralIndirect}).
		Select("COALESCE(SUM(amount),0)").
		Scan(&referralEarned).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50010, "temporary failure, please retry")
		return
	}

	utils.Success(ctx, gin.H{
		"referrer_id":      referrerID,
		"direct_referrals": directCount,
		"referral_earned":  referralEarned,
	})
}
