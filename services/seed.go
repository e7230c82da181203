package services

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/landfund/impactportal/models"
)

// Built-in action keys.
const (
	ActionContributionKey   = "contribution"
	ActionDailySignin       = "daily_signin"
	ActionReferralSignup    = "referral_signup"
	ActionMissionCompletion = "mission_completed"
)

// SeedDefaults installs the canonical tier catalog and the built-in actions
// when their tables are empty. Existing rows are left alone so admin edits
// survive restarts.
func SeedDefaults(db *gorm.DB) error {
	var tierCount int64
	if err := db.Model(&models.Tier{}).Count(&tierCount).Error; err != nil {
		return err
	}
	if tierCount == 0 {
		tiers := []models.Tier{
			{Slug: "supporter", MinAmount: decimal.RequireFromString("5.00"), ImpactCreditReward: 1000, LandDollarReward: decimal.RequireFromString("1.00"), IsActive: true, DisplayOrder: 1},
			{Slug: "advocate", MinAmount: decimal.RequireFromString("14.99"), ImpactCreditReward: 3000, LandDollarReward: decimal.RequireFromString("3.00"), IsActive: true, DisplayOrder: 2},
			{Slug: "champion", MinAmount: decimal.RequireFromString("49.99"), ImpactCreditReward: 10000, LandDollarReward: decimal.RequireFromString("10.00"), IsActive: true, DisplayOrder: 3},
			{Slug: "pioneer", MinAmount: decimal.RequireFromString("97.99"), ImpactCreditReward: 25000, LandDollarReward: decimal.RequireFromString("25.00"), IsActive: true, DisplayOrder: 4},
		}
		if err := db.Create(&tiers).Error; err != nil {
			return err
		}
	}

	var actionCount int64
	if err := db.Model(&models.RewardAction{}).Count(&actionCount).Error; err != nil {
		return err
	}
	if actionCount == 0 {
		actions := []models.RewardAction{
			{ActionKey: ActionContributionKey, ActionType: models.ActionContribution, Source: models.SourceContribution, Frequency: models.FrequencyPerEvent, ReferralEligible: true, IsActive: true},
			{ActionKey: ActionDailySignin, ActionType: models.ActionStatic, CreditValue: 10, Source: models.SourceQuest, Frequency: models.FrequencyDaily, IsActive: true},
			{ActionKey: ActionReferralSignup, ActionType: models.ActionStatic, CreditValue: 100, Source: models.SourceQuest, Frequency: models.FrequencyOnce, ReferralEligible: true, IsActive: true},
			{ActionKey: ActionMissionCompletion, ActionType: models.ActionDynamic, Source: models.SourceQuest, Frequency: models.FrequencyOnce, IsActive: true},
			{ActionKey: PioneerApprovalBonusAction, ActionType: models.ActionStatic, CreditValue: 100, Source: models.SourceBonus, Frequency: models.FrequencyOnce, IsActive: true},
		}
		if err := db.Create(&actions).Error; err != nil {
			return err
		}
	}
	return nil
}
