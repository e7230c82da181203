package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tier is a contribution-amount bracket granting a fixed reward package.
// Tiers are ordered ascending by MinAmount; an amount resolves to the
// highest-threshold active tier whose MinAmount does not exceed it.
type Tier struct {
	ID                 uint            `gorm:"primaryKey" json:"id"`
	Slug               string          `gorm:"size:64;uniqueIndex;not null" json:"slug"`
	MinAmount          decimal.Decimal `gorm:"type:decimal(10,2);not null;index" json:"min_amount"`
	ImpactCreditReward int64           `gorm:"not null" json:"impact_credit_reward"`
	LandDollarReward   decimal.Decimal `gorm:"type:decimal(10,2)" json:"land_dollar_reward"`
	IsActive           bool            `gorm:"default:true" json:"is_active"`
	DisplayOrder       int             `gorm:"default:0" json:"display_order"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}
