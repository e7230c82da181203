package models

import "time"

// ActionType selects how the engine computes the credit amount for an action.
type ActionType string

const (
	// ActionStatic awards the fixed CreditValue from the action row.
	ActionStatic ActionType = "static"
	// ActionContribution derives the amount from the resolved reward tier.
	ActionContribution ActionType = "contribution"
	// ActionDynamic expects a caller-supplied credits override (ad hoc missions).
	ActionDynamic ActionType = "dynamic"
)

// ActionFrequency controls how often the same user may complete an action.
type ActionFrequency string

const (
	FrequencyOnce  ActionFrequency = "once"
	FrequencyDaily ActionFrequency = "daily"
	// FrequencyPerEvent allows one completion per originating event, e.g.
	// one reward per recorded contribution.
	FrequencyPerEvent ActionFrequency = "per_event"
)

// RewardAction is admin-editable reward configuration. The engine treats it
// as read-only input and re-reads it on every execution so edited values
// take effect without a restart.
type RewardAction struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	ActionKey        string          `gorm:"size:64;uniqueIndex;not null" json:"action_key"`
	ActionType       ActionType      `gorm:"size:16;default:static" json:"action_type"`
	CreditValue      int64           `gorm:"default:0" json:"credit_value"`
	Source           CreditSource    `gorm:"size:32;default:quest" json:"source"`
	Frequency        ActionFrequency `gorm:"size:16;default:once" json:"frequency"`
	ReferralEligible bool            `gorm:"default:false" json:"referral_eligible"`
	IsActive         bool            `gorm:"default:true" json:"is_active"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}
