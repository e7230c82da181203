package models

import "time"

// PioneerAccessStatus is the approval state of a supporter's pioneer access.
type PioneerAccessStatus string

const (
	PioneerPending  PioneerAccessStatus = "pending"
	PioneerApproved PioneerAccessStatus = "approved"
	PioneerRevoked  PioneerAccessStatus = "revoked"
	PioneerRejected PioneerAccessStatus = "rejected"
)

// PioneerMetric is a per-user summary row: a cache of lifetime earned
// credits plus the access status, never a source of truth. The ledger is
// authoritative and the total is recomputed from it.
type PioneerMetric struct {
	UserID                   uint                `gorm:"primaryKey" json:"user_id"`
	TotalImpactCreditsEarned int64               `gorm:"default:0" json:"total_impact_credits_earned"`
	AccessStatus             PioneerAccessStatus `gorm:"size:16;default:pending" json:"access_status"`
	Forfeited                bool                `gorm:"default:false" json:"forfeited"`
	UpdatedAt                time.Time           `json:"updated_at"`
}
