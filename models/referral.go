package models

import "time"

// ReferralEdge links a user to the account that referred them. Set once at
// signup and never mutated, so the edges form a forest: an edge is only
// written when referrer_id differs from user_id and only at creation time.
type ReferralEdge struct {
	UserID     uint      `gorm:"primaryKey" json:"user_id"`
	ReferrerID uint      `gorm:"not null;index" json:"referrer_id"`
	CreatedAt  time.Time `json:"created_at"`
}
