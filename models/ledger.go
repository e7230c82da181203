package models

import "time"

// CreditSource identifies why a credit transaction was issued.
type CreditSource string

const (
	SourceContribution     CreditSource = "contribution"
	SourceQuest            CreditSource = "quest"
	SourceReferralDirect   CreditSource = "referral_direct"
	SourceReferralIndirect CreditSource = "referral_indirect"
	SourceAdminGrant       CreditSource = "admin_grant"
	SourceBonus            CreditSource = "bonus"
)

// CreditTransaction is an immutable earn entry in the append-only ledger.
// The composite unique index on (user_id, source, origin_event_id) makes a
// replayed trigger a duplicate-key error instead of a second issuance.
type CreditTransaction struct {
	ID            uint         `gorm:"primaryKey" json:"id"`
	UserID        uint         `gorm:"not null;index;uniqueIndex:idx_credit_origin,priority:1" json:"user_id"`
	Amount        int64        `gorm:"not null" json:"amount"`
	Source        CreditSource `gorm:"size:32;not null;uniqueIndex:idx_credit_origin,priority:2" json:"source"`
	Description   string       `gorm:"size:255" json:"description"`
	RelatedTierID *uint        `json:"related_tier_id,omitempty"`
	OriginEventID string       `gorm:"size:64;not null;uniqueIndex:idx_credit_origin,priority:3" json:"origin_event_id"`
	IssuedAt      time.Time    `gorm:"not null;index" json:"issued_at"`
	CreatedAt     time.Time    `json:"created_at"`
}

// PurchaseStatus tracks the fulfilment state of a spend entry.
type PurchaseStatus string

const (
	PurchaseCompleted PurchaseStatus = "completed"
	PurchasePending   PurchaseStatus = "pending"
)

// PurchaseTransaction is an immutable spend entry. The balance check that
// admits it is serialized per user inside the ledger's debit transaction.
type PurchaseTransaction struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	UserID       uint           `gorm:"not null;index" json:"user_id"`
	CreditsSpent int64          `gorm:"not null" json:"credits_spent"`
	ProductID    string         `gorm:"size:64;not null" json:"product_id"`
	Quantity     int            `gorm:"default:1" json:"quantity"`
	Status       PurchaseStatus `gorm:"size:16;default:completed" json:"status"`
	PurchasedAt  time.Time      `gorm:"not null;index" json:"purchased_at"`
	CreatedAt    time.Time      `json:"created_at"`
}

// RewardCompletion records that a user has been rewarded for an action.
// Created exactly once at the first successful engine execution for the
// completion key; the unique index is the at-most-once issuance guard.
type RewardCompletion struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	UserID         uint      `gorm:"not null;uniqueIndex:idx_user_completion,priority:1" json:"user_id"`
	ActionKey      string    `gorm:"size:64;not null;index" json:"action_key"`
	CompletionKey  string    `gorm:"size:128;not null;uniqueIndex:idx_user_completion,priority:2" json:"completion_key"`
	CreditsAwarded int64     `json:"credits_awarded"`
	CompletedAt    time.Time `gorm:"not null" json:"completed_at"`
}
