package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents a portal supporter. Passwords are stored as bcrypt hashes only.
type User struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Username     string         `gorm:"size:64;uniqueIndex;not null" json:"username"`
	Email        string         `gorm:"size:255" json:"email"`
	PasswordHash string         `gorm:"size:255" json:"-"`
	RegisterIP   string         `gorm:"size:45" json:"register_ip"`
	ReferralCode string         `gorm:"size:16;uniqueIndex" json:"referral_code"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate hook ensures timestamps are set even when not provided.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	return nil
}

// BeforeUpdate ensures the UpdatedAt timestamp is refreshed.
func (u *User) BeforeUpdate(tx *gorm.DB) error {
	u.UpdatedAt = time.Now()
	return nil
}
