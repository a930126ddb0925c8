package models

import (
	"time"
)

// UnlockRecord: awarded milestone for one external user (append-only, never mutated)
type UnlockRecord struct {
	ID             string    `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID string    `gorm:"uniqueIndex:ux_user_milestone,priority:1;not null" json:"externalId"`
	MilestoneID    string    `gorm:"uniqueIndex:ux_user_milestone,priority:2;not null" json:"milestoneId"`
	ImageKey       string    `gorm:"type:text" json:"imageKey"`
	Locale         Locale    `gorm:"type:varchar(8);default:'de'" json:"locale"`
	UnlockedAt     time.Time `gorm:"autoCreateTime;index" json:"unlockedAt"`
}

// UserBinding is the locally cached identity used for remote sync.
// ExternalID is empty until the first successful save.
type UserBinding struct {
	ExternalID string `json:"externalId,omitempty"`
}

// Bound reports whether an identity has been saved.
func (b UserBinding) Bound() bool {
	return b.ExternalID != ""
}
