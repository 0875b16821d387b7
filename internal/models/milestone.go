package models

import (
	"time"

	"gorm.io/datatypes"
)

// MilestoneAward is the idempotency marker for a cumulative-hours milestone.
// At most one row exists per (user, threshold).
type MilestoneAward struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	UserID         uint `gorm:"not null;uniqueIndex:idx_user_threshold" json:"user_id"`
	ThresholdHours int  `gorm:"not null;uniqueIndex:idx_user_threshold" json:"threshold_hours"`
}

// Notification is a row written by the in-product notification sink.
type Notification struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	UID     string            `gorm:"size:36;not null" json:"uid"`
	UserID  uint              `gorm:"not null;index" json:"user_id"`
	Kind    string            `gorm:"size:32;not null" json:"kind"`
	Title   string            `json:"title"`
	Message string            `json:"message"`
	Meta    datatypes.JSONMap `gorm:"type:json" json:"meta"`
	ReadAt  *time.Time        `json:"read_at"`
}
