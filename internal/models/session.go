package models

import (
	"time"

	"gorm.io/gorm"
)

// Session represents one continuous period of claimed work on a work item.
type Session struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	UserID     uint       `gorm:"not null;index" json:"user_id"`
	WorkItemID uint       `gorm:"not null" json:"work_item_id"`
	StartedAt  time.Time  `gorm:"not null" json:"started_at"`
	EndedAt    *time.Time `json:"ended_at"`

	// DurationMinutes is final, post-deduction, and only set once the
	// session is closed. TimeDeducted accumulates minutes removed by
	// evidence invalidation whether the session is live or closed.
	DurationMinutes int  `json:"duration_minutes"`
	TimeDeducted    int  `gorm:"default:0" json:"time_deducted"`
	PointsEarned    int  `gorm:"default:0" json:"points_earned"`
	PointsClawed    int  `gorm:"default:0" json:"points_clawed"`
	IsActive        bool `gorm:"default:false" json:"is_active"`

	// Frozen at start time from the company and work-item capture flags.
	ScreenCaptureRequired bool   `json:"screen_capture_required"`
	Notes                 string `json:"notes"`

	// Relationships
	User     User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	WorkItem WorkItem  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"work_item"`
	Captures []Capture `gorm:"foreignKey:SessionID" json:"-"`
}

// RawElapsedMinutes is the wall-clock span from start to now (or to close),
// before any evidence deductions.
func (s *Session) RawElapsedMinutes(now time.Time) int {
	end := now
	if s.EndedAt != nil {
		end = *s.EndedAt
	}
	if end.Before(s.StartedAt) {
		return 0
	}
	return int(end.Sub(s.StartedAt) / time.Minute)
}
