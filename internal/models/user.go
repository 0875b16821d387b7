package models

import (
	"time"

	"gorm.io/gorm"
)

// User is an actor who runs sessions and accumulates points. Identity and
// authentication live outside this service; rows here mirror the actors the
// engine accounts for.
type User struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	CompanyID uint   `gorm:"not null;index" json:"company_id"`
	Name      string `gorm:"not null" json:"name"`

	// Points is the global balance. Written only through the ledger.
	Points int `gorm:"default:0" json:"points"`

	// Last-known state of the capture agent, reported by its heartbeat.
	AgentOnline bool       `gorm:"default:false" json:"agent_online"`
	AgentSeenAt *time.Time `json:"agent_seen_at"`

	Company Company `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
}

// Company groups users and carries the org-wide capture policy flag.
type Company struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Name                 string `gorm:"not null" json:"name"`
	ScreenCaptureEnabled bool   `gorm:"default:true" json:"screen_capture_enabled"`
}

// Project scopes work items and leaderboards.
type Project struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	CompanyID uint   `gorm:"not null;index" json:"company_id"`
	Name      string `gorm:"not null" json:"name"`
}

// ProjectMember holds the per-project earned-points counter used for
// leaderboard scoping. Written only through the ledger.
type ProjectMember struct {
	ProjectID    uint `gorm:"primaryKey" json:"project_id"`
	UserID       uint `gorm:"primaryKey" json:"user_id"`
	PointsEarned int  `gorm:"default:0" json:"points_earned"`

	User User `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user"`
}
