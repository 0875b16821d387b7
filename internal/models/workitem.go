package models

import (
	"time"

	"gorm.io/gorm"
)

// WorkItem is an assignable unit of work inside a project.
type WorkItem struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	ProjectID uint   `gorm:"not null;index" json:"project_id"`
	Title     string `gorm:"not null" json:"title"`
	Status    string `gorm:"default:open" json:"status"` // open, in_review, approved, rejected

	// ScreenCaptureEnabled is ANDed with the company flag when a session
	// starts to decide whether evidence capture is mandatory.
	ScreenCaptureEnabled bool `gorm:"default:true" json:"screen_capture_enabled"`

	// ReviewPoints is the pool split across assignees when the item is
	// approved by the review workflow.
	ReviewPoints int `gorm:"default:0" json:"review_points"`

	// Relationships
	Project   Project `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Assignees []User  `gorm:"many2many:work_item_assignees;" json:"assignees"`
}

// WorkItemAssignee is the join table for the many-to-many relationship.
type WorkItemAssignee struct {
	WorkItemID uint `gorm:"primaryKey"`
	UserID     uint `gorm:"primaryKey"`
}
