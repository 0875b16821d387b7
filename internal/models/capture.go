package models

import (
	"time"

	"gorm.io/datatypes"
)

// CaptureStatus records whether a sample succeeded or why it failed. Failed
// attempts still occupy the interval timeline so gaps stay explainable.
type CaptureStatus string

const (
	CaptureSuccess          CaptureStatus = "success"
	CaptureWindowMinimized  CaptureStatus = "window_minimized"
	CaptureScreenLocked     CaptureStatus = "screen_locked"
	CapturePermissionDenied CaptureStatus = "permission_denied"
	CaptureAgentError       CaptureStatus = "agent_error"
)

// Valid reports whether s is one of the known statuses.
func (s CaptureStatus) Valid() bool {
	switch s {
	case CaptureSuccess, CaptureWindowMinimized, CaptureScreenLocked,
		CapturePermissionDenied, CaptureAgentError:
		return true
	}
	return false
}

// Capture is one proof-of-work sample. Rows are soft-deleted by evidence
// invalidation and only physically removed by the retention sweep.
type Capture struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// UID is the agent's idempotency token; generated server-side when the
	// agent omits one.
	UID string `gorm:"uniqueIndex;size:36;not null" json:"uid"`

	SessionID uint `gorm:"not null;index" json:"session_id"`
	UserID    uint `gorm:"not null;index" json:"user_id"`

	// CapturedAt is the sample timestamp; for failed attempts it is the
	// attempt time.
	CapturedAt time.Time `gorm:"not null" json:"captured_at"`

	// The interval this sample covers: from the previous surviving sample
	// (or the session start) up to CapturedAt. Consecutive samples tile
	// the session timeline.
	IntervalStart   time.Time `gorm:"not null" json:"interval_start"`
	IntervalEnd     time.Time `gorm:"not null" json:"interval_end"`
	IntervalMinutes int       `gorm:"default:0" json:"interval_minutes"`

	Status CaptureStatus `gorm:"size:32;not null" json:"status"`

	IsDeleted      bool       `gorm:"default:false;index" json:"is_deleted"`
	DeletedAt      *time.Time `json:"deleted_at"`
	DeletedByID    *uint      `json:"deleted_by_id"`
	DeletionReason string     `json:"deletion_reason"`

	// ExpiresAt is capture time plus the retention horizon; the sweeper
	// hard-deletes past it regardless of IsDeleted.
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`

	// Backing object reference; empty for failed attempts.
	StoragePath string `json:"storage_path"`
	StorageURL  string `json:"storage_url"`
	SizeBytes   int64  `json:"size_bytes"`

	Metadata datatypes.JSONMap `gorm:"type:json" json:"metadata"`

	Session Session `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
}
