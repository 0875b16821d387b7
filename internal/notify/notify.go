// Package notify sends fire-and-forget notifications to session owners.
// Delivery failures are logged and never propagate into accounting state.
package notify

import (
	"log"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/annsabbasi/merit-tracker-backend-sub000/internal/models"
)

const (
	KindMilestone       = "milestone"
	KindEvidenceDeleted = "evidence_deleted"
)

type Notifier interface {
	Notify(userID uint, kind, title, message string, meta map[string]any)
}

// DBNotifier writes notification rows for the product's inbox. It is invoked
// strictly after the authoritative transaction commits, so a failed write can
// never roll back accounting state.
type DBNotifier struct {
	db     *gorm.DB
	logger *log.Logger
}

func NewDBNotifier(db *gorm.DB, logger *log.Logger) *DBNotifier {
	return &DBNotifier{db: db, logger: logger}
}

func (n *DBNotifier) Notify(userID uint, kind, title, message string, meta map[string]any) {
	row := models.Notification{
		UID:     uuid.NewString(),
		UserID:  userID,
		Kind:    kind,
		Title:   title,
		Message: message,
		Meta:    datatypes.JSONMap(meta),
	}
	if err := n.db.Create(&row).Error; err != nil {
		n.logger.Printf("notify: dropping %s notification for user %d: %v", kind, userID, err)
	}
}
