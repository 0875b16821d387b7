package db

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/annsabbasi/merit-tracker-backend-sub000/internal/apperr"
	"github.com/annsabbasi/merit-tracker-backend-sub000/internal/models"
)

// UserService covers the small actor-state surface the engine owns: the
// capture agent's last-known presence flag and the notification inbox.
type UserService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewUserService(gdb *gorm.DB) *UserService {
	return &UserService{db: gdb, now: time.Now}
}

// SetNow overrides the clock. Test hook.
func (s *UserService) SetNow(now func() time.Time) { s.now = now }

// AgentHeartbeat records the capture agent's reported presence. Session
// start consults this flag when evidence capture is mandatory.
func (s *UserService) AgentHeartbeat(ctx context.Context, userID uint, online bool) error {
	seen := s.now()
	res := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{"agent_online": online, "agent_seen_at": seen})
	if res.Error != nil {
		return apperr.Internal(res.Error, "recording agent heartbeat")
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("user #%d not found", userID)
	}
	return nil
}

// Notifications lists the user's notifications, newest first.
func (s *UserService) Notifications(ctx context.Context, userID uint, limit int) ([]models.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []models.Notification
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, apperr.Internal(err, "listing notifications")
	}
	return rows, nil
}
