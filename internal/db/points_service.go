package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/annsabbasi/merit-tracker-backend-sub000/internal/models"
)

// Points formula constants. Sessions shorter than the minimum earn nothing,
// longer ones earn one point per half hour up to the per-session cap.
const (
	MinMinutesForPoint  = 15
	MinutesPerPoint     = 30
	MaxPointsPerSession = 16
)

// PointsForDuration converts tracked minutes into points. Pure function, no
// side effects.
func PointsForDuration(durationMinutes int) int {
	if durationMinutes < MinMinutesForPoint {
		return 0
	}
	points := durationMinutes / MinutesPerPoint
	if points > MaxPointsPerSession {
		return MaxPointsPerSession
	}
	return points
}

// Ledger is the only writer of point balances. Session and evidence code
// never touch the balance columns directly; every mutation goes through
// Credit or Debit inside the caller's transaction, so a balance change is
// always traceable to a ledger call and commits (or rolls back) together
// with the state that justified it.
type Ledger struct{}

// Credit adds points to the user's global balance and the project-scoped
// earned counter. Must be called inside the transaction of the operation
// that earned the points.
func (Ledger) Credit(tx *gorm.DB, userID, projectID uint, points int) error {
	if points <= 0 {
		return nil
	}

	res := tx.Model(&models.User{}).Where("id = ?", userID).
		UpdateColumn("points", gorm.Expr("points + ?", points))
	if res.Error != nil {
		return fmt.Errorf("crediting user %d: %w", userID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("crediting user %d: no such user", userID)
	}

	return bumpProjectPoints(tx, userID, projectID, points)
}

// Debit removes points. The global balance is clamped at zero so cumulative
// clawbacks can never drive it negative; the project counter is clamped the
// same way.
func (Ledger) Debit(tx *gorm.DB, userID, projectID uint, points int) error {
	if points <= 0 {
		return nil
	}

	res := tx.Model(&models.User{}).Where("id = ?", userID).
		UpdateColumn("points", gorm.Expr("MAX(points - ?, 0)", points))
	if res.Error != nil {
		return fmt.Errorf("debiting user %d: %w", userID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("debiting user %d: no such user", userID)
	}

	return tx.Model(&models.ProjectMember{}).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		UpdateColumn("points_earned", gorm.Expr("MAX(points_earned - ?, 0)", points)).Error
}

// bumpProjectPoints increments the membership counter, creating the row on
// first credit.
func bumpProjectPoints(tx *gorm.DB, userID, projectID uint, points int) error {
	res := tx.Model(&models.ProjectMember{}).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		UpdateColumn("points_earned", gorm.Expr("points_earned + ?", points))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return tx.Create(&models.ProjectMember{
			ProjectID:    projectID,
			UserID:       userID,
			PointsEarned: points,
		}).Error
	}
	return nil
}

// Leaderboard returns a project's members ordered by earned points.
func Leaderboard(gdb *gorm.DB, projectID uint, limit int) ([]models.ProjectMember, error) {
	if limit <= 0 {
		limit = 20
	}
	var members []models.ProjectMember
	err := gdb.Where("project_id = ?", projectID).
		Order("points_earned DESC").
		Limit(limit).
		Preload("User").
		Find(&members).Error
	return members, err
}
