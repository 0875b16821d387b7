package db

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/annsabbasi/merit-tracker-backend-sub000/internal/models"
)

// MilestoneThresholds are the cumulative tracked-hours marks that trigger a
// one-time notification. Ascending; a single long session may cross several.
var MilestoneThresholds = []int{10, 25, 50, 100, 250, 500, 1000}

// checkMilestones compares the user's cumulative closed-session hours
// against the threshold list and creates missing idempotency markers. It
// returns the thresholds newly crossed in this call so the caller can queue
// notifications after commit.
func checkMilestones(tx *gorm.DB, userID uint) ([]int, error) {
	var totalMinutes int64
	err := tx.Model(&models.Session{}).
		Where("user_id = ? AND is_active = ?", userID, false).
		Select("COALESCE(SUM(duration_minutes), 0)").
		Scan(&totalMinutes).Error
	if err != nil {
		return nil, fmt.Errorf("summing tracked minutes for user %d: %w", userID, err)
	}

	hours := int(totalMinutes / 60)

	var crossed []int
	for _, threshold := range MilestoneThresholds {
		if threshold > hours {
			break
		}

		var marker models.MilestoneAward
		err := tx.Where("user_id = ? AND threshold_hours = ?", userID, threshold).
			First(&marker).Error
		if err == nil {
			continue // already awarded
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}

		marker = models.MilestoneAward{UserID: userID, ThresholdHours: threshold}
		if err := tx.Create(&marker).Error; err != nil {
			if IsUniqueViolation(err) {
				continue // raced with a concurrent stop
			}
			return nil, err
		}
		crossed = append(crossed, threshold)
	}

	return crossed, nil
}
