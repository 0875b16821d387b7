package db

import (
	"context"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/annsabbasi/merit-tracker-backend-sub000/internal/models"
	"github.com/annsabbasi/merit-tracker-backend-sub000/internal/storage"
)

// RetentionService purges evidence rows past their retention horizon,
// deleted or not. Backing objects are removed best-effort before the rows;
// a storage failure is logged and never blocks the row deletion.
type RetentionService struct {
	db     *gorm.DB
	store  storage.ObjectStore
	logger *log.Logger
}

func NewRetentionService(gdb *gorm.DB, store storage.ObjectStore, logger *log.Logger) *RetentionService {
	return &RetentionService{db: gdb, store: store, logger: logger}
}

// SweepResult reports what one sweep run touched.
type SweepResult struct {
	Expired        int64 `json:"expired"`
	ObjectsDeleted int   `json:"objects_deleted"`
	ObjectErrors   int   `json:"object_errors"`
	RowsDeleted    int64 `json:"rows_deleted"`
}

// SweepExpired removes every capture whose expiresAt has passed. Running it
// again with nothing newly expired is a no-op.
func (s *RetentionService) SweepExpired(ctx context.Context, now time.Time) (*SweepResult, error) {
	gdb := s.db.WithContext(ctx)
	result := &SweepResult{}

	var expired []models.Capture
	if err := gdb.Where("expires_at <= ?", now).Find(&expired).Error; err != nil {
		return nil, err
	}
	result.Expired = int64(len(expired))
	if len(expired) == 0 {
		return result, nil
	}

	var paths []string
	for _, c := range expired {
		if c.StoragePath != "" {
			paths = append(paths, c.StoragePath)
		}
	}
	for i, err := range s.store.DeleteMany(paths) {
		if err != nil {
			result.ObjectErrors++
			s.logger.Printf("retention: failed to delete object %s: %v", paths[i], err)
			continue
		}
		result.ObjectsDeleted++
	}

	res := gdb.Where("expires_at <= ?", now).Delete(&models.Capture{})
	if res.Error != nil {
		return nil, res.Error
	}
	result.RowsDeleted = res.RowsAffected

	s.logger.Printf("retention: swept %d expired captures (%d objects deleted, %d object errors)",
		result.RowsDeleted, result.ObjectsDeleted, result.ObjectErrors)
	return result, nil
}
