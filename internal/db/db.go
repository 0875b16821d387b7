package db

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/annsabbasi/merit-tracker-backend-sub000/internal/models"
)

// Open connects to the SQLite database at path and runs migrations.
func Open(path string) (*gorm.DB, error) {
	if dir := filepath.Dir(path); dir != "." && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent), // Quiet by default
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := migrate(gdb); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return gdb, nil
}

// migrate creates/updates the database schema.
func migrate(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(
		&models.Company{},
		&models.User{},
		&models.Project{},
		&models.ProjectMember{},
		&models.WorkItem{},
		&models.WorkItemAssignee{},
		&models.Session{},
		&models.Capture{},
		&models.MilestoneAward{},
		&models.Notification{},
	); err != nil {
		return err
	}

	// AutoMigrate cannot express a partial index. This one makes the
	// single-active-session invariant hold under concurrent starts: the
	// second insert fails with a unique violation instead of creating a
	// second live row.
	return gdb.Exec(
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_sessions_one_active
		 ON sessions(user_id) WHERE is_active = 1 AND deleted_at IS NULL`,
	).Error
}

// Close closes the underlying connection pool.
func Close(gdb *gorm.DB) error {
	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

const (
	txAttempts     = 3
	txInitialDelay = 50 * time.Millisecond
)

// InTx runs fn inside a transaction, retrying a bounded number of times with
// exponential backoff when SQLite reports contention. Business errors are
// returned immediately and never retried.
func InTx(gdb *gorm.DB, fn func(tx *gorm.DB) error) error {
	var err error
	delay := txInitialDelay
	for attempt := 0; attempt < txAttempts; attempt++ {
		err = gdb.Transaction(fn)
		if err == nil || !isContention(err) {
			return err
		}
		time.Sleep(delay)
		delay *= 2
	}
	return err
}

func isContention(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked") ||
		strings.Contains(msg, "SQLITE_BUSY")
}

// IsUniqueViolation reports whether err is a unique-constraint failure.
func IsUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
