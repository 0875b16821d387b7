package retention_test

import (
	"context"
	"fmt"
	"io"
	"log"
	"testing"
	"time"

	"github.com/annsabbasi/merit-tracker-backend-sub000/internal/db"
	"github.com/annsabbasi/merit-tracker-backend-sub000/internal/models"
	"github.com/annsabbasi/merit-tracker-backend-sub000/internal/retention"
	"github.com/annsabbasi/merit-tracker-backend-sub000/internal/storage"
)

func TestSweeperRunsImmediatelyOnStart(t *testing.T) {
	dsn := fmt.Sprintf("file:sweeper_%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := db.Open(dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if sqlDB, derr := gdb.DB(); derr == nil {
		sqlDB.SetMaxOpenConns(1)
	}
	t.Cleanup(func() { db.Close(gdb) })

	// An already-expired capture row, inserted directly.
	capture := models.Capture{
		UID:        "sweeper-test-1",
		SessionID:  1,
		UserID:     1,
		CapturedAt: time.Now().Add(-90 * 24 * time.Hour),
		ExpiresAt:  time.Now().Add(-30 * 24 * time.Hour),
		Status:     models.CaptureSuccess,
	}
	if err := gdb.Create(&capture).Error; err != nil {
		t.Fatalf("seed capture: %v", err)
	}

	logger := log.New(io.Discard, "", 0)
	svc := db.NewRetentionService(gdb, storage.NewMemStore(), logger)
	sweeper := retention.NewSweeper(svc, time.Hour, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sweeper.Start(ctx)

	// The startup sweep should remove the expired row shortly.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		var count int64
		gdb.Model(&models.Capture{}).Count(&count)
		if count == 0 {
			sweeper.Stop()
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	sweeper.Stop()
	t.Fatal("expired capture was not swept on startup")
}

func TestSweeperStopReturns(t *testing.T) {
	dsn := fmt.Sprintf("file:sweeper_stop_%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := db.Open(dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if sqlDB, derr := gdb.DB(); derr == nil {
		sqlDB.SetMaxOpenConns(1)
	}
	t.Cleanup(func() { db.Close(gdb) })

	logger := log.New(io.Discard, "", 0)
	svc := db.NewRetentionService(gdb, storage.NewMemStore(), logger)
	sweeper := retention.NewSweeper(svc, time.Hour, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sweeper.Start(ctx)
	done := make(chan struct{})
	go func() {
		sweeper.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}
}
