package commands

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/annsabbasi/merit-tracker-backend-sub000/internal/api"
	"github.com/annsabbasi/merit-tracker-backend-sub000/internal/db"
	"github.com/annsabbasi/merit-tracker-backend-sub000/internal/notify"
	"github.com/annsabbasi/merit-tracker-backend-sub000/internal/retention"
	"github.com/annsabbasi/merit-tracker-backend-sub000/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API with the background retention sweeper",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, gdb := openDB()
		defer db.Close(gdb)

		logger := log.New(os.Stderr, "merittrack ", log.LstdFlags)
		notifier := notify.NewDBNotifier(gdb, logger)
		store := storage.NewFSStore(cfg.StorageDir)
		retentionSvc := db.NewRetentionService(gdb, store, logger)

		captures := db.NewCaptureService(gdb, notifier)
		captures.SetRetention(time.Duration(cfg.RetentionDays) * 24 * time.Hour)

		handler := &api.Handler{
			DB:        gdb,
			Sessions:  db.NewSessionService(gdb, notifier),
			Captures:  captures,
			Approvals: db.NewApprovalService(gdb),
			Users:     db.NewUserService(gdb),
			Retention: retentionSvc,
		}

		sweeper := retention.NewSweeper(retentionSvc,
			time.Duration(cfg.SweepIntervalHours)*time.Hour, logger)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		sweeper.Start(ctx)
		defer sweeper.Stop()

		r := gin.Default()
		handler.Routes(r)

		logger.Printf("listening on %s", cfg.HTTPAddr)
		srv := newServer(cfg.HTTPAddr, r)
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()

		if err := srv.ListenAndServe(); err != nil {
			logger.Printf("server stopped: %v", err)
		}
	},
}
