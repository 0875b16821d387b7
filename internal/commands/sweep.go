package commands

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/annsabbasi/merit-tracker-backend-sub000/internal/db"
	"github.com/annsabbasi/merit-tracker-backend-sub000/internal/storage"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run one retention sweep and exit",
	Long: `Deletes evidence records whose retention horizon has passed, along with
their backing objects. Intended for cron-style scheduling; running it with
nothing expired is a no-op.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, gdb := openDB()
		defer db.Close(gdb)

		logger := log.New(os.Stderr, "merittrack ", log.LstdFlags)
		svc := db.NewRetentionService(gdb, storage.NewFSStore(cfg.StorageDir), logger)

		result, err := svc.SweepExpired(context.Background(), time.Now().UTC())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Swept %d expired captures (%d objects deleted, %d object errors)\n",
			result.RowsDeleted, result.ObjectsDeleted, result.ObjectErrors)
	},
}
