package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/annsabbasi/merit-tracker-backend-sub000/internal/config"
	"github.com/annsabbasi/merit-tracker-backend-sub000/internal/db"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "merittrack",
	Short: "Workforce time and points accounting engine",
	Long: `merittrack runs the time-and-productivity accounting engine: timed work
sessions backed by screenshot evidence, a points ledger, milestones, and
evidence retention sweeps.`,
}

// openDB loads config and connects to the database, exiting on failure.
func openDB() (config.Config, *gorm.DB) {
	cfg := config.FromEnv()
	gdb, err := db.Open(cfg.DBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return cfg, gdb
}

// SetVersion sets the version information
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("merittrack %s (commit %s, built %s)\n", version, commit, date)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(leaderboardCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(versionCmd)
}
