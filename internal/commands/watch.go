package commands

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/annsabbasi/merit-tracker-backend-sub000/internal/db"
	"github.com/annsabbasi/merit-tracker-backend-sub000/internal/notify"
	"github.com/annsabbasi/merit-tracker-backend-sub000/internal/tui"
)

var watchCmd = &cobra.Command{
	Use:   "watch [user-id]",
	Short: "Live view of a user's active session",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		userID, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil {
			fmt.Printf("Error: invalid user ID '%s'\n", args[0])
			return
		}

		_, gdb := openDB()
		defer db.Close(gdb)

		sessions := db.NewSessionService(gdb, notify.NewMemNotifier())
		if err := tui.RunWatch(sessions, uint(userID)); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}
