package commands

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/annsabbasi/merit-tracker-backend-sub000/internal/db"
	"github.com/annsabbasi/merit-tracker-backend-sub000/internal/notify"
)

var (
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	valueStyle = lipgloss.NewStyle().Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Italic(true)
)

var statusCmd = &cobra.Command{
	Use:   "status [user-id]",
	Short: "Show a user's active session",
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
		result, err := sessions.Active(context.Background(), uint(userID))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if result.Session == nil {
			fmt.Println(dimStyle.Render("No active session"))
			return
		}

		s := result.Session
		fmt.Printf("%s %s\n", labelStyle.Render("Work item:"),
			valueStyle.Render(fmt.Sprintf("#%d %s", s.WorkItemID, s.WorkItem.Title)))
		fmt.Printf("%s %s\n", labelStyle.Render("Started:"),
			valueStyle.Render(s.StartedAt.Format(time.Kitchen)))
		fmt.Printf("%s %s\n", labelStyle.Render("Elapsed:"),
			valueStyle.Render(formatMinutes(result.ElapsedMinutes)))
		fmt.Printf("%s %s\n", labelStyle.Render("Potential points:"),
			valueStyle.Render(strconv.Itoa(result.PotentialPoints)))
		if s.TimeDeducted > 0 {
			fmt.Printf("%s %s\n", labelStyle.Render("Time deducted:"),
				valueStyle.Render(formatMinutes(s.TimeDeducted)))
		}
	},
}

// formatMinutes renders tracked minutes in a human-readable way
func formatMinutes(minutes int) string {
	if minutes >= 60 {
		return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
	}
	return fmt.Sprintf("%dm", minutes)
}
