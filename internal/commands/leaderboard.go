package commands

import (
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/annsabbasi/merit-tracker-backend-sub000/internal/db"
)

var rankStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)

var leaderboardCmd = &cobra.Command{
	Use:   "leaderboard [project-id]",
	Short: "Show a project's points leaderboard",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		projectID, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil {
			fmt.Printf("Error: invalid project ID '%s'\n", args[0])
			return
		}

		_, gdb := openDB()
		defer db.Close(gdb)

		limit, _ := cmd.Flags().GetInt("limit")
		members, err := db.Leaderboard(gdb, uint(projectID), limit)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if len(members) == 0 {
			fmt.Println(dimStyle.Render("No points earned in this project yet"))
			return
		}

		for i, m := range members {
			fmt.Printf("%s %s  %s\n",
				rankStyle.Render(fmt.Sprintf("%2d.", i+1)),
				valueStyle.Render(m.User.Name),
				labelStyle.Render(fmt.Sprintf("%d pts", m.PointsEarned)))
		}
	},
}

func init() {
	leaderboardCmd.Flags().Int("limit", 20, "Maximum entries to show")
}
