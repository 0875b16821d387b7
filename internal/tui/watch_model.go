package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/annsabbasi/merit-tracker-backend-sub000/internal/db"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	elapsedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	faintStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
)

// WatchModel is a read-only live view of a user's active session: elapsed
// time, potential points, and evidence deductions, refreshed by polling.
type WatchModel struct {
	sessions *db.SessionService
	userID   uint

	spinner spinner.Model
	result  *db.ActiveResult
	err     error
	width   int
}

// refreshMsg carries the latest active-session projection
type refreshMsg struct {
	result *db.ActiveResult
	err    error
}

func NewWatchModel(sessions *db.SessionService, userID uint) WatchModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	return WatchModel{sessions: sessions, userID: userID, spinner: sp}
}

func (m WatchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.refresh(), m.tick())
}

func (m WatchModel) refresh() tea.Cmd {
	return func() tea.Msg {
		result, err := m.sessions.Active(context.Background(), m.userID)
		return refreshMsg{result: result, err: err}
	}
}

func (m WatchModel) tick() tea.Cmd {
	return tea.Tick(2*time.Second, func(time.Time) tea.Msg {
		return refreshMsg{}
	})
}

func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case refreshMsg:
		if msg.result == nil && msg.err == nil {
			// Poll timer fired; go fetch.
			return m, tea.Batch(m.refresh(), m.tick())
		}
		m.result = msg.result
		m.err = msg.err
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc", "q":
			return m, tea.Quit
		}

	default:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m WatchModel) View() string {
	var b strings.Builder

	if m.err != nil {
		b.WriteString(warnStyle.Render(fmt.Sprintf("error: %v", m.err)) + "\n")
		b.WriteString(faintStyle.Render("q to quit") + "\n")
		return b.String()
	}

	if m.result == nil {
		b.WriteString(m.spinner.View() + " loading...\n")
		return b.String()
	}

	if m.result.Session == nil {
		b.WriteString(faintStyle.Render("No active session") + "\n")
		b.WriteString(faintStyle.Render("q to quit") + "\n")
		return b.String()
	}

	s := m.result.Session
	b.WriteString(titleStyle.Render(fmt.Sprintf("Work item #%d — %s", s.WorkItemID, s.WorkItem.Title)) + "\n\n")
	b.WriteString(fmt.Sprintf("%s elapsed %s\n",
		m.spinner.View(),
		elapsedStyle.Render(fmt.Sprintf("%dh %02dm", m.result.ElapsedMinutes/60, m.result.ElapsedMinutes%60))))
	b.WriteString(fmt.Sprintf("potential points: %d\n", m.result.PotentialPoints))
	if s.TimeDeducted > 0 {
		b.WriteString(warnStyle.Render(fmt.Sprintf("time deducted: %dm", s.TimeDeducted)) + "\n")
	}
	if s.ScreenCaptureRequired {
		b.WriteString(faintStyle.Render(fmt.Sprintf("captures on file: %d", len(m.result.Thumbnails))) + "\n")
	}
	b.WriteString("\n" + faintStyle.Render("q to quit") + "\n")
	return b.String()
}

// RunWatch starts the live session view and blocks until the user quits.
func RunWatch(sessions *db.SessionService, userID uint) error {
	p := tea.NewProgram(NewWatchModel(sessions, userID))
	_, err := p.Run()
	return err
}
