// Package tui provides the interactive terminal UI for browsing allocation
// runs, and the report renderer shared with the CLI.
package tui

import (
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	// Colors
	primaryColor = lipgloss.Color("#7C3AED")
	successColor = lipgloss.Color("#10B981")
	errorColor   = lipgloss.Color("#EF4444")
	mutedColor   = lipgloss.Color("#6B7280")
	fgColor      = lipgloss.Color("#F9FAFB")
	cyanColor    = lipgloss.Color("#06B6D4")

	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#374151")).
			Foreground(fgColor).
			Padding(0, 1)

	helpStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Italic(true)

	onlineStyle = lipgloss.NewStyle().
			Foreground(successColor).
			Bold(true)

	offlineStyle = lipgloss.NewStyle().
			Foreground(errorColor)
)

const (
	modeList   = "list"
	modeDetail = "detail"

	// header, blank line, message line and status bar
	chromeHeight = 4
)

// App is the main TUI application model.
type App struct {
	client       *Client
	runs         *RunListModel
	detail       *RunDetailModel
	mode         string
	width        int
	height       int
	message      string
	daemonOnline bool
}

// New creates a new TUI application.
func New(apiAddr string) *App {
	client := NewClient(apiAddr)
	return &App{
		client: client,
		runs:   NewRunListModel(client),
		detail: NewRunDetailModel(client),
		mode:   modeList,
	}
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// Init implements tea.Model
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		a.runs.Init(),
		a.checkDaemon(),
		a.tickCmd(),
	)
}

// Update implements tea.Model
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return a, tea.Quit

		case "q":
			if a.mode == modeList && !a.runs.Filtering() {
				return a, tea.Quit
			}

		case "esc":
			if a.mode == modeDetail {
				a.mode = modeList
				a.message = ""
				return a, a.runs.Refresh()
			}

		case "enter":
			if a.mode == modeList && !a.runs.Filtering() {
				if run := a.runs.SelectedRun(); run != nil {
					a.mode = modeDetail
					a.detail.SetRun(run.ID)
					return a, a.detail.Refresh()
				}
			}
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		body := max(1, msg.Height-chromeHeight)
		a.runs.SetSize(msg.Width, body)
		a.detail.SetSize(msg.Width, body)
		return a, nil

	case daemonStatusMsg:
		a.daemonOnline = msg.online
		return a, nil

	case tickMsg:
		return a, tea.Batch(a.checkDaemon(), a.tickCmd())

	case errMsg:
		a.message = "Error: " + msg.err.Error()
	}

	var cmd tea.Cmd
	if a.mode == modeDetail {
		_, cmd = a.detail.Update(msg)
	} else {
		_, cmd = a.runs.Update(msg)
	}
	return a, cmd
}

// View implements tea.Model
func (a *App) View() string {
	var b strings.Builder

	daemonStatus := onlineStyle.Render("● DAEMON")
	if !a.daemonOnline {
		daemonStatus = offlineStyle.Render("○ DAEMON")
	}
	b.WriteString(titleStyle.Render("allot") + "  " + daemonStatus + "\n\n")

	if a.mode == modeDetail {
		b.WriteString(a.detail.View())
	} else {
		b.WriteString(a.runs.View())
	}
	b.WriteString("\n")

	if a.message != "" {
		b.WriteString(offlineStyle.Render(a.message))
	}
	b.WriteString("\n")

	help := "enter: open • r: refresh • /: filter • q: quit"
	if a.mode == modeDetail {
		help = "↑/↓: scroll • r: refresh • esc: back • ctrl+c: quit"
	}
	status := helpStyle.Render(help)
	if a.width > 0 {
		b.WriteString(statusBarStyle.Width(a.width).Render(status))
	} else {
		b.WriteString(statusBarStyle.Render(status))
	}
	return b.String()
}

func (a *App) checkDaemon() tea.Cmd {
	return func() tea.Msg {
		ok, _ := a.client.CheckHealth()
		return daemonStatusMsg{online: ok}
	}
}

func (a *App) tickCmd() tea.Cmd {
	return tea.Tick(5*time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

