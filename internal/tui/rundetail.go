package tui

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/fentz26/allot/internal/models"
)

// RunDetailModel manages the run detail screen
type RunDetailModel struct {
	client   *Client
	runID    string
	run      *models.RunRecord
	viewport viewport.Model
	loading  bool
}

// NewRunDetailModel creates a new run detail model
func NewRunDetailModel(client *Client) *RunDetailModel {
	return &RunDetailModel{
		client:   client,
		viewport: viewport.New(80, 20),
	}
}

// Init initializes the run detail model
func (m *RunDetailModel) Init() tea.Cmd {
	return nil
}

// SetRun sets the run ID to display
func (m *RunDetailModel) SetRun(id string) {
	m.runID = id
	m.run = nil
	m.viewport.SetContent("")
	m.viewport.GotoTop()
}

// SetSize sets the dimensions
func (m *RunDetailModel) SetSize(w, h int) {
	m.viewport.Width = w
	m.viewport.Height = h
}

// Refresh fetches run details
func (m *RunDetailModel) Refresh() tea.Cmd {
	m.loading = true
	id := m.runID
	return func() tea.Msg {
		run, err := m.client.GetRun(id)
		if err != nil {
			return errMsg{err}
		}
		return runLoadedMsg{run}
	}
}

// Update handles messages
func (m *RunDetailModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case runLoadedMsg:
		m.loading = false
		m.run = msg.run
		m.viewport.SetContent(renderRun(msg.run))
		return m, nil

	case errMsg:
		m.loading = false
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "r" {
			return m, m.Refresh()
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the run detail
func (m *RunDetailModel) View() string {
	if m.loading || m.run == nil {
		return "Loading run details..."
	}
	return m.viewport.View()
}

func renderRun(run *models.RunRecord) string {
	var b strings.Builder
	b.WriteString(renderField("Run", run.ID))
	b.WriteString(renderField("Created", run.CreatedAt.Local().Format(time.RFC1123)))
	b.WriteString(renderField("Request hash", truncate(run.RequestHash, 24)))
	b.WriteString("\n")
	b.WriteString(RenderReport(run.Report))
	return b.String()
}
