package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	listTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	allAllocated  = lipgloss.NewStyle().Foreground(lipgloss.Color("2")) // Green
	someAllocated = lipgloss.NewStyle().Foreground(lipgloss.Color("3")) // Yellow
	noneAllocated = lipgloss.NewStyle().Foreground(lipgloss.Color("1")) // Red
)

// RunItem implements list.Item for the run list
type RunItem struct {
	ID             string
	TotalTasks     int
	AllocatedTasks int
	TotalCost      float64
	CreatedAt      time.Time
}

func (i RunItem) FilterValue() string { return i.ID }
func (i RunItem) Title() string {
	return fmt.Sprintf("%s  %s", shortID(i.ID), i.CreatedAt.Local().Format("2006-01-02 15:04:05"))
}
func (i RunItem) Description() string {
	return fmt.Sprintf("%s • cost %s", formatAllocated(i.AllocatedTasks, i.TotalTasks), formatNumber(i.TotalCost))
}

func formatAllocated(allocated, total int) string {
	label := fmt.Sprintf("● %d/%d allocated", allocated, total)
	switch {
	case allocated == total:
		return allAllocated.Render(label)
	case allocated == 0:
		return noneAllocated.Render(label)
	default:
		return someAllocated.Render(label)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// RunListModel manages the run list screen
type RunListModel struct {
	client  *Client
	list    list.Model
	runs    []RunItem
	limit   int
	width   int
	height  int
	loading bool
}

// NewRunListModel creates a new run list model
func NewRunListModel(client *Client) *RunListModel {
	delegate := list.NewDefaultDelegate()
	l := list.New([]list.Item{}, delegate, 80, 20)
	l.Title = "Allocation Runs"
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = listTitleStyle

	return &RunListModel{
		client: client,
		list:   l,
		limit:  100,
	}
}

// Init initializes the run list
func (m *RunListModel) Init() tea.Cmd {
	return m.Refresh()
}

// SetSize sets the list dimensions
func (m *RunListModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.list.SetSize(w, h)
}

// SelectedRun returns the currently selected run
func (m *RunListModel) SelectedRun() *RunItem {
	if item := m.list.SelectedItem(); item != nil {
		run := item.(RunItem)
		return &run
	}
	return nil
}

// Filtering reports whether the list is capturing keys for its filter.
func (m *RunListModel) Filtering() bool {
	return m.list.FilterState() == list.Filtering
}

// Refresh fetches runs from the API
func (m *RunListModel) Refresh() tea.Cmd {
	m.loading = true
	return func() tea.Msg {
		runs, err := m.client.ListRuns(m.limit)
		if err != nil {
			return errMsg{err}
		}
		return runsLoadedMsg{runs}
	}
}

// Update handles messages
func (m *RunListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case runsLoadedMsg:
		m.loading = false
		m.runs = msg.runs
		items := make([]list.Item, len(m.runs))
		for i, r := range m.runs {
			items[i] = r
		}
		m.list.SetItems(items)
		return m, nil

	case errMsg:
		m.loading = false
		return m, nil

	case tea.KeyMsg:
		if !m.Filtering() && msg.String() == "r" {
			return m, m.Refresh()
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View renders the run list
func (m *RunListModel) View() string {
	if m.loading {
		return "Loading runs..."
	}
	return m.list.View()
}
