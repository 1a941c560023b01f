package tui

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/fentz26/allot/internal/models"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(lipgloss.Color("240"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("99")).
			MarginTop(1)

	feasibleStyle   = lipgloss.NewStyle().Foreground(successColor)
	infeasibleStyle = lipgloss.NewStyle().Foreground(errorColor)
	cellStyle       = lipgloss.NewStyle().Padding(0, 1)
	tableHeadStyle  = lipgloss.NewStyle().Bold(true).Foreground(cyanColor).Padding(0, 1)
)

// RenderReport renders an allocation report as summary, allocation table,
// usage table and recommendations.
func RenderReport(r *models.AllocationReport) string {
	if r == nil {
		return "no report\n"
	}

	var b strings.Builder

	b.WriteString(headerStyle.Render("Allocation Report"))
	b.WriteString("\n")
	b.WriteString(renderField("Tasks", fmt.Sprintf("%d", r.Summary.TotalTasks)))
	b.WriteString(renderField("Allocated", fmt.Sprintf("%d", r.Summary.AllocatedTasks)))
	b.WriteString(renderField("Total cost", formatNumber(r.Summary.TotalCost)))

	b.WriteString(sectionStyle.Render("Allocations"))
	b.WriteString("\n")
	rows := make([][]string, 0, len(r.Allocations))
	for _, d := range r.Allocations {
		status := feasibleStyle.Render("yes")
		if !d.Feasible {
			status = infeasibleStyle.Render("no")
		}
		rows = append(rows, []string{d.Task, status, formatNumber(d.Labor), formatResources(d.Resources), d.Reason})
	}
	b.WriteString(renderTable([]string{"TASK", "FEASIBLE", "LABOR", "RESOURCES", "REASON"}, rows))
	b.WriteString("\n")

	b.WriteString(sectionStyle.Render("Resource Usage"))
	b.WriteString("\n")
	names := make([]string, 0, len(r.ResourceUsage))
	for name := range r.ResourceUsage {
		names = append(names, name)
	}
	sort.Strings(names)
	rows = make([][]string, 0, len(names)+1)
	for _, name := range names {
		rows = append(rows, usageRow(name, r.ResourceUsage[name]))
	}
	if r.LaborUsage != nil {
		rows = append(rows, usageRow("(labor)", *r.LaborUsage))
	}
	b.WriteString(renderTable([]string{"RESOURCE", "INITIAL", "USED", "REMAINING", "% USED"}, rows))
	b.WriteString("\n")

	if len(r.Recommendations) > 0 {
		b.WriteString(sectionStyle.Render("Recommendations"))
		b.WriteString("\n")
		for _, rec := range r.Recommendations {
			b.WriteString("  • " + rec + "\n")
		}
	}

	return b.String()
}

func renderTable(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(mutedColor)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeadStyle
			}
			return cellStyle
		})
	return t.Render()
}

func usageRow(name string, u models.ResourceUsage) []string {
	return []string{
		name,
		formatNumber(u.Initial),
		formatNumber(u.Used),
		formatNumber(u.Remaining),
		formatNumber(u.PercentUsed) + "%",
	}
}

func renderField(label, value string) string {
	return fmt.Sprintf("%s %s\n", labelStyle.Render(label+":"), valueStyle.Render(value))
}

func formatResources(res map[string]float64) string {
	if len(res) == 0 {
		return "-"
	}
	names := make([]string, 0, len(res))
	for name := range res {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + ": " + formatNumber(res[name])
	}
	return strings.Join(parts, ", ")
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
