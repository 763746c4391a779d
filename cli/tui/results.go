package tui

import (
	"bytes"
	"fmt"
	"image"
	_ "image/png"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/pithecene-io/plandesk/inputs"
	"github.com/pithecene-io/plandesk/metrics"
	"github.com/pithecene-io/plandesk/runtime"
	"github.com/pithecene-io/plandesk/types"
)

// renderResults renders the results pane for the selected query.
func renderResults(snap runtime.Snapshot) string {
	var b strings.Builder

	title := "Results"
	if id := snap.Session.SelectedQueryID; id != "" {
		title += " · " + id
	}
	b.WriteString(TitleStyle.Render(title))
	b.WriteString("\n")

	if snap.Bundle == nil {
		if snap.Session.SelectedQueryID != "" {
			b.WriteString(PendingStyle.Render("Loading results..."))
		} else {
			b.WriteString(HelpStyle.Render("No results yet."))
		}
		return b.String()
	}

	b.WriteString(renderCharts(snap.Bundle))

	tables, err := inputs.Tables(snap.Bundle.Inputs)
	switch {
	case err != nil:
		b.WriteString("\n")
		b.WriteString(ErrorStyle.Render("Inputs unreadable: " + err.Error()))
	case len(tables) == 0:
		b.WriteString("\n")
		b.WriteString(HelpStyle.Render("No model inputs."))
	default:
		b.WriteString("\n")
		b.WriteString(renderTables(tables))
	}
	return b.String()
}

func renderCharts(bundle *types.ResultBundle) string {
	lines := make([]string, 0, len(types.ChartKinds))
	for _, kind := range types.ChartKinds {
		data, ok := bundle.Chart(kind)
		if !ok {
			lines = append(lines, fmt.Sprintf("%s %s",
				LabelStyle.Render(string(kind)), HelpStyle.Render("unavailable")))
			continue
		}
		lines = append(lines, fmt.Sprintf("%s %s",
			LabelStyle.Render(string(kind)), SuccessStyle.Render(chartSummary(data))))
	}
	return strings.Join(lines, "\n")
}

// chartSummary describes chart bytes: dimensions when they decode as an
// image, and size.
func chartSummary(data []byte) string {
	size := formatBytes(len(data))
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return size
	}
	return fmt.Sprintf("%s %dx%d, %s", format, cfg.Width, cfg.Height, size)
}

func formatBytes(n int) string {
	if n < 1024 {
		return fmt.Sprintf("%d B", n)
	}
	return fmt.Sprintf("%.1f KB", float64(n)/1024)
}

// renderTables lays out input tables, joining tables that share a group
// side by side.
func renderTables(tables []inputs.Table) string {
	var rows []string
	var current []string
	group := tables[0].Group

	flush := func() {
		if len(current) > 0 {
			rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, current...))
			current = nil
		}
	}

	for _, t := range tables {
		if t.Group != group {
			flush()
			group = t.Group
		}
		current = append(current, renderTable(t))
	}
	flush()
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func renderTable(t inputs.Table) string {
	tbl := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(mutedColor)).
		Headers(t.Headers...).
		Rows(t.Rows...)
	return lipgloss.JoinVertical(lipgloss.Left, LabelStyle.UnsetWidth().Render(t.Title), tbl.String())
}

// renderMetrics renders the metrics footer as a row of stat boxes.
func renderMetrics(s metrics.Snapshot) string {
	var terminal int64
	for _, n := range s.TerminalByStatus {
		terminal += n
	}
	boxes := []string{
		renderStatBox("Submitted", s.SubmitSuccess, highlightColor),
		renderStatBox("Checks", s.StatusChecks, highlightColor),
		renderStatBox("Finished", terminal, successColor),
		renderStatBox("Exhausted", s.Exhaustions, warningColor),
		renderStatBox("Errors", s.SubmitFailure+s.TransientErrors+s.HydrateFailure, errorColor),
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, boxes...)
}

func renderStatBox(label string, value int64, color lipgloss.Color) string {
	boxStyle := StatBoxStyle.BorderForeground(color)

	valueStr := StatValueStyle.Foreground(color).Render(fmt.Sprintf("%d", value))
	labelStr := StatLabelStyle.Render(label)

	content := lipgloss.JoinVertical(lipgloss.Center, valueStr, labelStr)

	return boxStyle.Render(content)
}
