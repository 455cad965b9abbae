package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

type SummaryRow struct {
	Label string
	Value string
	// Alert renders the value in the error color when set.
	Alert bool
}

func RenderSummary(rows []SummaryRow) string {
	labelWidth := 0
	valueWidth := 0
	for _, row := range rows {
		if len(row.Label) > labelWidth {
			labelWidth = len(row.Label)
		}
		if len(row.Value) > valueWidth {
			valueWidth = len(row.Value)
		}
	}

	hline := dimStyle.Render(strings.Repeat("-", labelWidth+valueWidth+3))
	lines := []string{hline}

	for _, row := range rows {
		label := padRight(row.Label, labelWidth)
		value := padRight(row.Value, valueWidth)
		style := valueStyle
		if row.Alert {
			style = alertStyle
		}
		line := fmt.Sprintf("%s | %s", labelStyle.Render(label), style.Render(value))
		lines = append(lines, line)
	}

	lines = append(lines, hline)
	return strings.Join(lines, "\n")
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

var (
	labelStyle = lipgloss.NewStyle().Foreground(ColorInk)
	valueStyle = lipgloss.NewStyle().Foreground(ColorSuccess).Bold(true)
	alertStyle = lipgloss.NewStyle().Foreground(ColorError).Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(ColorDim)
)
