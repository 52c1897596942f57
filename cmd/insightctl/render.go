package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"fininsight/internal/models"
)

const (
	colorGreen  lipgloss.Color = "#a6e3a1"
	colorRed    lipgloss.Color = "#f38ba8"
	colorYellow lipgloss.Color = "#f9e2af"
	colorBlue   lipgloss.Color = "#89b4fa"
	colorSubtle lipgloss.Color = "#7f849c"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(colorBlue)
	titleStyle  = lipgloss.NewStyle().Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(colorSubtle)
	actionStyle = lipgloss.NewStyle().Foreground(colorBlue).PaddingLeft(4)
	bodyStyle   = lipgloss.NewStyle().PaddingLeft(4).Width(88)
)

func severityStyle(s models.Severity) lipgloss.Style {
	switch s {
	case models.SeverityPositive:
		return lipgloss.NewStyle().Foreground(colorGreen)
	case models.SeverityNegative:
		return lipgloss.NewStyle().Foreground(colorRed)
	case models.SeverityWarning:
		return lipgloss.NewStyle().Foreground(colorYellow)
	default:
		return lipgloss.NewStyle().Foreground(colorSubtle)
	}
}

// renderInsights formats a run for the terminal, one block per insight
func renderInsights(user string, now time.Time, list []models.Insight) string {
	var b strings.Builder

	b.WriteString(headerStyle.Render(fmt.Sprintf("Insights for %s", user)))
	b.WriteString(mutedStyle.Render(fmt.Sprintf("  %s, %d found", now.Format("2006-01-02"), len(list))))
	b.WriteString("\n\n")

	if len(list) == 0 {
		b.WriteString(mutedStyle.Render("Nothing to report."))
		b.WriteString("\n")
		return b.String()
	}

	for _, in := range list {
		badge := fmt.Sprintf("[%s/%s]", in.Priority, in.Severity)
		b.WriteString(severityStyle(in.Severity).Render(badge))
		b.WriteString(" ")
		b.WriteString(titleStyle.Render(in.Title))
		b.WriteString("\n")
		b.WriteString(bodyStyle.Render(in.Description))
		b.WriteString("\n")
		for _, a := range in.Actions {
			b.WriteString(actionStyle.Render(fmt.Sprintf("-> %s (%s)", a.Label, a.Kind())))
			b.WriteString("\n")
		}
		b.WriteString(mutedStyle.Render("    " + in.ID))
		b.WriteString("\n\n")
	}
	return b.String()
}
