package cliui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	cellStyle   = lipgloss.NewStyle().PaddingRight(2)
)

// WorkflowRow is one line of a `workflows list` table.
type WorkflowRow struct {
	Name        string
	Description string
	Source      string
}

// RenderWorkflowTable renders rows as a human-readable aligned table, the
// default view for `workflows list` when --as is omitted.
func RenderWorkflowTable(rows []WorkflowRow) string {
	if len(rows) == 0 {
		return "no workflows found"
	}

	nameWidth, descWidth, sourceWidth := len("NAME"), len("DESCRIPTION"), len("SOURCE")
	for _, r := range rows {
		nameWidth = max(nameWidth, len(r.Name))
		descWidth = max(descWidth, len(r.Description))
		sourceWidth = max(sourceWidth, len(r.Source))
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(pad("NAME", nameWidth)))
	b.WriteString(cellStyle.Render(""))
	b.WriteString(headerStyle.Render(pad("DESCRIPTION", descWidth)))
	b.WriteString(cellStyle.Render(""))
	b.WriteString(headerStyle.Render(pad("SOURCE", sourceWidth)))
	b.WriteString("\n")

	for _, r := range rows {
		b.WriteString(pad(r.Name, nameWidth))
		b.WriteString("  ")
		b.WriteString(pad(r.Description, descWidth))
		b.WriteString("  ")
		b.WriteString(pad(r.Source, sourceWidth))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func pad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
