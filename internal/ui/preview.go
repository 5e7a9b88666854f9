package ui

import (
	"github.com/nconklindev/datasweep/internal/table"

	bubbletable "github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

const maxPreviewColumnWidth = 20

// renderPreview draws t with the bubbles table component. The table is
// display-only, so it is never focused.
func renderPreview(t *table.Table) string {
	if t.Width() == 0 {
		return UnselectedStyle.Render("(no columns)") + "\n"
	}

	records := t.Records()
	header := records[0]

	columns := make([]bubbletable.Column, len(header))
	total := 0
	for i, name := range header {
		width := lipgloss.Width(name)
		for _, record := range records[1:] {
			width = max(width, lipgloss.Width(record[i]))
		}
		columns[i] = bubbletable.Column{Title: name, Width: min(max(width, 3), maxPreviewColumnWidth)}
		total += columns[i].Width + 2
	}

	rows := make([]bubbletable.Row, len(records)-1)
	for i, record := range records[1:] {
		rows[i] = bubbletable.Row(record)
	}

	styles := bubbletable.DefaultStyles()
	styles.Header = PreviewHeaderStyle.Padding(0, 1)
	styles.Selected = styles.Cell

	// Styles go first: the height option measures the styled header.
	tbl := bubbletable.New(
		bubbletable.WithStyles(styles),
		bubbletable.WithColumns(columns),
		bubbletable.WithRows(rows),
		bubbletable.WithWidth(total),
		bubbletable.WithHeight(len(rows)+lipgloss.Height(styles.Header.Render("x"))),
		bubbletable.WithFocused(false),
	)

	return tbl.View()
}
