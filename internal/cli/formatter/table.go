package formatter

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

const tableGap = 2

// RenderTable lays out rows under bold headers with a dim rule between them.
// Cells may already carry styling; widths are measured on visible runes.
func RenderTable(headers []string, rows [][]string) string {
	if len(headers) == 0 {
		return ""
	}
	last := len(headers) - 1
	cell := lipgloss.NewStyle().PaddingRight(tableGap)

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(StyleDim).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderColumn(false).
		BorderRow(false).
		BorderHeader(true).
		Headers(headers...).
		Rows(normalizeRows(rows, len(headers))...).
		StyleFunc(func(row, col int) lipgloss.Style {
			s := cell
			if col == last {
				s = lipgloss.NewStyle()
			}
			if row == table.HeaderRow {
				return s.Inherit(StyleHeader)
			}
			return s
		})

	var b strings.Builder
	for _, line := range strings.Split(t.String(), "\n") {
		b.WriteString(strings.TrimRight(line, " "))
		b.WriteString("\n")
	}
	return b.String()
}

// normalizeRows pads short rows and truncates long ones to n cells.
func normalizeRows(rows [][]string, n int) [][]string {
	out := make([][]string, len(rows))
	for i, r := range rows {
		row := make([]string, n)
		copy(row, r)
		out[i] = row
	}
	return out
}
