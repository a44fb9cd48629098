package report

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	firstStyle  = cellStyle.Bold(true)
	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// RenderSlips writes t as a bordered text table followed by a row count.
func RenderSlips(w io.Writer, t Table) error {
	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(t.Header()...).
		Rows(t.Rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 0:
				return firstStyle
			default:
				return cellStyle
			}
		})

	if _, err := fmt.Fprintln(w, tbl.String()); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, footerStyle.Render(fmt.Sprintf("%d requests", len(t.Rows))))
	return err
}
