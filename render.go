package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dgnsrekt/memocache/internal/source"
)

// renderTable writes t as a bordered table on a terminal and as CSV
// otherwise, so output stays pipeable.
func renderTable(w io.Writer, t source.Table, tty bool) error {
	if !tty {
		return t.WriteCSV(w)
	}

	tbl := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(t.Columns...).
		Rows(t.Rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	if _, err := fmt.Fprintln(w, tbl.Render()); err != nil {
		return fmt.Errorf("unable to write to writer: %w", err)
	}
	return nil
}
