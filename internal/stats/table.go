package stats

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// table lays out cells in columns sized to their widest cell on screen.
type table struct {
	headers []string
	rows    [][]string
	right   map[int]bool
}

func formatTable(headers []string, rows [][]string, rightAlignCols map[int]bool) []string {
	return table{headers: headers, rows: rows, right: rightAlignCols}.lines()
}

func (t table) lines() []string {
	widths := t.columnWidths()
	if len(widths) == 0 {
		return nil
	}
	out := make([]string, 0, len(t.rows)+1)
	if len(t.headers) > 0 {
		out = append(out, t.render(t.headers, widths))
	}
	for _, row := range t.rows {
		out = append(out, t.render(row, widths))
	}
	return out
}

func (t table) columnWidths() []int {
	cols := len(t.headers)
	for _, row := range t.rows {
		cols = max(cols, len(row))
	}
	widths := make([]int, cols)
	measure := func(row []string) {
		for i, cell := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}
	measure(t.headers)
	for _, row := range t.rows {
		measure(row)
	}
	return widths
}

func (t table) render(row []string, widths []int) string {
	cells := make([]string, len(widths))
	for i, width := range widths {
		cell := ""
		if i < len(row) {
			cell = row[i]
		}
		if t.right[i] {
			cells[i] = runewidth.FillLeft(cell, width)
		} else {
			cells[i] = runewidth.FillRight(cell, width)
		}
	}
	return strings.Join(cells, " ")
}
