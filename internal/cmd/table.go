package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
)

// table renders aligned text columns. Widths are measured in terminal
// cells so place names like "Zürich" or "東京" line up.
type table struct {
	headers []string
	rows    [][]string

	// colorize, when set, wraps an already padded cell in color codes.
	colorize func(col int, cell string) string
}

func newTable(headers ...string) *table {
	return &table{headers: headers}
}

func (t *table) add(cells ...string) {
	t.rows = append(t.rows, cells)
}

func (t *table) widths() []int {
	w := make([]int, len(t.headers))
	for i, h := range t.headers {
		w[i] = runewidth.StringWidth(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if i >= len(w) {
				break
			}
			if cw := runewidth.StringWidth(cell); cw > w[i] {
				w[i] = cw
			}
		}
	}
	return w
}

func (t *table) render(out io.Writer) {
	w := t.widths()

	header := make([]string, len(t.headers))
	for i, h := range t.headers {
		header[i] = runewidth.FillRight(h, w[i])
	}
	fmt.Fprintf(out, "%s%s%s\n", colorBold, strings.TrimRight(strings.Join(header, "  "), " "), colorReset)

	for _, row := range t.rows {
		cells := make([]string, len(w))
		for i := range w {
			var cell string
			if i < len(row) {
				cell = row[i]
			}
			padded := runewidth.FillRight(cell, w[i])
			if i == len(w)-1 {
				padded = cell
			}
			if t.colorize != nil {
				padded = t.colorize(i, padded)
			}
			cells[i] = padded
		}
		fmt.Fprintln(out, strings.Join(cells, "  "))
	}
}
