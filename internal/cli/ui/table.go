// Package ui holds the small rendering helpers the CLI commands share:
// aligned tables, key/value listings, and suggestions for mistyped class
// names. Colors honor the global color.NoColor switch.
package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Table renders rows under a highlighted header with aligned columns.
type Table struct {
	w       io.Writer
	headers []string
	rows    [][]string
}

// NewTable returns a table writing to w with the given column headers.
func NewTable(w io.Writer, headers ...string) *Table {
	return &Table{w: w, headers: headers}
}

// AddRow appends one row. Missing trailing cells render empty.
func (t *Table) AddRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

// Render writes the header, a rule, and every row.
func (t *Table) Render() {
	if len(t.headers) == 0 {
		return
	}

	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = len(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	t.line(color.New(color.Bold, color.FgCyan), widths, t.headers)

	rules := make([]string, len(widths))
	for i, width := range widths {
		rules[i] = strings.Repeat("─", width)
	}
	t.line(color.New(color.FgHiBlack), widths, rules)

	plain := color.New()
	for _, row := range t.rows {
		t.line(plain, widths, row)
	}
}

func (t *Table) line(paint *color.Color, widths []int, cells []string) {
	parts := make([]string, len(widths))
	for i := range widths {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		parts[i] = pad(cell, widths[i])
	}
	paint.Fprintln(t.w, strings.TrimRight(strings.Join(parts, "  "), " "))
}

// KeyValue renders aligned key/value pairs with highlighted keys.
type KeyValue struct {
	w    io.Writer
	rows [][2]string
}

// NewKeyValue returns a key/value listing writing to w.
func NewKeyValue(w io.Writer) *KeyValue {
	return &KeyValue{w: w}
}

// Add appends one pair.
func (t *KeyValue) Add(key, value string) {
	t.rows = append(t.rows, [2]string{key, value})
}

// Render writes the pairs with keys padded to a shared width.
func (t *KeyValue) Render() {
	width := 0
	for _, row := range t.rows {
		if len(row[0]) > width {
			width = len(row[0])
		}
	}
	key := color.New(color.FgCyan)
	for _, row := range t.rows {
		key.Fprint(t.w, pad(row[0]+":", width+1))
		fmt.Fprintf(t.w, " %s\n", row[1])
	}
}

// Header writes a title over an underline rule of the same width.
func Header(w io.Writer, title string) {
	color.New(color.Bold, color.FgCyan).Fprintln(w, title)
	color.New(color.FgHiBlack).Fprintln(w, strings.Repeat("─", len(title)))
}

func pad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}
