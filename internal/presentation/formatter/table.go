package formatter

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
)

// maxDisplayWidth caps the Display column; longer rows are truncated.
const maxDisplayWidth = 72

type TableFormatter struct {
	w       io.Writer
	headers []string
}

func NewTableFormatter(w io.Writer) *TableFormatter {
	return &TableFormatter{
		w:       w,
		headers: []string{"#", "ID", "Tag", "Framing", "Length", "Display"},
	}
}

func (f *TableFormatter) Format(rows []RowRecord) error {
	cells := make([][]string, len(rows))
	for i, row := range rows {
		cells[i] = []string{
			strconv.Itoa(row.Index),
			row.ID,
			row.Tag,
			row.Framing,
			formatNumber(row.Length),
			runewidth.Truncate(row.Display, maxDisplayWidth, "…"),
		}
	}

	widths := f.calculateColumnWidths(cells)

	f.printBorder(widths, "top")
	f.printRow(f.headers, widths)
	f.printBorder(widths, "middle")
	for _, row := range cells {
		f.printRow(row, widths)
	}

	total := 0
	for _, row := range rows {
		total += row.Length
	}
	f.printBorder(widths, "middle")
	f.printRow([]string{"Total", strconv.Itoa(len(rows)), "", "", formatNumber(total), ""}, widths)
	f.printBorder(widths, "bottom")
	return nil
}

// calculateColumnWidths sizes every column to its widest cell
func (f *TableFormatter) calculateColumnWidths(cells [][]string) []int {
	widths := make([]int, len(f.headers))
	for i, header := range f.headers {
		widths[i] = runewidth.StringWidth(header)
	}
	for _, row := range cells {
		for i, value := range row {
			if w := runewidth.StringWidth(value); w > widths[i] {
				widths[i] = w
			}
		}
	}
	// room for the "Total" label
	if widths[0] < 5 {
		widths[0] = 5
	}
	return widths
}

// printBorder prints table borders (top, middle, bottom)
func (f *TableFormatter) printBorder(widths []int, borderType string) {
	var left, middle, right string

	switch borderType {
	case "top":
		left, middle, right = "┌", "┬", "┐"
	case "middle":
		left, middle, right = "├", "┼", "┤"
	case "bottom":
		left, middle, right = "└", "┴", "┘"
	}

	var b strings.Builder
	b.WriteString(left)
	for i, width := range widths {
		b.WriteString(strings.Repeat("─", width+2))
		if i < len(widths)-1 {
			b.WriteString(middle)
		}
	}
	b.WriteString(right)
	fmt.Fprintln(f.w, b.String())
}

// printRow prints one row; Length is right-aligned, the rest left-aligned
func (f *TableFormatter) printRow(values []string, widths []int) {
	var b strings.Builder
	b.WriteString("│")
	for i, value := range values {
		pad := strings.Repeat(" ", widths[i]-runewidth.StringWidth(value))
		if i == 4 {
			b.WriteString(" " + pad + value + " │")
		} else {
			b.WriteString(" " + value + pad + " │")
		}
	}
	fmt.Fprintln(f.w, b.String())
}

func formatNumber(n int) string {
	s := strconv.Itoa(n)
	if len(s) <= 3 {
		return s
	}

	var result []byte
	for i, digit := range []byte(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			result = append(result, ',')
		}
		result = append(result, digit)
	}
	return string(result)
}
