package formatter

import (
	"fmt"
	"io"
	"sort"
)

// SummaryFormatter prints row and byte counts per tag.
type SummaryFormatter struct {
	w io.Writer
}

func NewSummaryFormatter(w io.Writer) *SummaryFormatter {
	return &SummaryFormatter{w: w}
}

type tagStats struct {
	tag     string
	framing string
	rows    int
	bytes   int
}

func (f *SummaryFormatter) Format(rows []RowRecord) error {
	stats := make(map[string]*tagStats)
	total := 0
	for _, row := range rows {
		s, ok := stats[row.Tag]
		if !ok {
			s = &tagStats{tag: row.Tag, framing: row.Framing}
			stats[row.Tag] = s
		}
		s.rows++
		s.bytes += row.Length
		total += row.Length
	}

	ordered := make([]*tagStats, 0, len(stats))
	for _, s := range stats {
		ordered = append(ordered, s)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].rows != ordered[j].rows {
			return ordered[i].rows > ordered[j].rows
		}
		return ordered[i].tag < ordered[j].tag
	})

	fmt.Fprintf(f.w, "Rows: %s  Payload bytes: %s\n", formatNumber(len(rows)), formatNumber(total))
	for _, s := range ordered {
		tag := s.tag
		if tag == "" {
			tag = "(none)"
		}
		fmt.Fprintf(f.w, "  %-6s %-6s %8s rows %10s bytes\n", tag, s.framing, formatNumber(s.rows), formatNumber(s.bytes))
	}
	return nil
}
