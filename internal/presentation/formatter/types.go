package formatter

import (
	"fmt"
	"io"

	"github.com/penwyp/go-flight-stepper/internal/core/model"
)

// Formatter writes parsed rows in one output format.
type Formatter interface {
	Format(rows []RowRecord) error
}

// RowRecord is the printable form of one parsed row.
type RowRecord struct {
	Index   int    `json:"index"`
	ID      string `json:"id"`
	Tag     string `json:"tag"`
	Framing string `json:"framing"`
	Length  int    `json:"length"`
	Offset  int    `json:"offset"`
	Display string `json:"display"`
}

// NewRowRecords converts display rows into records.
func NewRowRecords(rows []model.DisplayRow) []RowRecord {
	records := make([]RowRecord, len(rows))
	for i, r := range rows {
		records[i] = RowRecord{
			Index:   i,
			ID:      r.ID,
			Tag:     tagString(r.Tag),
			Framing: r.Framing.String(),
			Length:  len(r.Payload),
			Offset:  r.Offset,
			Display: r.Display,
		}
	}
	return records
}

func tagString(tag byte) string {
	if tag == 0 {
		return ""
	}
	if tag < 0x20 || tag > 0x7e {
		return fmt.Sprintf("\\x%02x", tag)
	}
	return string(tag)
}

// New returns the formatter for format: table, json, csv or summary.
func New(format string, w io.Writer) (Formatter, error) {
	switch format {
	case "", "table":
		return NewTableFormatter(w), nil
	case "json":
		return NewJSONFormatter(w), nil
	case "csv":
		return NewCSVFormatter(w), nil
	case "summary":
		return NewSummaryFormatter(w), nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}
