package formatter

import (
	"encoding/csv"
	"io"
	"strconv"
)

type CSVFormatter struct {
	w io.Writer
}

func NewCSVFormatter(w io.Writer) *CSVFormatter {
	return &CSVFormatter{w: w}
}

func (f *CSVFormatter) Format(rows []RowRecord) error {
	w := csv.NewWriter(f.w)

	headers := []string{"Index", "ID", "Tag", "Framing", "Length", "Offset", "Display"}
	if err := w.Write(headers); err != nil {
		return err
	}

	for _, row := range rows {
		record := []string{
			strconv.Itoa(row.Index),
			row.ID,
			row.Tag,
			row.Framing,
			strconv.Itoa(row.Length),
			strconv.Itoa(row.Offset),
			row.Display,
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}
