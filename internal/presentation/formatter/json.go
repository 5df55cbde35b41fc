package formatter

import (
	"io"

	"github.com/bytedance/sonic"
)

type JSONFormatter struct {
	w io.Writer
}

func NewJSONFormatter(w io.Writer) *JSONFormatter {
	return &JSONFormatter{w: w}
}

func (f *JSONFormatter) Format(rows []RowRecord) error {
	if rows == nil {
		rows = []RowRecord{}
	}
	encoder := sonic.ConfigStd.NewEncoder(f.w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(rows)
}
