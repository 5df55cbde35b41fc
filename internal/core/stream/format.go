package stream

import (
	"encoding/hex"
	"strings"

	"github.com/penwyp/go-flight-stepper/internal/core/model"
)

// previewBytes caps the hex preview shown for binary rows.
const previewBytes = 16

// FormatRow builds the display form of a row. Text rows show their header
// and UTF-8 payload, trimmed. Binary rows show their header and a hex
// preview of the payload. An empty Display means the row is suppressed.
func FormatRow(row model.Row) model.DisplayRow {
	offset := row.DataOffset()
	header := string(row.Raw[:offset])

	var display string
	if row.Framing == model.FramingBinary {
		display = strings.TrimSpace(header + " " + HexPreview(row.Payload, previewBytes))
	} else {
		display = strings.TrimSpace(header + strings.ToValidUTF8(string(row.Payload), "�"))
	}

	return model.DisplayRow{Row: row, Display: display, Offset: offset}
}

// HexPreview renders up to limit bytes as space separated hex pairs,
// followed by an ellipsis when data is longer.
func HexPreview(data []byte, limit int) string {
	n := len(data)
	if n > limit {
		n = limit
	}

	var b strings.Builder
	b.Grow(n*3 + 4)
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(hex.EncodeToString(data[i : i+1]))
	}
	if len(data) > limit {
		b.WriteString(" …")
	}
	return b.String()
}
