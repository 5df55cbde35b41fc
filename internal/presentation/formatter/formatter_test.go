package formatter

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/penwyp/go-flight-stepper/internal/core/model"
)

func sampleRecords() []RowRecord {
	return NewRowRecords([]model.DisplayRow{
		{
			Row:     model.Row{ID: "0", Tag: '[', Framing: model.FramingText, Payload: []byte(`"$","div"]`)},
			Display: `0:["$","div"]`,
			Offset:  3,
		},
		{
			Row:     model.Row{ID: "1", Tag: 'A', Framing: model.FramingBinary, Payload: make([]byte, 1200)},
			Display: "1:A4b0, 00 00",
			Offset:  7,
		},
		{
			Row:     model.Row{ID: "2", Tag: 'A', Framing: model.FramingBinary, Payload: []byte{1, 2}},
			Display: "2:A2, 01 02",
			Offset:  5,
		},
	})
}

func TestNewRowRecords(t *testing.T) {
	records := sampleRecords()

	require.Len(t, records, 3)
	assert.Equal(t, RowRecord{Index: 1, ID: "1", Tag: "A", Framing: "binary", Length: 1200, Offset: 7, Display: "1:A4b0, 00 00"}, records[1])
	assert.Equal(t, "[", records[0].Tag)
	assert.Equal(t, "", tagString(0))
	assert.Equal(t, `\x01`, tagString(1))
}

func TestTableFormatterFormat(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewTableFormatter(&buf).Format(sampleRecords()))

	out := buf.String()
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 9)
	assert.True(t, strings.HasPrefix(lines[0], "┌"))
	assert.Contains(t, lines[1], "Display")
	assert.Contains(t, out, "1,200")
	assert.Contains(t, out, "1,212", "total payload bytes")
	assert.True(t, strings.HasPrefix(lines[8], "└"))
}

func TestTableFormatterTruncatesDisplay(t *testing.T) {
	var buf bytes.Buffer
	long := RowRecord{ID: "1", Tag: "D", Framing: "text", Display: strings.Repeat("界", 60)}
	require.NoError(t, NewTableFormatter(&buf).Format([]RowRecord{long}))

	assert.Contains(t, buf.String(), "…")
	assert.NotContains(t, buf.String(), strings.Repeat("界", 60))
}

func TestJSONFormatterFormat(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewJSONFormatter(&buf).Format(sampleRecords()))

	var decoded []RowRecord
	require.NoError(t, sonic.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, sampleRecords(), decoded)

	buf.Reset()
	require.NoError(t, NewJSONFormatter(&buf).Format(nil))
	assert.Equal(t, "[]\n", buf.String())
}

func TestCSVFormatterFormat(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewCSVFormatter(&buf).Format(sampleRecords()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, "Display", records[0][6])
	assert.Equal(t, []string{"2", "2", "A", "binary", "2", "5", "2:A2, 01 02"}, records[3])
}

func TestSummaryFormatterFormat(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewSummaryFormatter(&buf).Format(sampleRecords()))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Rows: 3  Payload bytes: 1,212", lines[0])
	assert.Contains(t, lines[1], "A ")
	assert.Contains(t, lines[1], "2 rows")
	assert.Contains(t, lines[2], "[")
}

func TestNewFormatter(t *testing.T) {
	for _, format := range []string{"", "table", "json", "csv", "summary"} {
		f, err := New(format, &bytes.Buffer{})
		require.NoError(t, err, format)
		assert.NotNil(t, f)
	}

	_, err := New("xml", &bytes.Buffer{})
	assert.ErrorContains(t, err, "unsupported output format")
}
