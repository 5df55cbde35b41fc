package parser

import (
	"bytes"
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/penwyp/go-flight-stepper/internal/core/model"
)

func TestSplitTextAndBinaryRows(t *testing.T) {
	input := []byte("1:T5,hello\n2:A4,\xDE\xAD\xBE\xEF")

	out, err := Split(input, true)

	require.NoError(t, err)
	require.Len(t, out.Rows, 2)
	assert.Empty(t, out.Remainder)

	assert.Equal(t, "1", out.Rows[0].ID)
	assert.Equal(t, model.FramingText, out.Rows[0].Framing)
	assert.Equal(t, []byte("hello"), out.Rows[0].Payload)

	assert.Equal(t, "2", out.Rows[1].ID)
	assert.Equal(t, model.FramingBinary, out.Rows[1].Framing)
	assert.Equal(t, []byte{0xDE, 0xAD, 0xBE, 0xEF}, out.Rows[1].Payload)
	assert.Equal(t, []byte("2:A4,\xDE\xAD\xBE\xEF"), out.Rows[1].Raw)
}

func TestSplitMidFrameRemainder(t *testing.T) {
	out, err := Split([]byte("3:T2"), false)
	require.NoError(t, err)
	assert.Empty(t, out.Rows)
	assert.Equal(t, []byte("3:T2"), out.Remainder)

	next := append(out.Remainder, []byte(",hi\n")...)
	out, err = Split(next, true)
	require.NoError(t, err)
	require.Len(t, out.Rows, 1)
	assert.Equal(t, "3", out.Rows[0].ID)
	assert.Equal(t, model.FramingText, out.Rows[0].Framing)
	assert.Equal(t, []byte("hi"), out.Rows[0].Payload)
}

func TestSplitTextTermination(t *testing.T) {
	out, err := Split([]byte("0:[\"$\",\"div\",null,{}]\n1:I[\"client\",[],\"Button\"]\n"), true)

	require.NoError(t, err)
	require.Len(t, out.Rows, 2)
	for _, row := range out.Rows {
		assert.Equal(t, model.FramingText, row.Framing)
		assert.NotContains(t, string(row.Payload), "\n")
		assert.Equal(t, byte('\n'), row.Raw[len(row.Raw)-1])
		assert.False(t, row.LengthPrefixed)
	}
	assert.Equal(t, `"$","div",null,{}]`, string(out.Rows[0].Payload))
	assert.Equal(t, byte('['), out.Rows[0].Tag)
	assert.Equal(t, byte('I'), out.Rows[1].Tag)
	assert.Equal(t, 3, out.Rows[1].DataOffset())
}

func TestSplitBinaryTagCompleteness(t *testing.T) {
	payload := []byte{0xAB, 0xCD, '\n', 0xAB, 0xCD, ':', '0'}

	for _, tag := range BinaryTags() {
		t.Run(fmt.Sprintf("tag_%c", tag), func(t *testing.T) {
			var buf bytes.Buffer
			buf.WriteString("a:Dleading\n")
			fmt.Fprintf(&buf, "1f:%c%x,", tag, len(payload))
			buf.Write(payload)
			buf.WriteString("20:\"trailing\"\n")

			out, err := Split(buf.Bytes(), true)

			require.NoError(t, err)
			require.Len(t, out.Rows, 3)
			row := out.Rows[1]
			assert.Equal(t, "1f", row.ID)
			assert.Equal(t, tag, row.Tag)
			assert.Equal(t, model.FramingBinary, row.Framing)
			assert.Equal(t, payload, row.Payload)
			assert.Equal(t, 6, row.DataOffset())
			assert.Equal(t, "20", out.Rows[2].ID)
		})
	}
}

func TestBinaryTagSet(t *testing.T) {
	assert.Equal(t, []byte("AGLMOSUVbglmos"), BinaryTags())
	assert.True(t, IsLengthPrefixed('T'))
	assert.False(t, IsBinaryTag('T'))
	assert.False(t, IsLengthPrefixed('I'))
}

func TestSplitChunkBoundaryInvariance(t *testing.T) {
	var stream bytes.Buffer
	stream.WriteString("0:D{\"time\":1}\n")
	stream.WriteString("1:HL[\"/style.css\",\"style\"]\n")
	stream.WriteString("2:Ta,0123456789")
	stream.WriteString("3:o8,\x00\x01\x02\n\x04\x05\x06\x07")
	stream.WriteString("4:E{\"digest\":\"x\"}\n")
	stream.WriteString("a:b0,")
	stream.WriteString("ff:\n")
	stream.WriteString("5:[\"$\",\"p\",null,{\"children\":\"$@2\"}]\n")
	input := stream.Bytes()

	whole, err := Split(input, true)
	require.NoError(t, err)
	require.Len(t, whole.Rows, 8)

	rng := rand.New(rand.NewSource(42))
	for round := 0; round < 200; round++ {
		var rows []model.Row
		var carry []byte
		pos := 0
		for pos < len(input) {
			n := 1 + rng.Intn(7)
			if pos+n > len(input) {
				n = len(input) - pos
			}
			carry = append(carry, input[pos:pos+n]...)
			pos += n

			out, err := Split(carry, pos == len(input))
			require.NoError(t, err, "round %d", round)
			rows = append(rows, out.Rows...)
			carry = out.Remainder
		}
		assert.Empty(t, carry)
		require.Equal(t, whole.Rows, rows, "round %d", round)
	}
}

func TestSplitDoesNotMutateInput(t *testing.T) {
	input := []byte("1:T3,abc2:Xpartial")
	orig := bytes.Clone(input)

	out, err := Split(input, false)
	require.NoError(t, err)
	require.Len(t, out.Rows, 1)
	assert.Equal(t, []byte("2:Xpartial"), out.Remainder)

	out.Rows[0].Raw[0] = 'z'
	out.Remainder[0] = 'z'
	assert.Equal(t, orig, input)
}

func TestSplitErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		final bool
		kind  error
		rows  int
	}{
		{"non-hex id", "1:x\nzz:y\n", false, ErrMalformedID, 1},
		{"truncated id", "1:x\n12", true, ErrMalformedID, 1},
		{"truncated after colon", "12:", true, ErrMissingTerminator, 0},
		{"non-hex length", "1:A1q,", false, ErrMalformedLength, 0},
		{"truncated length", "1:A1", true, ErrMalformedLength, 0},
		{"empty length", "1:A,", false, ErrMalformedLength, 0},
		{"short binary body", "1:A4,ab", true, ErrTruncatedBinaryData, 0},
		{"missing newline", "1:x\n2:yy", true, ErrMissingTerminator, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Split([]byte(tt.input), tt.final)

			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.kind), "got %v", err)
			var perr *ParseError
			require.ErrorAs(t, err, &perr)
			assert.Len(t, out.Rows, tt.rows)
		})
	}
}

func TestSplitIncompleteWithoutFinal(t *testing.T) {
	inputs := []string{"1", "12:", "1:A", "1:A4", "1:A4,ab", "1:xyz"}

	for _, in := range inputs {
		out, err := Split([]byte(in), false)
		require.NoError(t, err, in)
		assert.Empty(t, out.Rows, in)
		assert.Equal(t, []byte(in), out.Remainder, in)
	}
}

func TestSplitEmptyInput(t *testing.T) {
	out, err := Split(nil, true)
	require.NoError(t, err)
	assert.Empty(t, out.Rows)
	assert.Empty(t, out.Remainder)
}
