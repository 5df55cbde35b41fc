// Package parser splits a row stream into discrete rows.
//
// It is a framing parser only: it finds where each row begins and ends and
// whether its payload is text or binary, but never interprets the payload.
// Two framing modes exist, selected by the tag byte after "ID:":
//
//	length-prefixed: ID:TAG + HEX_LENGTH + "," + DATA   (no terminator)
//	newline:         ID:TAG + DATA + "\n"
package parser

import (
	"bytes"

	"github.com/penwyp/go-flight-stepper/internal/core/model"
)

// maxRowLength bounds declared lengths so a corrupt header cannot
// overflow the accumulator.
const maxRowLength = 1<<31 - 1

// Outcome is the result of one Split call.
type Outcome struct {
	Rows      []model.Row
	Remainder []byte // incomplete trailing row; prepend to the next chunk
}

// Split scans buf for complete rows. When final is false, an incomplete
// trailing row is returned as Remainder instead of failing. Split never
// modifies buf; returned rows own their bytes.
//
// On error the rows found before the failure are still returned.
func Split(buf []byte, final bool) (Outcome, error) {
	var rows []model.Row
	partial := func(start int) (Outcome, error) {
		return Outcome{Rows: rows, Remainder: bytes.Clone(buf[start:])}, nil
	}

	i := 0
	for i < len(buf) {
		// blank separators between rows
		if buf[i] == '\n' {
			i++
			continue
		}
		start := i

		for i < len(buf) && buf[i] != ':' {
			if !isHexDigit(buf[i]) {
				return Outcome{Rows: rows}, newParseError(ErrMalformedID, "", i,
					"expected hex digit in row id, got 0x%02x", buf[i])
			}
			i++
		}
		if i >= len(buf) {
			if final {
				return Outcome{Rows: rows}, newParseError(ErrMalformedID, "", start,
					"truncated row id at end of stream")
			}
			return partial(start)
		}

		id := string(buf[start:i])
		i++ // colon

		if i >= len(buf) {
			if final {
				return Outcome{Rows: rows}, newParseError(ErrMissingTerminator, id, start,
					"row truncated after colon")
			}
			return partial(start)
		}

		tag := buf[i]
		if IsLengthPrefixed(tag) {
			i++
			length, digits := 0, 0
			for i < len(buf) && buf[i] != ',' {
				b := buf[i]
				if !isHexDigit(b) {
					return Outcome{Rows: rows}, newParseError(ErrMalformedLength, id, i,
						"expected hex digit in length, got 0x%02x", b)
				}
				length = length<<4 | hexValue(b)
				if length > maxRowLength {
					return Outcome{Rows: rows}, newParseError(ErrMalformedLength, id, i,
						"declared length exceeds %d bytes", maxRowLength)
				}
				digits++
				i++
			}
			if i >= len(buf) {
				if final {
					return Outcome{Rows: rows}, newParseError(ErrMalformedLength, id, start,
						"truncated in binary length")
				}
				return partial(start)
			}
			if digits == 0 {
				return Outcome{Rows: rows}, newParseError(ErrMalformedLength, id, i,
					"empty length")
			}
			i++ // comma

			if len(buf)-i < length {
				if final {
					return Outcome{Rows: rows}, newParseError(ErrTruncatedBinaryData, id, start,
						"need %d bytes, have %d", length, len(buf)-i)
				}
				return partial(start)
			}

			raw := bytes.Clone(buf[start : i+length])
			framing := model.FramingBinary
			if tag == TagLongText {
				framing = model.FramingText
			}
			rows = append(rows, model.Row{
				ID:             id,
				Tag:            tag,
				Framing:        framing,
				Payload:        raw[i-start:],
				Raw:            raw,
				LengthPrefixed: true,
			})
			i += length
			continue
		}

		nl := bytes.IndexByte(buf[i:], '\n')
		if nl < 0 {
			if final {
				return Outcome{Rows: rows}, newParseError(ErrMissingTerminator, id, start,
					"text row missing trailing newline at end of stream")
			}
			return partial(start)
		}
		end := i + nl
		contentStart := i + 1
		if tag == '\n' {
			// "ID:\n" has neither tag nor payload
			tag = 0
			contentStart = end
		}

		raw := bytes.Clone(buf[start : end+1])
		rows = append(rows, model.Row{
			ID:      id,
			Tag:     tag,
			Framing: model.FramingText,
			Payload: raw[contentStart-start : end-start],
			Raw:     raw,
		})
		i = end + 1
	}

	return Outcome{Rows: rows, Remainder: []byte{}}, nil
}

func isHexDigit(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

func hexValue(b byte) int {
	switch {
	case b >= '0' && b <= '9':
		return int(b - '0')
	case b >= 'a' && b <= 'f':
		return int(b-'a') + 10
	default:
		return int(b-'A') + 10
	}
}
