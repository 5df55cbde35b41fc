package model

// Framing tells how a row's payload should be interpreted.
type Framing int

const (
	FramingText Framing = iota
	FramingBinary
)

func (f Framing) String() string {
	switch f {
	case FramingText:
		return "text"
	case FramingBinary:
		return "binary"
	default:
		return "unknown"
	}
}

// Row is one framed unit of a row stream. Rows are immutable once produced.
type Row struct {
	ID      string  // hex label assigned by the producer
	Tag     byte    // tag byte following the colon
	Framing Framing // Text or Binary
	Payload []byte  // body without header and terminator
	Raw     []byte  // full frame, forwarded verbatim downstream

	// LengthPrefixed is set for rows framed by a declared byte length
	// rather than a newline terminator.
	LengthPrefixed bool
}

// DataOffset returns the index in Raw where Payload begins.
func (r Row) DataOffset() int {
	n := len(r.Raw) - len(r.Payload)
	if !r.LengthPrefixed {
		n-- // trailing newline
	}
	return n
}

// Header returns the framing header (id, colon, tag and for
// length-prefixed rows the length and comma).
func (r Row) Header() []byte {
	return r.Raw[:r.DataOffset()]
}

// DisplayRow is a Row decorated with its presentation string.
type DisplayRow struct {
	Row
	Display string
	Offset  int // payload start in Raw, used for hex previews
}
