package parser

import (
	"errors"
	"fmt"
)

// Error kinds returned by Split. All of them are fatal to the invocation
// that produced them.
var (
	ErrMalformedID         = errors.New("malformed row id")
	ErrMalformedLength     = errors.New("malformed binary length")
	ErrTruncatedBinaryData = errors.New("truncated binary data")
	ErrMissingTerminator   = errors.New("missing row terminator")
)

// ParseError locates a framing failure in the input buffer.
type ParseError struct {
	Kind   error
	RowID  string
	Offset int
	Detail string
}

func (e *ParseError) Error() string {
	if e.RowID != "" {
		return fmt.Sprintf("row %s at offset %d: %v: %s", e.RowID, e.Offset, e.Kind, e.Detail)
	}
	return fmt.Sprintf("offset %d: %v: %s", e.Offset, e.Kind, e.Detail)
}

func (e *ParseError) Unwrap() error {
	return e.Kind
}

func newParseError(kind error, rowID string, offset int, format string, args ...interface{}) *ParseError {
	return &ParseError{
		Kind:   kind,
		RowID:  rowID,
		Offset: offset,
		Detail: fmt.Sprintf(format, args...),
	}
}
