package timeline

import (
	"github.com/penwyp/go-flight-stepper/internal/core/model"
)

// Stream is the per-entry row buffer driven by the timeline.
// *stream.Stream implements it.
type Stream interface {
	Len() int
	Rows() []model.DisplayRow
	Release(count int)
	Subscribe(fn func()) (unsubscribe func())
	Close() error
}

// Entry is one logical response within a Timeline: the initial render or
// an action. The set of variants is closed; switch on *RenderEntry and
// *ActionEntry.
type Entry interface {
	EntryID() string
	EntryStream() Stream
	isEntry()
}

// RenderEntry wraps the initial render response.
type RenderEntry struct {
	ID     string
	Stream Stream
}

// ActionEntry wraps the response to one action invocation.
type ActionEntry struct {
	ID     string
	Name   string
	Args   string // request payload as shown to the user
	Stream Stream
}

func (e *RenderEntry) EntryID() string     { return e.ID }
func (e *RenderEntry) EntryStream() Stream { return e.Stream }
func (*RenderEntry) isEntry()              {}

func (e *ActionEntry) EntryID() string     { return e.ID }
func (e *ActionEntry) EntryStream() Stream { return e.Stream }
func (*ActionEntry) isEntry()              {}

// Label returns the heading shown for an entry.
func Label(e Entry) string {
	switch e := e.(type) {
	case *RenderEntry:
		return "Render"
	case *ActionEntry:
		return "Action: " + e.Name
	default:
		return "Unknown"
	}
}

// Snapshot is an immutable view of a Timeline. The same pointer is handed
// out until the timeline changes.
type Snapshot struct {
	Entries     []Entry
	Cursor      int
	TotalChunks int
	IsAtStart   bool
	IsAtEnd     bool
}

// Position addresses one row of one entry.
type Position struct {
	EntryIndex int
	LocalChunk int
}
