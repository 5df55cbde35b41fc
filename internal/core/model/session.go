package model

// InteractionState represents the current UI interaction state
type InteractionState struct {
	ShowHelp      bool
	LayoutStyle   int  // 0: Full, 1: Compact
	PickingAction bool // action picker is open
	Selected      int  // selected entry index
	StatusMessage string
	ConfirmDialog *ConfirmDialog
}

// ConfirmDialog represents a confirmation dialog
type ConfirmDialog struct {
	Title     string
	Message   string
	OnConfirm func()
	OnCancel  func()
}

// EntryKind distinguishes render and action entries in views.
type EntryKind string

const (
	KindRender EntryKind = "render"
	KindAction EntryKind = "action"
)

// RowState places a row relative to the cursor.
type RowState int

const (
	RowPending RowState = iota // not released yet
	RowNext                    // released by the next step
	RowDone                    // already released
)

// ConsumerState is what the downstream consumer of an entry has received.
type ConsumerState struct {
	Frames int
	Bytes  int
	Done   bool
	Err    error
}

// EntryView is the display model of one timeline entry.
type EntryView struct {
	ID    string
	Kind  EntryKind
	Label string
	Name  string
	Args  string

	Rows       []DisplayRow
	ChunkStart int

	IsActive  bool // the next step releases a row of this entry
	IsDone    bool // every buffered row is released
	CanDelete bool

	Consumer ConsumerState
}

// RowState returns the state of local row i for the given cursor.
func (v EntryView) RowState(i, cursor int) RowState {
	global := v.ChunkStart + i
	switch {
	case global < cursor:
		return RowDone
	case global == cursor:
		return RowNext
	default:
		return RowPending
	}
}

// LayoutParam carries everything a layout needs to draw one frame.
type LayoutParam struct {
	Title       string
	Entries     []EntryView
	Cursor      int
	TotalChunks int
	IsAtStart   bool
	IsAtEnd     bool
	Actions     []string
	State       InteractionState
	Width       int
	Height      int
}
