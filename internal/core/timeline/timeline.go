// Package timeline sequences the responses of a debugging session.
//
// Each entry owns one stream; a single global cursor counts the rows
// released across all entries in entry order. Stepping the cursor releases
// exactly one more row to the entry it falls in.
package timeline

import (
	"sync"

	"github.com/google/uuid"

	"github.com/penwyp/go-flight-stepper/internal/util"
)

// Timeline manages the entries and cursor of one session. Mutations are
// expected from a single control flow; the mutex only guards against
// stream goroutines invalidating the snapshot concurrently.
type Timeline struct {
	mu       sync.Mutex
	entries  []Entry
	unsubs   []func()
	cursor   int
	snapshot *Snapshot

	listeners    map[int]func()
	nextListener int
	log          util.LoggerInterface
}

// New creates an empty timeline.
func New() *Timeline {
	return &Timeline{
		listeners: make(map[int]func()),
		log:       util.Component("timeline"),
	}
}

// Subscribe registers fn to run after every change. Listeners run outside
// the timeline lock and may call back into it.
func (t *Timeline) Subscribe(fn func()) (unsubscribe func()) {
	t.mu.Lock()
	id := t.nextListener
	t.nextListener++
	t.listeners[id] = fn
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		delete(t.listeners, id)
		t.mu.Unlock()
	}
}

func (t *Timeline) notify() {
	t.mu.Lock()
	fns := make([]func(), 0, len(t.listeners))
	for _, fn := range t.listeners {
		fns = append(fns, fn)
	}
	t.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// onStreamChange is called from stream goroutines when rows are buffered.
func (t *Timeline) onStreamChange() {
	t.mu.Lock()
	t.snapshot = nil
	t.mu.Unlock()
	t.notify()
}

// Snapshot returns the cached view, rebuilding it after a change.
func (t *Timeline) Snapshot() *Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.snapshot != nil {
		return t.snapshot
	}

	total := t.totalLocked()
	t.snapshot = &Snapshot{
		Entries:     t.entries,
		Cursor:      t.cursor,
		TotalChunks: total,
		IsAtStart:   t.cursor == 0,
		IsAtEnd:     t.cursor >= total,
	}
	return t.snapshot
}

// Cursor returns the number of rows released across all entries.
func (t *Timeline) Cursor() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cursor
}

// Entries returns the current entries in order.
func (t *Timeline) Entries() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.entries
}

// TotalChunks sums the buffered row counts of every entry.
func (t *Timeline) TotalChunks() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.totalLocked()
}

func (t *Timeline) totalLocked() int {
	total := 0
	for _, e := range t.entries {
		total += e.EntryStream().Len()
	}
	return total
}

// Position maps a global row index to its entry and local row index.
func (t *Timeline) Position(global int) (Position, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.positionLocked(global)
}

func (t *Timeline) positionLocked(global int) (Position, bool) {
	if global < 0 {
		return Position{}, false
	}
	remaining := global
	for i, e := range t.entries {
		count := e.EntryStream().Len()
		if remaining < count {
			return Position{EntryIndex: i, LocalChunk: remaining}, true
		}
		remaining -= count
	}
	return Position{}, false
}

// EntryStart returns the global index of the first row of entry i.
func (t *Timeline) EntryStart(i int) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.entryStartLocked(i)
}

func (t *Timeline) entryStartLocked(i int) int {
	start := 0
	for j := 0; j < i && j < len(t.entries); j++ {
		start += t.entries[j].EntryStream().Len()
	}
	return start
}

// CanDeleteEntry reports whether the cursor has not yet reached entry i.
func (t *Timeline) CanDeleteEntry(i int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.canDeleteLocked(i)
}

func (t *Timeline) canDeleteLocked(i int) bool {
	if i < 0 || i >= len(t.entries) {
		return false
	}
	return t.cursor <= t.entryStartLocked(i)
}

// SetRender replaces all entries with a single render entry and rewinds
// the cursor. Replaced streams are closed.
func (t *Timeline) SetRender(s Stream) {
	entry := &RenderEntry{ID: uuid.NewString(), Stream: s}

	t.mu.Lock()
	old, oldUnsubs := t.entries, t.unsubs
	t.entries = []Entry{entry}
	t.unsubs = []func(){s.Subscribe(t.onStreamChange)}
	t.cursor = 0
	t.snapshot = nil
	t.mu.Unlock()

	t.log.Debug("render set", util.F("entry", entry.ID), util.F("dropped", len(old)))
	dispose(old, oldUnsubs)
	t.notify()
}

// AddAction appends an action entry. The cursor does not move.
func (t *Timeline) AddAction(name, args string, s Stream) {
	entry := &ActionEntry{ID: uuid.NewString(), Name: name, Args: args, Stream: s}

	t.mu.Lock()
	entries := make([]Entry, len(t.entries), len(t.entries)+1)
	copy(entries, t.entries)
	t.entries = append(entries, entry)
	t.unsubs = append(t.unsubs, s.Subscribe(t.onStreamChange))
	t.snapshot = nil
	t.mu.Unlock()

	t.log.Debug("action added", util.F("entry", entry.ID), util.F("action", name))
	t.notify()
}

// DeleteEntry removes entry i if the cursor has not advanced into it and
// closes its stream. It reports whether the entry was removed.
func (t *Timeline) DeleteEntry(i int) bool {
	t.mu.Lock()
	if !t.canDeleteLocked(i) {
		t.mu.Unlock()
		return false
	}
	removed, unsub := t.entries[i], t.unsubs[i]

	entries := make([]Entry, 0, len(t.entries)-1)
	entries = append(entries, t.entries[:i]...)
	t.entries = append(entries, t.entries[i+1:]...)
	unsubs := make([]func(), 0, len(t.unsubs)-1)
	unsubs = append(unsubs, t.unsubs[:i]...)
	t.unsubs = append(unsubs, t.unsubs[i+1:]...)
	t.snapshot = nil
	t.mu.Unlock()

	t.log.Debug("entry deleted", util.F("entry", removed.EntryID()), util.F("index", i))
	dispose([]Entry{removed}, []func(){unsub})
	t.notify()
	return true
}

// StepForward releases one more row. It reports false at the end of the
// timeline.
func (t *Timeline) StepForward() bool {
	t.mu.Lock()
	ok := t.stepLocked()
	if ok {
		t.snapshot = nil
	}
	t.mu.Unlock()

	if ok {
		t.notify()
	}
	return ok
}

func (t *Timeline) stepLocked() bool {
	if t.cursor >= t.totalLocked() {
		return false
	}
	pos, ok := t.positionLocked(t.cursor)
	if !ok {
		return false
	}
	t.entries[pos.EntryIndex].EntryStream().Release(pos.LocalChunk + 1)
	t.cursor++
	return true
}

// SkipToEntryEnd steps until the cursor reaches the end of the entry it
// currently addresses and returns the number of rows released. The
// addressed entry is the one holding the last released row, or the first
// entry when nothing was released, so a cursor sitting on an entry
// boundary does not move.
func (t *Timeline) SkipToEntryEnd() int {
	t.mu.Lock()
	addressed := t.cursor - 1
	if addressed < 0 {
		addressed = 0
	}
	pos, ok := t.positionLocked(addressed)
	if !ok {
		t.mu.Unlock()
		return 0
	}
	end := t.entryStartLocked(pos.EntryIndex) + t.entries[pos.EntryIndex].EntryStream().Len()

	steps := 0
	for t.cursor < end && t.stepLocked() {
		steps++
	}
	if steps > 0 {
		t.snapshot = nil
	}
	t.mu.Unlock()

	if steps > 0 {
		t.notify()
	}
	return steps
}

// Clear drops every entry, closing their streams, and rewinds the cursor.
func (t *Timeline) Clear() {
	t.mu.Lock()
	old, oldUnsubs := t.entries, t.unsubs
	t.entries = nil
	t.unsubs = nil
	t.cursor = 0
	t.snapshot = nil
	t.mu.Unlock()

	if len(old) > 0 {
		t.log.Debug("timeline cleared", util.F("dropped", len(old)))
	}
	dispose(old, oldUnsubs)
	t.notify()
}

func dispose(entries []Entry, unsubs []func()) {
	for _, unsub := range unsubs {
		unsub()
	}
	for _, e := range entries {
		if err := e.EntryStream().Close(); err != nil {
			util.LogDebugf("close stream of entry %s: %v", e.EntryID(), err)
		}
	}
}
