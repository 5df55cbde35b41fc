package timeline

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/penwyp/go-flight-stepper/internal/core/model"
	"github.com/penwyp/go-flight-stepper/internal/core/stream"
)

// fakeStream is a Stream with a fixed, adjustable row count.
type fakeStream struct {
	mu        sync.Mutex
	n         int
	released  int
	releases  []int
	closed    bool
	listeners []func()
}

func newFake(n int) *fakeStream { return &fakeStream{n: n} }

func (f *fakeStream) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.n
}

func (f *fakeStream) Rows() []model.DisplayRow {
	rows := make([]model.DisplayRow, f.Len())
	for i := range rows {
		rows[i].Display = fmt.Sprintf("%d:row", i)
	}
	return rows
}

func (f *fakeStream) Release(count int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.releases = append(f.releases, count)
	if count > f.n {
		count = f.n
	}
	if count > f.released {
		f.released = count
	}
}

func (f *fakeStream) Subscribe(fn func()) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listeners = append(f.listeners, fn)
	idx := len(f.listeners) - 1
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.listeners[idx] = nil
	}
}

func (f *fakeStream) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeStream) grow(n int) {
	f.mu.Lock()
	f.n += n
	fns := append([]func(){}, f.listeners...)
	f.mu.Unlock()
	for _, fn := range fns {
		if fn != nil {
			fn()
		}
	}
}

func (f *fakeStream) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func build(counts ...int) (*Timeline, []*fakeStream) {
	tl := New()
	streams := make([]*fakeStream, len(counts))
	for i, n := range counts {
		streams[i] = newFake(n)
		if i == 0 {
			tl.SetRender(streams[i])
		} else {
			tl.AddAction(fmt.Sprintf("action%d", i), "0=[]", streams[i])
		}
	}
	return tl, streams
}

func TestPositionMapping(t *testing.T) {
	tl, _ := build(2, 3, 1)

	tests := []struct {
		global int
		want   Position
		ok     bool
	}{
		{0, Position{0, 0}, true},
		{1, Position{0, 1}, true},
		{2, Position{1, 0}, true},
		{3, Position{1, 1}, true},
		{5, Position{2, 0}, true},
		{6, Position{}, false},
		{-1, Position{}, false},
	}
	for _, tt := range tests {
		got, ok := tl.Position(tt.global)
		assert.Equal(t, tt.ok, ok, "global %d", tt.global)
		assert.Equal(t, tt.want, got, "global %d", tt.global)
	}

	assert.Equal(t, 0, tl.EntryStart(0))
	assert.Equal(t, 2, tl.EntryStart(1))
	assert.Equal(t, 5, tl.EntryStart(2))
	assert.Equal(t, 6, tl.TotalChunks())
}

func TestPositionSkipsEmptyEntries(t *testing.T) {
	tl, _ := build(1, 0, 2)

	pos, ok := tl.Position(1)
	require.True(t, ok)
	assert.Equal(t, Position{EntryIndex: 2, LocalChunk: 0}, pos)
}

func TestStepForwardReleasesOneRow(t *testing.T) {
	tl, streams := build(2, 1)

	require.True(t, tl.StepForward())
	require.True(t, tl.StepForward())
	require.True(t, tl.StepForward())
	assert.False(t, tl.StepForward(), "past the end")

	assert.Equal(t, 3, tl.Cursor())
	assert.Equal(t, []int{1, 2}, streams[0].releases)
	assert.Equal(t, []int{1}, streams[1].releases)
	assert.True(t, tl.Snapshot().IsAtEnd)
}

func TestStepForwardOnEmptyTimeline(t *testing.T) {
	tl := New()

	assert.False(t, tl.StepForward())
	assert.Equal(t, 0, tl.SkipToEntryEnd())

	snap := tl.Snapshot()
	assert.True(t, snap.IsAtStart)
	assert.True(t, snap.IsAtEnd)
	assert.Equal(t, 0, snap.TotalChunks)
}

func TestDeleteEntryGuard(t *testing.T) {
	tl, streams := build(2, 1, 1)

	assert.True(t, tl.CanDeleteEntry(1))
	tl.StepForward()
	tl.StepForward()
	assert.Equal(t, 2, tl.Cursor())
	assert.True(t, tl.CanDeleteEntry(1), "cursor at the entry start")

	tl.StepForward()
	assert.Equal(t, 3, tl.Cursor())
	assert.False(t, tl.CanDeleteEntry(1))
	assert.False(t, tl.DeleteEntry(1))
	assert.False(t, tl.DeleteEntry(0))
	assert.False(t, tl.DeleteEntry(7))
	assert.Len(t, tl.Entries(), 3)

	require.True(t, tl.DeleteEntry(2))
	assert.Len(t, tl.Entries(), 2)
	assert.Equal(t, 3, tl.Cursor())
	assert.True(t, streams[2].isClosed())
	assert.False(t, streams[1].isClosed())
}

func TestDeleteEntryBeforeCursorAdvances(t *testing.T) {
	tl, streams := build(2, 1, 1)
	tl.StepForward()

	require.True(t, tl.DeleteEntry(1))
	entries := tl.Entries()
	require.Len(t, entries, 2)
	assert.Same(t, streams[2], entries[1].EntryStream())
	assert.Equal(t, 1, tl.Cursor())
}

func TestAddActionKeepsCursor(t *testing.T) {
	tl, _ := build(1)
	tl.StepForward()
	require.True(t, tl.Snapshot().IsAtEnd)

	tl.AddAction("like", "0=[1]", newFake(2))

	snap := tl.Snapshot()
	assert.Equal(t, 1, snap.Cursor)
	assert.Equal(t, 3, snap.TotalChunks)
	assert.False(t, snap.IsAtEnd)
	action, ok := snap.Entries[1].(*ActionEntry)
	require.True(t, ok)
	assert.Equal(t, "like", action.Name)
	assert.Equal(t, "0=[1]", action.Args)
	assert.NotEmpty(t, action.ID)
	assert.Equal(t, "Action: like", Label(action))
}

func TestSkipToEntryEnd(t *testing.T) {
	tl, streams := build(3, 2)

	assert.Equal(t, 3, tl.SkipToEntryEnd())
	assert.Equal(t, 3, tl.Cursor())
	assert.Equal(t, 0, tl.SkipToEntryEnd(), "already at an entry boundary")

	tl.StepForward()
	assert.Equal(t, 1, tl.SkipToEntryEnd())
	assert.Equal(t, 5, tl.Cursor())
	assert.Equal(t, 0, tl.SkipToEntryEnd(), "at the timeline end")
	assert.Equal(t, []int{1, 2}, streams[1].releases)
}

func TestSetRenderReplacesEntries(t *testing.T) {
	tl, streams := build(2, 1)
	tl.StepForward()

	next := newFake(4)
	tl.SetRender(next)

	entries := tl.Entries()
	require.Len(t, entries, 1)
	_, isRender := entries[0].(*RenderEntry)
	assert.True(t, isRender)
	assert.Equal(t, 0, tl.Cursor())
	assert.True(t, streams[0].isClosed())
	assert.True(t, streams[1].isClosed())
	assert.False(t, next.isClosed())
}

func TestClear(t *testing.T) {
	tl, streams := build(2, 1)
	tl.StepForward()

	tl.Clear()

	assert.Empty(t, tl.Entries())
	assert.Equal(t, 0, tl.Cursor())
	for _, s := range streams {
		assert.True(t, s.isClosed())
	}
}

func TestSnapshotIsCachedUntilChange(t *testing.T) {
	tl, streams := build(2)

	first := tl.Snapshot()
	assert.Same(t, first, tl.Snapshot())

	tl.StepForward()
	second := tl.Snapshot()
	assert.NotSame(t, first, second)
	assert.Equal(t, 0, first.Cursor, "old snapshots are not mutated")
	assert.Equal(t, 1, second.Cursor)

	streams[0].grow(2)
	third := tl.Snapshot()
	assert.NotSame(t, second, third)
	assert.Equal(t, 4, third.TotalChunks)

	assert.False(t, tl.DeleteEntry(0))
	assert.Same(t, third, tl.Snapshot(), "refused mutation keeps the snapshot")
}

func TestSubscribeNotifies(t *testing.T) {
	tl, streams := build(2)

	calls := 0
	unsubscribe := tl.Subscribe(func() {
		calls++
		_ = tl.Snapshot()
	})

	tl.StepForward()
	tl.AddAction("a", "", newFake(1))
	streams[0].grow(1)
	assert.Equal(t, 3, calls)

	unsubscribe()
	tl.StepForward()
	assert.Equal(t, 3, calls)
}

func TestDeletedStreamStopsNotifying(t *testing.T) {
	tl, streams := build(1, 1)

	calls := 0
	tl.Subscribe(func() { calls++ })
	require.True(t, tl.DeleteEntry(1))
	calls = 0

	streams[1].grow(1)
	assert.Equal(t, 0, calls)
}

func TestTimelineWithBufferedStreams(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	render := stream.New(strings.NewReader("0:[\"$\",\"div\",null,{}]\n1:D{\"name\":\"App\"}\n"))
	action := stream.New(strings.NewReader("0:{\"a\":\"$@1\"}\n1:T3,yes"))
	require.NoError(t, render.Wait(ctx))
	require.NoError(t, action.Wait(ctx))

	tl := New()
	tl.SetRender(render)
	tl.AddAction("submit", "0=[\"hi\"]", action)
	require.Equal(t, 4, tl.TotalChunks())

	tl.SkipToEntryEnd()
	out, err := io.ReadAll(render.Output())
	require.NoError(t, err)
	assert.Equal(t, "0:[\"$\",\"div\",null,{}]\n1:D{\"name\":\"App\"}\n", string(out))

	tl.StepForward()
	frame, err := action.Output().Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "0:{\"a\":\"$@1\"}\n", string(frame))
	assert.False(t, action.Output().Closed())

	tl.Clear()
	_, err = action.Output().Next(ctx)
	assert.ErrorIs(t, err, stream.ErrTerminated)
}
