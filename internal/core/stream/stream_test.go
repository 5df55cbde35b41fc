package stream

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync/atomic"
	"testing"
	"testing/iotest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/penwyp/go-flight-stepper/internal/core/model"
	"github.com/penwyp/go-flight-stepper/internal/data/parser"
)

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func drain(t *testing.T, ctx context.Context, out *Output) ([]string, error) {
	t.Helper()
	var frames []string
	for {
		frame, err := out.Next(ctx)
		if err != nil {
			return frames, err
		}
		frames = append(frames, string(frame))
	}
}

func TestReleaseIsMonotonic(t *testing.T) {
	ctx := testContext(t)
	s := New(strings.NewReader("0:a\n1:b\n2:c\n"))
	require.NoError(t, s.Wait(ctx))
	require.Equal(t, 3, s.Len())

	s.Release(2)
	assert.Equal(t, 2, s.Released())
	s.Release(1)
	s.Release(2)
	assert.Equal(t, 2, s.Released())

	frame, err := s.Output().Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "0:a\n", string(frame))
	frame, err = s.Output().Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1:b\n", string(frame))
	assert.False(t, s.Output().Closed())

	s.Release(10)
	assert.Equal(t, 3, s.Released())
	frames, err := drain(t, ctx, s.Output())
	assert.Equal(t, []string{"2:c\n"}, frames)
	assert.ErrorIs(t, err, io.EOF)
}

func TestOutputClosesOnlyWhenDoneAndReleased(t *testing.T) {
	ctx := testContext(t)
	pr, pw := io.Pipe()
	s := New(pr)

	_, err := pw.Write([]byte("0:a\n1:b\n"))
	require.NoError(t, err)
	_, err = s.WaitRow(ctx, 1)
	require.NoError(t, err)

	s.Release(2)
	assert.False(t, s.Output().Closed(), "source still open")

	require.NoError(t, pw.Close())
	require.NoError(t, s.Wait(ctx))
	assert.True(t, s.Output().Closed())

	frames, err := drain(t, ctx, s.Output())
	assert.Equal(t, []string{"0:a\n", "1:b\n"}, frames)
	assert.ErrorIs(t, err, io.EOF)
}

func TestOutputWaitsForReleaseAfterSourceDone(t *testing.T) {
	ctx := testContext(t)
	s := New(strings.NewReader("0:a\n1:b\n"))
	require.NoError(t, s.Wait(ctx))

	assert.False(t, s.Output().Closed())
	s.Release(1)
	assert.False(t, s.Output().Closed())
	s.Release(2)
	assert.True(t, s.Output().Closed())
}

func TestEmptySourceClosesImmediately(t *testing.T) {
	ctx := testContext(t)
	s := New(strings.NewReader(""))
	require.NoError(t, s.Wait(ctx))

	assert.True(t, s.Output().Closed())
	_, err := s.Output().Next(ctx)
	assert.ErrorIs(t, err, io.EOF)
}

func TestParseErrorSurfacesAfterReleasedRows(t *testing.T) {
	ctx := testContext(t)
	s := New(strings.NewReader("0:a\n1:A4,ab"))

	err := s.Wait(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, parser.ErrTruncatedBinaryData)
	assert.True(t, s.Done())
	assert.Equal(t, 1, s.Len())
	assert.False(t, s.Output().Closed())

	s.Release(1)
	frames, err := drain(t, ctx, s.Output())
	assert.Equal(t, []string{"0:a\n"}, frames)
	assert.ErrorIs(t, err, parser.ErrTruncatedBinaryData)
}

func TestSourceReadErrorIsRecorded(t *testing.T) {
	ctx := testContext(t)
	boom := errors.New("worker crashed")
	s := New(io.MultiReader(strings.NewReader("0:a\n"), iotest.ErrReader(boom)))

	err := s.Wait(ctx)
	assert.ErrorIs(t, err, boom)

	row, err := s.WaitRow(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, "0:a", row.Display)

	_, err = s.WaitRow(ctx, 1)
	assert.ErrorIs(t, err, boom)

	s.Release(1)
	_, err = drain(t, ctx, s.Output())
	assert.ErrorIs(t, err, boom)
}

func TestWaitRowResumesOnNewRow(t *testing.T) {
	ctx := testContext(t)
	pr, pw := io.Pipe()
	s := New(pr)

	got := make(chan model.DisplayRow, 1)
	go func() {
		row, err := s.WaitRow(ctx, 0)
		if err == nil {
			got <- row
		}
		close(got)
	}()

	_, err := pw.Write([]byte("0:hel"))
	require.NoError(t, err)
	_, err = pw.Write([]byte("lo\n"))
	require.NoError(t, err)

	row, ok := <-got
	require.True(t, ok)
	assert.Equal(t, "0:hello", row.Display)
	assert.Equal(t, []byte("ello"), row.Payload)
	assert.Equal(t, byte('h'), row.Tag)
	require.NoError(t, pw.Close())
}

func TestCloseReleasesWaiters(t *testing.T) {
	ctx := testContext(t)
	pr, pw := io.Pipe()
	s := New(pr)

	errs := make(chan error, 1)
	go func() {
		_, err := s.WaitRow(ctx, 0)
		errs <- err
	}()

	require.NoError(t, s.Close())
	assert.ErrorIs(t, <-errs, ErrTerminated)
	assert.ErrorIs(t, s.Err(), ErrTerminated)

	_, err := s.Output().Next(ctx)
	assert.ErrorIs(t, err, ErrTerminated)

	_, err = pw.Write([]byte("0:a\n"))
	assert.ErrorIs(t, err, io.ErrClosedPipe)

	select {
	case <-s.Finished():
	case <-ctx.Done():
		t.Fatal("reader goroutine did not exit")
	}
	require.NoError(t, s.Close())
}

func TestOutputMatchesSourceBytes(t *testing.T) {
	ctx := testContext(t)
	input := "0:D{\"name\":\"App\"}\n1:T6,abcdef2:o3,\x01\n\x033:[\"$\",\"div\",null,{}]\n"
	s := New(iotest.OneByteReader(strings.NewReader(input)), WithReadSize(3))
	require.NoError(t, s.Wait(ctx))
	require.Equal(t, 4, s.Len())

	for i := 1; i <= s.Len(); i++ {
		s.Release(i)
	}

	var got bytes.Buffer
	_, err := io.Copy(&got, s.Output())
	require.NoError(t, err)
	assert.Equal(t, input, got.String())
}

func TestFollowYieldsDisplayStrings(t *testing.T) {
	ctx := testContext(t)
	s := New(strings.NewReader("0:I[\"client\"]\n1:A4,\xab\xcd\xab\xcd2:T4,test"))

	var lines []string
	err := s.Follow(ctx, func(row model.DisplayRow) error {
		lines = append(lines, row.Display)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{
		`0:I["client"]`,
		"1:A4, ab cd ab cd",
		"2:T4,test",
	}, lines)
	assert.Equal(t, 0, s.Released(), "display is independent of release")
}

func TestSubscribeNotifiesOnBuffering(t *testing.T) {
	ctx := testContext(t)
	pr, pw := io.Pipe()
	s := New(pr)

	var calls atomic.Int32
	unsubscribe := s.Subscribe(func() { calls.Add(1) })

	_, err := pw.Write([]byte("0:a\n"))
	require.NoError(t, err)
	_, err = s.WaitRow(ctx, 0)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return calls.Load() >= 1 }, time.Second, 5*time.Millisecond)

	unsubscribe()
	before := calls.Load()
	require.NoError(t, pw.Close())
	require.NoError(t, s.Wait(ctx))
	<-s.Finished()
	assert.Equal(t, before, calls.Load())
}

func TestFormatRow(t *testing.T) {
	long := make([]byte, 20)
	for i := range long {
		long[i] = byte(i)
	}

	tests := []struct {
		name    string
		row     model.Row
		display string
		offset  int
	}{
		{
			name:    "text row trimmed",
			row:     model.Row{ID: "1", Tag: 'D', Payload: []byte("  x  "), Raw: []byte("1:D  x  \n")},
			display: "1:D  x",
			offset:  3,
		},
		{
			name: "binary row truncated preview",
			row: model.Row{ID: "2", Tag: 'A', Framing: model.FramingBinary, Payload: long,
				Raw: append([]byte("2:A14,"), long...), LengthPrefixed: true},
			display: "2:A14, 00 01 02 03 04 05 06 07 08 09 0a 0b 0c 0d 0e 0f …",
			offset:  6,
		},
		{
			name:    "invalid utf8 replaced",
			row:     model.Row{ID: "3", Tag: 'T', Payload: []byte{0xff}, Raw: []byte("3:T1,\xff"), LengthPrefixed: true},
			display: "3:T1,�",
			offset:  5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dr := FormatRow(tt.row)
			assert.Equal(t, tt.display, dr.Display)
			assert.Equal(t, tt.offset, dr.Offset)
		})
	}
}

func TestHexPreview(t *testing.T) {
	assert.Equal(t, "", HexPreview(nil, 16))
	assert.Equal(t, "de ad", HexPreview([]byte{0xde, 0xad}, 16))
	assert.Equal(t, "de …", HexPreview([]byte{0xde, 0xad}, 1))
}
