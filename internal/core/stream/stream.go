// Package stream makes a row stream steppable.
//
// A Stream buffers every row read from its source and forwards a row's
// bytes to its Output only once the row has been released, so a debugger
// can hand the downstream decoder one row at a time.
package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/penwyp/go-flight-stepper/internal/core/model"
	"github.com/penwyp/go-flight-stepper/internal/data/parser"
	"github.com/penwyp/go-flight-stepper/internal/util"
)

// ErrTerminated is reported to waiters and to the output when a stream is
// closed before it finished on its own.
var ErrTerminated = errors.New("stream terminated")

const defaultReadSize = 32 * 1024

type options struct {
	readSize int
	label    string
}

// Option configures a Stream.
type Option func(*options)

// WithReadSize sets the buffer size used for each source read.
func WithReadSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.readSize = n
		}
	}
}

// WithLabel names the stream in log entries.
func WithLabel(label string) Option {
	return func(o *options) {
		o.label = label
	}
}

// Stream buffers parsed rows from a source and releases them on demand.
type Stream struct {
	mu         sync.Mutex
	rows       []model.DisplayRow
	released   int
	done       bool
	terminated bool
	err        error
	changed    chan struct{}

	listeners    map[int]func()
	nextListener int

	src       io.Reader
	closeOnce sync.Once
	out       *Output
	finished  chan struct{}
	log       util.LoggerInterface
}

// New starts consuming src in the background and returns immediately.
func New(src io.Reader, opts ...Option) *Stream {
	o := options{readSize: defaultReadSize}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Stream{
		changed:   make(chan struct{}),
		listeners: make(map[int]func()),
		src:       src,
		out:       newOutput(),
		finished:  make(chan struct{}),
		log:       util.Component("stream").With(util.F("stream", o.label)),
	}
	go s.consume(o.readSize)
	return s
}

func (s *Stream) consume(readSize int) {
	defer close(s.finished)

	buf := make([]byte, readSize)
	var carry []byte
	for {
		n, err := s.src.Read(buf)
		if n > 0 {
			carry = append(carry, buf[:n]...)
			out, perr := parser.Split(carry, false)
			s.push(out.Rows)
			if perr != nil {
				s.finish(perr)
				return
			}
			carry = out.Remainder
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			s.finish(fmt.Errorf("read source: %w", err))
			return
		}
	}

	out, perr := parser.Split(carry, true)
	s.push(out.Rows)
	s.finish(perr)
}

func (s *Stream) push(rows []model.Row) {
	if len(rows) == 0 {
		return
	}

	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return
	}
	added := 0
	for _, row := range rows {
		dr := FormatRow(row)
		if dr.Display == "" {
			s.log.Debug("suppressed blank row", util.F("id", row.ID))
			continue
		}
		s.rows = append(s.rows, dr)
		added++
	}
	if added > 0 {
		s.wakeLocked()
	}
	s.mu.Unlock()

	if added > 0 {
		s.notify()
	}
}

// finish marks the source exhausted, recording err if it failed.
func (s *Stream) finish(err error) {
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return
	}
	s.done = true
	s.err = err
	total := len(s.rows)
	s.wakeLocked()
	s.closeOutputLocked()
	s.mu.Unlock()

	if err != nil {
		s.log.Warn("row stream failed", util.F("rows", total), util.F("error", err))
	} else {
		s.log.Debug("row stream buffered", util.F("rows", total))
	}
	s.notify()
}

// closeOutputLocked closes the output once the source is done and every
// buffered row has been released.
func (s *Stream) closeOutputLocked() {
	if s.done && s.released == len(s.rows) {
		s.out.finish(s.err)
	}
}

func (s *Stream) wakeLocked() {
	close(s.changed)
	s.changed = make(chan struct{})
}

// Release raises the released count to min(count, Len()) and forwards the
// newly released rows to the output. Lower or repeated counts are no-ops.
func (s *Stream) Release(count int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if count > len(s.rows) {
		count = len(s.rows)
	}
	for s.released < count {
		s.out.push(s.rows[s.released].Raw)
		s.released++
	}
	s.closeOutputLocked()
}

// Output returns the downstream byte sink.
func (s *Stream) Output() *Output {
	return s.out
}

// Rows returns a copy of the rows buffered so far.
func (s *Stream) Rows() []model.DisplayRow {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := make([]model.DisplayRow, len(s.rows))
	copy(rows, s.rows)
	return rows
}

// Len returns the number of rows buffered so far.
func (s *Stream) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

// Released returns how many rows have been forwarded to the output.
func (s *Stream) Released() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released
}

// Done reports whether the source has been exhausted, failed or the stream
// was closed.
func (s *Stream) Done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Err returns the recorded failure, if any.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Wait blocks until the source is exhausted and returns the recorded error.
func (s *Stream) Wait(ctx context.Context) error {
	for {
		s.mu.Lock()
		if s.done {
			err := s.err
			s.mu.Unlock()
			return err
		}
		changed := s.changed
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-changed:
		}
	}
}

// WaitRow returns buffered row i, waiting for it if necessary. It returns
// io.EOF when the source finished with fewer rows, the recorded error when
// it failed, and ErrTerminated when the stream was closed.
func (s *Stream) WaitRow(ctx context.Context, i int) (model.DisplayRow, error) {
	for {
		s.mu.Lock()
		if i < len(s.rows) {
			row := s.rows[i]
			s.mu.Unlock()
			return row, nil
		}
		if s.terminated {
			s.mu.Unlock()
			return model.DisplayRow{}, ErrTerminated
		}
		if s.done {
			err := s.err
			s.mu.Unlock()
			if err == nil {
				err = io.EOF
			}
			return model.DisplayRow{}, err
		}
		changed := s.changed
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return model.DisplayRow{}, ctx.Err()
		case <-changed:
		}
	}
}

// Follow calls fn with every row's display string as rows become
// available. It returns nil once the source is exhausted, or the first
// error from the stream, fn or ctx.
func (s *Stream) Follow(ctx context.Context, fn func(model.DisplayRow) error) error {
	for i := 0; ; i++ {
		row, err := s.WaitRow(ctx, i)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(row); err != nil {
			return err
		}
	}
}

// Subscribe registers fn to run whenever rows are buffered or the source
// finishes. fn runs on the stream's reader goroutine and must not block.
func (s *Stream) Subscribe(fn func()) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Stream) notify() {
	s.mu.Lock()
	fns := make([]func(), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// Close terminates the stream. Blocked waiters and the output receive
// ErrTerminated unless they already ended, and the source is closed when
// it implements io.Closer. Close does not wait for the reader goroutine.
func (s *Stream) Close() error {
	s.mu.Lock()
	if s.terminated {
		s.mu.Unlock()
		return nil
	}
	s.terminated = true
	if !s.done {
		s.done = true
		s.err = ErrTerminated
	}
	s.wakeLocked()
	s.out.finish(ErrTerminated)
	s.mu.Unlock()

	var err error
	s.closeOnce.Do(func() {
		if c, ok := s.src.(io.Closer); ok {
			err = c.Close()
		}
	})
	return err
}

// Finished is closed once the reader goroutine has exited.
func (s *Stream) Finished() <-chan struct{} {
	return s.finished
}
