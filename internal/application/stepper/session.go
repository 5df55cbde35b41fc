package stepper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/penwyp/go-flight-stepper/internal/core/model"
	"github.com/penwyp/go-flight-stepper/internal/core/stream"
	"github.com/penwyp/go-flight-stepper/internal/core/timeline"
	"github.com/penwyp/go-flight-stepper/internal/util"
)

// ErrClosed is returned by a Session after Close.
var ErrClosed = errors.New("session closed")

// Session drives one debugging session: it turns producer responses into
// streams on a timeline and attaches a downstream consumer to each.
type Session struct {
	config   Config
	producer Producer
	timeline *timeline.Timeline
	log      util.LoggerInterface

	mu        sync.Mutex
	sinks     map[*stream.Stream]*sink
	listeners []func()
	closed    bool
}

// NewSession creates a session over producer. The timeline stays empty
// until Restart.
func NewSession(producer Producer, config Config) (*Session, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &Session{
		config:   config,
		producer: producer,
		timeline: timeline.New(),
		log:      util.Component("session"),
		sinks:    make(map[*stream.Stream]*sink),
	}, nil
}

// Timeline exposes the session timeline, mainly for subscriptions.
func (s *Session) Timeline() *timeline.Timeline {
	return s.timeline
}

// Actions lists the actions the producer can answer.
func (s *Session) Actions() []string {
	return s.producer.Actions()
}

// Restart clears the timeline and loads a fresh render response.
func (s *Session) Restart(ctx context.Context) error {
	if s.isClosed() {
		return ErrClosed
	}
	s.timeline.Clear()

	src, err := s.producer.Render(ctx)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	st := s.newStream(src, "render")
	s.timeline.SetRender(st)
	s.log.Info("session restarted")
	return nil
}

// AddAction calls the named action and appends its response once it is
// fully buffered. A response that fails while buffering is discarded.
func (s *Session) AddAction(ctx context.Context, name, args string) error {
	if s.isClosed() {
		return ErrClosed
	}

	src, err := s.producer.CallAction(ctx, name, args)
	if err != nil {
		return fmt.Errorf("call action %s: %w", name, err)
	}
	st := s.newStream(src, "action:"+name)

	waitCtx, cancel := context.WithTimeout(ctx, s.config.ActionTimeout)
	defer cancel()
	if err := st.Wait(waitCtx); err != nil {
		s.dropStream(st)
		return fmt.Errorf("buffer action %s: %w", name, err)
	}

	s.timeline.AddAction(name, args, st)
	s.log.Info("action added", util.F("action", name), util.F("rows", st.Len()))
	return nil
}

// Step releases one more row.
func (s *Session) Step() bool {
	return s.timeline.StepForward()
}

// Skip releases the rest of the current entry.
func (s *Session) Skip() int {
	return s.timeline.SkipToEntryEnd()
}

// SkipEntry releases the rest of the current entry or, when the cursor
// sits on an entry boundary, the whole next entry. It returns the number of
// rows released.
func (s *Session) SkipEntry() int {
	if n := s.timeline.SkipToEntryEnd(); n > 0 {
		return n
	}
	if !s.timeline.StepForward() {
		return 0
	}
	return 1 + s.timeline.SkipToEntryEnd()
}

// Delete removes entry i if the cursor has not reached it.
func (s *Session) Delete(i int) bool {
	ok := s.timeline.DeleteEntry(i)
	if ok {
		s.pruneSinks()
	}
	return ok
}

// Views returns the display model of every entry.
func (s *Session) Views() []model.EntryView {
	s.pruneSinks()

	s.mu.Lock()
	states := make(map[timeline.Stream]model.ConsumerState, len(s.sinks))
	for st, k := range s.sinks {
		states[st] = k.state()
	}
	s.mu.Unlock()

	return BuildViews(s.timeline.Snapshot(), states)
}

// Received returns the bytes the consumer of entry i has received.
func (s *Session) Received(i int) []byte {
	entries := s.timeline.Entries()
	if i < 0 || i >= len(entries) {
		return nil
	}
	st, _ := entries[i].EntryStream().(*stream.Stream)
	s.mu.Lock()
	k := s.sinks[st]
	s.mu.Unlock()
	if k == nil {
		return nil
	}
	return k.data()
}

// WaitBuffered waits until every entry's source is exhausted. Failures
// recorded by a stream are not returned; they reach its consumer.
func (s *Session) WaitBuffered(ctx context.Context) error {
	for _, e := range s.timeline.Entries() {
		st, ok := e.EntryStream().(*stream.Stream)
		if !ok {
			continue
		}
		if err := st.Wait(ctx); err != nil && ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return nil
}

// Settle waits until the consumer of every entry has received all rows
// released so far.
func (s *Session) Settle(ctx context.Context) error {
	s.mu.Lock()
	sinks := make([]*sink, 0, len(s.sinks))
	for _, k := range s.sinks {
		sinks = append(sinks, k)
	}
	s.mu.Unlock()

	for _, k := range sinks {
		if err := k.settle(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Close clears the timeline and closes the producer, terminating every
// response still in flight.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.timeline.Clear()
	s.pruneSinks()
	return s.producer.Close()
}

// Subscribe registers fn to run after timeline changes and whenever a
// consumer receives data. fn may run on any goroutine.
func (s *Session) Subscribe(fn func()) {
	s.timeline.Subscribe(fn)
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

func (s *Session) consumerChanged() {
	s.mu.Lock()
	fns := append([]func(){}, s.listeners...)
	s.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (s *Session) newStream(src io.Reader, label string) *stream.Stream {
	st := stream.New(src, stream.WithReadSize(s.config.ReadSize), stream.WithLabel(label))
	k := newSink(st, s.consumerChanged)

	s.mu.Lock()
	s.sinks[st] = k
	s.mu.Unlock()
	return st
}

func (s *Session) dropStream(st *stream.Stream) {
	if err := st.Close(); err != nil {
		s.log.Debugf("close dropped stream: %v", err)
	}
	s.mu.Lock()
	delete(s.sinks, st)
	s.mu.Unlock()
}

// pruneSinks forgets finished consumers of streams that are not on the
// timeline.
func (s *Session) pruneSinks() {
	live := make(map[timeline.Stream]bool)
	for _, e := range s.timeline.Entries() {
		live[e.EntryStream()] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for st, k := range s.sinks {
		if !live[st] && k.state().Done {
			delete(s.sinks, st)
		}
	}
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
