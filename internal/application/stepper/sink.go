package stepper

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"

	"github.com/penwyp/go-flight-stepper/internal/core/model"
	"github.com/penwyp/go-flight-stepper/internal/core/stream"
)

// sink plays the downstream consumer of one stream: it drains the stream
// output and records what arrived.
type sink struct {
	stream *stream.Stream

	mu       sync.Mutex
	frames   int
	received bytes.Buffer
	done     bool
	err      error
	changed  chan struct{}
	onChange func()
}

func newSink(s *stream.Stream, onChange func()) *sink {
	k := &sink{stream: s, changed: make(chan struct{}), onChange: onChange}
	go k.run()
	return k
}

func (k *sink) run() {
	out := k.stream.Output()
	for {
		frame, err := out.Next(context.Background())
		k.mu.Lock()
		if err != nil {
			k.done = true
			if !errors.Is(err, io.EOF) {
				k.err = err
			}
		} else {
			k.frames++
			k.received.Write(frame)
		}
		close(k.changed)
		k.changed = make(chan struct{})
		k.mu.Unlock()

		if k.onChange != nil {
			k.onChange()
		}
		if err != nil {
			return
		}
	}
}

func (k *sink) state() model.ConsumerState {
	k.mu.Lock()
	defer k.mu.Unlock()
	return model.ConsumerState{Frames: k.frames, Bytes: k.received.Len(), Done: k.done, Err: k.err}
}

// data returns a copy of every byte received so far.
func (k *sink) data() []byte {
	k.mu.Lock()
	defer k.mu.Unlock()
	return bytes.Clone(k.received.Bytes())
}

// settle waits until every released frame has been consumed and, when the
// output is closed, until the end was observed.
func (k *sink) settle(ctx context.Context) error {
	for {
		k.mu.Lock()
		released := k.stream.Released()
		caughtUp := k.done || (k.frames >= released && !k.stream.Output().Closed())
		changed := k.changed
		k.mu.Unlock()
		if caughtUp {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-changed:
		}
	}
}
