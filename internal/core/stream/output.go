package stream

import (
	"context"
	"io"
	"sync"
)

// Output is the downstream side of a Stream. It receives the raw bytes of
// released rows, in release order, and ends once the stream is finished
// and fully released.
//
// Next may be called from several goroutines; Read keeps a partially
// consumed frame and supports a single reader.
type Output struct {
	mu     sync.Mutex
	frames [][]byte
	closed bool
	err    error
	ready  chan struct{}

	pending []byte
}

func newOutput() *Output {
	return &Output{ready: make(chan struct{})}
}

func (o *Output) push(frame []byte) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return
	}
	o.frames = append(o.frames, frame)
	o.wakeLocked()
}

// finish closes the output. Frames already queued stay readable; err (or
// io.EOF when nil) is returned after them. Only the first call has effect.
func (o *Output) finish(err error) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return false
	}
	o.closed = true
	o.err = err
	o.wakeLocked()
	return true
}

func (o *Output) wakeLocked() {
	close(o.ready)
	o.ready = make(chan struct{})
}

// Closed reports whether the output has been closed, cleanly or not.
func (o *Output) Closed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.closed
}

// Next returns the next released frame. The frame must not be modified.
// After the last frame it returns io.EOF, or the error the stream ended with.
func (o *Output) Next(ctx context.Context) ([]byte, error) {
	for {
		o.mu.Lock()
		if len(o.frames) > 0 {
			frame := o.frames[0]
			o.frames[0] = nil
			o.frames = o.frames[1:]
			o.mu.Unlock()
			return frame, nil
		}
		if o.closed {
			err := o.err
			o.mu.Unlock()
			if err == nil {
				err = io.EOF
			}
			return nil, err
		}
		ready := o.ready
		o.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ready:
		}
	}
}

// Read implements io.Reader over the released byte sequence.
func (o *Output) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if len(o.pending) == 0 {
		frame, err := o.Next(context.Background())
		if err != nil {
			return 0, err
		}
		o.pending = frame
	}
	n := copy(p, o.pending)
	o.pending = o.pending[n:]
	return n, nil
}

var _ io.Reader = (*Output)(nil)
