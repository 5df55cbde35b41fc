package stepper

import (
	"context"
	"io"
)

// Producer supplies row streams: the render response and the responses to
// actions. Closing it aborts every response still being read.
// *capture.Store implements it.
type Producer interface {
	Render(ctx context.Context) (io.ReadCloser, error)
	CallAction(ctx context.Context, name, args string) (io.ReadCloser, error)
	Actions() []string
	Close() error
}
