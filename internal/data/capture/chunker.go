package capture

import (
	"errors"
	"io"
	"math/rand"
	"sync"
	"time"
)

// ErrClosed is returned by readers of a closed store or chunker.
var ErrClosed = errors.New("capture source closed")

// ChunkPolicy controls how a recorded response is cut into reads, so a
// replay exercises arbitrary chunk boundaries instead of whole files.
type ChunkPolicy struct {
	Size    int           // bytes per read; 0 means no limit
	MaxSize int           // when > Size, each read size is drawn from [Size, MaxSize]
	Seed    int64         // seed for drawn sizes
	Delay   time.Duration // pause before each read
}

// Chunker limits each Read of the wrapped reader according to a policy.
type Chunker struct {
	r      io.Reader
	closer io.Closer
	policy ChunkPolicy
	rng    *rand.Rand

	closed  chan struct{}
	once    sync.Once
	onClose func()
}

// NewChunker wraps rc. Closing the chunker closes rc and aborts a pending
// delay.
func NewChunker(rc io.ReadCloser, policy ChunkPolicy) *Chunker {
	return &Chunker{
		r:      rc,
		closer: rc,
		policy: policy,
		rng:    rand.New(rand.NewSource(policy.Seed)),
		closed: make(chan struct{}),
	}
}

func (c *Chunker) nextSize() int {
	size := c.policy.Size
	if c.policy.MaxSize > size {
		lo := size
		if lo < 1 {
			lo = 1
		}
		size = lo + c.rng.Intn(c.policy.MaxSize-lo+1)
	}
	return size
}

func (c *Chunker) Read(p []byte) (int, error) {
	select {
	case <-c.closed:
		return 0, ErrClosed
	default:
	}

	if c.policy.Delay > 0 {
		timer := time.NewTimer(c.policy.Delay)
		select {
		case <-c.closed:
			timer.Stop()
			return 0, ErrClosed
		case <-timer.C:
		}
	}

	if n := c.nextSize(); n > 0 && n < len(p) {
		p = p[:n]
	}
	return c.r.Read(p)
}

func (c *Chunker) Close() error {
	var err error
	c.once.Do(func() {
		close(c.closed)
		err = c.closer.Close()
		if c.onClose != nil {
			c.onClose()
		}
	})
	return err
}
