package stepper

import (
	"errors"
	"time"

	"github.com/penwyp/go-flight-stepper/internal/data/capture"
)

// Config contains configuration for a stepping session.
type Config struct {
	// Capture directory loaded by the interactive and replay commands
	CaptureDir string

	// Chunking applied to every recorded response
	Chunking capture.ChunkPolicy

	// Buffer size for each source read of a row stream
	ReadSize int

	// Upper bound for buffering an action response before it is added
	ActionTimeout time.Duration

	// Restart the session when capture files change
	Watch bool
}

// Validate checks the configuration and fills in defaults.
func (c *Config) Validate() error {
	if c.Chunking.Size < 0 || c.Chunking.MaxSize < 0 {
		return errors.New("chunk size must not be negative")
	}
	if c.Chunking.MaxSize > 0 && c.Chunking.MaxSize < c.Chunking.Size {
		return errors.New("max chunk size must not be below chunk size")
	}
	if c.Chunking.Delay < 0 {
		return errors.New("chunk delay must not be negative")
	}
	if c.ReadSize < 0 || c.ActionTimeout < 0 {
		return errors.New("read size and action timeout must not be negative")
	}
	if c.ReadSize == 0 {
		c.ReadSize = 32 * 1024
	}
	if c.ActionTimeout == 0 {
		c.ActionTimeout = 10 * time.Second
	}
	return nil
}
