package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/penwyp/go-flight-stepper/internal/util"
)

// ErrUnknownAction is returned when no response was recorded for an action.
var ErrUnknownAction = errors.New("no recorded response for action")

// Store serves recorded responses from a capture directory as row
// streams. It stands in for the live server that would produce them.
type Store struct {
	dir    string
	policy ChunkPolicy

	mu       sync.Mutex
	manifest *Manifest
	open     map[*Chunker]struct{}
	calls    map[string]int
	closed   bool
}

// Open loads the capture in dir.
func Open(dir string, policy ChunkPolicy) (*Store, error) {
	m, err := LoadManifest(dir)
	if err != nil {
		return nil, err
	}
	util.LogDebugf("capture %s loaded: %d recorded actions", m.Name, len(m.Actions))

	return &Store{
		dir:      dir,
		policy:   policy,
		manifest: m,
		open:     make(map[*Chunker]struct{}),
		calls:    make(map[string]int),
	}, nil
}

// Dir returns the capture directory.
func (s *Store) Dir() string {
	return s.dir
}

// Manifest returns the currently loaded manifest.
func (s *Store) Manifest() *Manifest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.manifest
}

// Actions lists the recorded action names.
func (s *Store) Actions() []string {
	return s.Manifest().ActionNames()
}

// Reload re-reads the manifest, keeping the old one when the new one is
// invalid.
func (s *Store) Reload() error {
	m, err := LoadManifest(s.dir)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.manifest = m
	s.calls = make(map[string]int)
	s.mu.Unlock()
	return nil
}

// Render opens the recorded render response.
func (s *Store) Render(ctx context.Context) (io.ReadCloser, error) {
	return s.openResponse(ctx, s.Manifest().Render)
}

// CallAction opens the response recorded for name. A recording whose args
// match exactly wins; otherwise recordings of that name are replayed in
// order, wrapping around.
func (s *Store) CallAction(ctx context.Context, name, args string) (io.ReadCloser, error) {
	s.mu.Lock()
	var candidates []ActionRecord
	response := ""
	for _, a := range s.manifest.Actions {
		if a.Name != name {
			continue
		}
		if args != "" && a.Args == args {
			response = a.Response
			break
		}
		candidates = append(candidates, a)
	}
	if response == "" && len(candidates) > 0 {
		response = candidates[s.calls[name]%len(candidates)].Response
		s.calls[name]++
	}
	s.mu.Unlock()

	if response == "" {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAction, name)
	}
	return s.openResponse(ctx, response)
}

func (s *Store) openResponse(ctx context.Context, rel string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rc, err := OpenFile(filepath.Join(s.dir, rel))
	if err != nil {
		return nil, err
	}
	c := NewChunker(rc, s.policy)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		_ = c.Close()
		return nil, ErrClosed
	}
	s.open[c] = struct{}{}
	c.onClose = func() {
		s.mu.Lock()
		delete(s.open, c)
		s.mu.Unlock()
	}
	return c, nil
}

// Close aborts every response still being read and refuses new ones.
func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	open := make([]*Chunker, 0, len(s.open))
	for c := range s.open {
		open = append(open, c)
	}
	s.mu.Unlock()

	var firstErr error
	for _, c := range open {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// OpenFile opens a response file, decompressing .zst files transparently.
func OpenFile(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open response: %w", err)
	}
	if !strings.HasSuffix(path, zstdExt) {
		return f, nil
	}

	dec, err := zstd.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open zstd response %s: %w", path, err)
	}
	return &zstdFile{dec: dec, file: f}, nil
}

type zstdFile struct {
	dec  *zstd.Decoder
	file *os.File
}

func (z *zstdFile) Read(p []byte) (int, error) {
	return z.dec.Read(p)
}

func (z *zstdFile) Close() error {
	z.dec.Close()
	return z.file.Close()
}
