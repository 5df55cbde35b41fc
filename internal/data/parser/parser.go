package parser

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/penwyp/go-flight-stepper/internal/core/model"
	"github.com/penwyp/go-flight-stepper/internal/util"
)

const fileReadSize = 64 * 1024

// OpenFunc opens a row stream file for reading.
type OpenFunc func(path string) (io.ReadCloser, error)

// Parser splits whole row stream files, several at a time.
type Parser struct {
	concurrency int
	open        OpenFunc
	mu          sync.Mutex
	cache       map[string][]model.Row
}

// ParseResult represents the result of parsing a single file.
type ParseResult struct {
	File  string
	Rows  []model.Row
	Error error
}

// NewParser creates a Parser. A nil open reads files with os.Open.
func NewParser(concurrency int, open OpenFunc) *Parser {
	if concurrency < 1 {
		concurrency = 1
	}
	if open == nil {
		open = func(path string) (io.ReadCloser, error) { return os.Open(path) }
	}
	return &Parser{
		concurrency: concurrency,
		open:        open,
		cache:       make(map[string][]model.Row),
	}
}

// ParseFile splits the file at path into rows. On a framing error the
// rows found before it are returned together with the error.
func (p *Parser) ParseFile(path string) ([]model.Row, error) {
	p.mu.Lock()
	if cached, ok := p.cache[path]; ok {
		p.mu.Unlock()
		return cached, nil
	}
	p.mu.Unlock()

	util.LogDebugf("Start parsing file: %s", path)

	rc, err := p.open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	rows, err := ReadAll(rc)
	if err != nil {
		util.LogDebugf("Failed to split file: %s - %v", path, err)
		return rows, err
	}

	p.mu.Lock()
	p.cache[path] = rows
	p.mu.Unlock()
	return rows, nil
}

// ReadAll reads r to the end, splitting rows as data arrives.
func ReadAll(r io.Reader) ([]model.Row, error) {
	var rows []model.Row
	var carry []byte
	buf := make([]byte, fileReadSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			carry = append(carry, buf[:n]...)
			out, perr := Split(carry, false)
			rows = append(rows, out.Rows...)
			if perr != nil {
				return rows, perr
			}
			carry = out.Remainder
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return rows, fmt.Errorf("read: %w", err)
		}
	}

	out, err := Split(carry, true)
	return append(rows, out.Rows...), err
}

// ParseFiles parses multiple files concurrently and returns a channel of ParseResult.
func (p *Parser) ParseFiles(files []string) <-chan ParseResult {
	start := time.Now()
	results := make(chan ParseResult, len(files))
	var wg sync.WaitGroup

	util.LogDebugf("Start concurrent parsing of %d files, concurrency: %d", len(files), p.concurrency)

	semaphore := make(chan struct{}, p.concurrency)

	for _, file := range files {
		wg.Add(1)
		go func(f string) {
			defer wg.Done()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			fileStart := time.Now()
			rows, err := p.ParseFile(f)
			if err != nil {
				util.LogDebugf("File parsing failed: %s, duration %v - %v", f, time.Since(fileStart), err)
			}

			results <- ParseResult{File: f, Rows: rows, Error: err}
		}(file)
	}

	go func() {
		wg.Wait()
		close(results)
		util.LogDebugf("Concurrent parsing finished, total duration: %v", time.Since(start))
	}()

	return results
}
