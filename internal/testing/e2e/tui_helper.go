package e2e

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/creack/pty"
)

// TUITestSession runs the stepper binary inside a pseudo terminal
type TUITestSession struct {
	cmd    *exec.Cmd
	ptmx   *os.File
	cancel context.CancelFunc
	rows   int
	cols   int

	outputLock sync.RWMutex
	output     bytes.Buffer
	exited     chan struct{}
	waitErr    error
}

// TUITestConfig contains configuration for TUI testing
type TUITestConfig struct {
	Command string
	Args    []string
	WorkDir string
	Env     []string

	// Terminal size
	Rows uint16
	Cols uint16

	// Timeout for the entire session
	Timeout time.Duration
}

// BuildBinary compiles the main package in pkgDir into dir and returns the
// binary path.
func BuildBinary(pkgDir, dir string) (string, error) {
	binary := filepath.Join(dir, "go-flight-stepper")
	cmd := exec.Command("go", "build", "-o", binary, ".")
	cmd.Dir = pkgDir
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("build %s: %w: %s", pkgDir, err, out)
	}
	return binary, nil
}

// NewTUITestSession starts config.Command in a PTY of the configured size
func NewTUITestSession(config *TUITestConfig) (*TUITestSession, error) {
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	if config.Rows == 0 {
		config.Rows = 24
	}
	if config.Cols == 0 {
		config.Cols = 80
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.Timeout)
	cmd := exec.CommandContext(ctx, config.Command, config.Args...)
	cmd.Dir = config.WorkDir
	cmd.Env = append(os.Environ(), config.Env...)

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: config.Rows, Cols: config.Cols})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start PTY: %w", err)
	}

	s := &TUITestSession{
		cmd:    cmd,
		ptmx:   ptmx,
		cancel: cancel,
		rows:   int(config.Rows),
		cols:   int(config.Cols),
		exited: make(chan struct{}),
	}
	go s.captureOutput()
	go func() {
		s.waitErr = cmd.Wait()
		close(s.exited)
	}()
	return s, nil
}

func (s *TUITestSession) captureOutput() {
	buf := make([]byte, 4096)
	for {
		n, err := s.ptmx.Read(buf)
		if n > 0 {
			s.outputLock.Lock()
			s.output.Write(buf[:n])
			s.outputLock.Unlock()
		}
		if err != nil {
			return
		}
	}
}

// SendKey sends one key press
func (s *TUITestSession) SendKey(key byte) error {
	_, err := s.ptmx.Write([]byte{key})
	return err
}

// SendString sends raw input, e.g. an escape sequence for an arrow key
func (s *TUITestSession) SendString(str string) error {
	_, err := s.ptmx.Write([]byte(str))
	return err
}

// GetOutput returns everything the program wrote so far
func (s *TUITestSession) GetOutput() string {
	s.outputLock.RLock()
	defer s.outputLock.RUnlock()
	return s.output.String()
}

// Screenshot reconstructs the visible screen from the output
func (s *TUITestSession) Screenshot() string {
	return ParseTerminalOutput(s.GetOutput(), s.rows, s.cols).Render()
}

// ExpectScreen waits until the screen shows expected
func (s *TUITestSession) ExpectScreen(expected string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if strings.Contains(s.Screenshot(), expected) {
			return nil
		}
		time.Sleep(50 * time.Millisecond)
	}
	return fmt.Errorf("screen did not show %q within %v:\n%s", expected, timeout, s.Screenshot())
}

// WaitExit waits for the program to exit on its own
func (s *TUITestSession) WaitExit(timeout time.Duration) error {
	select {
	case <-s.exited:
		return s.waitErr
	case <-time.After(timeout):
		return fmt.Errorf("program still running after %v", timeout)
	}
}

// Stop quits with 'q' and falls back to killing the process
func (s *TUITestSession) Stop() error {
	_ = s.SendKey('q')
	err := s.WaitExit(time.Second)
	s.ForceStop()
	return err
}

// ForceStop terminates the program and releases the PTY
func (s *TUITestSession) ForceStop() {
	s.cancel()
	<-s.exited
	s.ptmx.Close()
}
