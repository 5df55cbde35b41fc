package layout

import (
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"github.com/penwyp/go-flight-stepper/internal/util"
)

// Package-level singleton Sizer instance
var sharedSizer = &Sizer{}

const (
	defaultWidth  = 100
	defaultHeight = 30
)

type Sizer struct {
}

// displayWidth returns the cell width of s, ignoring color sequences
func (i Sizer) displayWidth(s string) int {
	return util.GetDisplayWidth(s)
}

// PadString pads a string to a specific display width
func (i Sizer) PadString(s string, width int, leftAlign bool) string {
	actualWidth := i.displayWidth(s)
	if actualWidth >= width {
		return s
	}

	padding := strings.Repeat(" ", width-actualWidth)
	if leftAlign {
		return s + padding
	}
	return padding + s
}

// Truncate cuts plain text to width cells, marking the cut with "…".
func (i Sizer) Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return runewidth.Truncate(s, width, "…")
}

// TerminalSize returns the size of stdout, or a fallback when stdout is
// not a terminal.
func (i Sizer) TerminalSize() (width, height int) {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return defaultWidth, defaultHeight
	}
	width, height, err := term.GetSize(fd)
	if err != nil || width < 40 || height < 10 {
		util.LogDebugf("terminal size unavailable (%dx%d, %v), using fallback", width, height, err)
		return defaultWidth, defaultHeight
	}
	return width, height
}

// GetSizer returns the shared sizer instance
func GetSizer() *Sizer {
	return sharedSizer
}
