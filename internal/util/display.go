package util

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"
)

// Terminal control sequences
const (
	ColorReset   = "\033[0m"
	ColorBlue    = "\033[34m"
	ColorCyan    = "\033[36m"
	ColorGreen   = "\033[32m"
	ColorYellow  = "\033[33m"
	ColorRed     = "\033[31m"
	ColorMagenta = "\033[35m"
	ColorBold    = "\033[1m"
	ColorDim     = "\033[2m"
	ColorInverse = "\033[7m"

	ClearScreen         = "\033[2J"     // Clear entire screen
	ClearLine           = "\033[2K"     // Clear entire line
	ClearLineFromCursor = "\033[0K"     // Clear from cursor to end of line
	ClearScrollback     = "\033[3J"     // Clear scrollback buffer
	ResetScrollRegion   = "\033[r"      // Reset scroll region
	MoveCursorHome      = "\033[H"      // Move cursor to home position
	HideCursor          = "\033[?25l"   // Hide cursor
	ShowCursor          = "\033[?25h"   // Show cursor
	EnterAltScreen      = "\033[?1049h" // Switch to the alternate screen buffer
	ExitAltScreen       = "\033[?1049l" // Return to the main screen buffer
)

// GetDisplayWidth returns the terminal cell width of text, ignoring ANSI
// color sequences.
func GetDisplayWidth(text string) int {
	return runewidth.StringWidth(StripANSI(text))
}

// Colorize wraps text in the given color sequences.
func Colorize(text string, colors ...string) string {
	if len(colors) == 0 {
		return text
	}
	return strings.Join(colors, "") + text + ColorReset
}

// FormatHeaderTitle formats main header titles (Magenta + Bold)
func FormatHeaderTitle(title string) string {
	return fmt.Sprintf("%s%s%s%s", ColorBold, ColorMagenta, title, ColorReset)
}

// MoveCursor returns ANSI sequence to move cursor to specific position
func MoveCursor(row, col int) string {
	return fmt.Sprintf("\033[%d;%dH", row, col)
}

// StripANSI removes CSI escape sequences.
func StripANSI(text string) string {
	if !strings.Contains(text, "\033[") {
		return text
	}
	var b strings.Builder
	b.Grow(len(text))
	for i := 0; i < len(text); i++ {
		if text[i] == '\033' && i+1 < len(text) && text[i+1] == '[' {
			j := i + 2
			for j < len(text) && (text[j] < 0x40 || text[j] > 0x7e) {
				j++
			}
			i = j
			continue
		}
		b.WriteByte(text[i])
	}
	return b.String()
}

var lineBreaks = strings.NewReplacer("\r\n", "\\n", "\n", "\\n", "\r", "\\r", "\t", "  ")

// SingleLine makes s safe to draw on one terminal line: line breaks become
// visible escapes and other control characters become dots
func SingleLine(s string) string {
	s = lineBreaks.Replace(s)
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return '·'
		}
		return r
	}, s)
}
