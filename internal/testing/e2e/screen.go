package e2e

import (
	"strings"
)

// TerminalScreen is a virtual terminal that interprets the subset of ANSI
// sequences the stepper display emits.
type TerminalScreen struct {
	rows    int
	cols    int
	buffer  [][]rune
	cursorX int
	cursorY int
}

// NewTerminalScreen creates a blank screen of the given size
func NewTerminalScreen(rows, cols int) *TerminalScreen {
	s := &TerminalScreen{rows: rows, cols: cols, buffer: make([][]rune, rows)}
	for i := range s.buffer {
		s.buffer[i] = blankLine(cols)
	}
	return s
}

func blankLine(cols int) []rune {
	line := make([]rune, cols)
	for j := range line {
		line[j] = ' '
	}
	return line
}

// ParseTerminalOutput replays output on a fresh rows x cols screen
func ParseTerminalOutput(output string, rows, cols int) *TerminalScreen {
	screen := NewTerminalScreen(rows, cols)
	screen.Write([]byte(output))
	return screen
}

// Write feeds raw terminal output to the screen. It never fails.
func (s *TerminalScreen) Write(p []byte) (int, error) {
	runes := []rune(string(p))
	for i := 0; i < len(runes); {
		switch r := runes[i]; {
		case r == '\x1b' && i+1 < len(runes) && runes[i+1] == '[':
			i = s.handleCSI(runes, i+2)
		case r == '\r':
			s.cursorX = 0
			i++
		case r == '\n':
			s.lineFeed()
			i++
		case r == '\b':
			s.cursorX = max(0, s.cursorX-1)
			i++
		default:
			s.putChar(r)
			i++
		}
	}
	return len(p), nil
}

// handleCSI consumes one control sequence starting after "ESC[" and
// returns the index following it
func (s *TerminalScreen) handleCSI(runes []rune, i int) int {
	private := false
	if i < len(runes) && runes[i] == '?' {
		private = true
		i++
	}

	var params []int
	current, seen := 0, false
	for ; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r >= '0' && r <= '9':
			current = current*10 + int(r-'0')
			seen = true
		case r == ';':
			params = append(params, current)
			current, seen = 0, false
		default:
			if seen {
				params = append(params, current)
			}
			if !private {
				s.handleCommand(r, params)
			}
			return i + 1
		}
	}
	return i
}

func param(params []int, i, def int) int {
	if i < len(params) && params[i] > 0 {
		return params[i]
	}
	return def
}

func (s *TerminalScreen) handleCommand(cmd rune, params []int) {
	switch cmd {
	case 'H', 'f':
		s.cursorY = min(s.rows-1, param(params, 0, 1)-1)
		s.cursorX = min(s.cols-1, param(params, 1, 1)-1)
	case 'J':
		mode := 0
		if len(params) > 0 {
			mode = params[0]
		}
		switch mode {
		case 0:
			s.clearLineFrom(s.cursorX)
			for i := s.cursorY + 1; i < s.rows; i++ {
				s.buffer[i] = blankLine(s.cols)
			}
		case 2, 3:
			for i := range s.buffer {
				s.buffer[i] = blankLine(s.cols)
			}
		}
	case 'K':
		mode := 0
		if len(params) > 0 {
			mode = params[0]
		}
		if mode == 2 {
			s.clearLineFrom(0)
		} else {
			s.clearLineFrom(s.cursorX)
		}
	case 'A':
		s.cursorY = max(0, s.cursorY-param(params, 0, 1))
	case 'B':
		s.cursorY = min(s.rows-1, s.cursorY+param(params, 0, 1))
	case 'C':
		s.cursorX = min(s.cols-1, s.cursorX+param(params, 0, 1))
	case 'D':
		s.cursorX = max(0, s.cursorX-param(params, 0, 1))
	}
	// SGR ('m') and scroll regions ('r') do not change the text
}

func (s *TerminalScreen) clearLineFrom(x int) {
	for j := x; j < s.cols; j++ {
		s.buffer[s.cursorY][j] = ' '
	}
}

func (s *TerminalScreen) putChar(ch rune) {
	if s.cursorX >= s.cols {
		s.lineFeed()
	}
	s.buffer[s.cursorY][s.cursorX] = ch
	s.cursorX++
}

func (s *TerminalScreen) lineFeed() {
	s.cursorX = 0
	if s.cursorY < s.rows-1 {
		s.cursorY++
		return
	}
	copy(s.buffer, s.buffer[1:])
	s.buffer[s.rows-1] = blankLine(s.cols)
}

// Render returns the screen content with trailing blanks trimmed
func (s *TerminalScreen) Render() string {
	lines := make([]string, s.rows)
	for i := range s.buffer {
		lines[i] = s.GetLine(i)
	}
	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}

// GetLine returns one screen line without trailing blanks
func (s *TerminalScreen) GetLine(line int) string {
	if line < 0 || line >= s.rows {
		return ""
	}
	return strings.TrimRight(string(s.buffer[line]), " ")
}

// ContainsText checks if the screen shows text
func (s *TerminalScreen) ContainsText(text string) bool {
	return strings.Contains(s.Render(), text)
}
