package display

import (
	"io"
	"os"
	"strings"

	"github.com/penwyp/go-flight-stepper/internal/core/model"
	"github.com/penwyp/go-flight-stepper/internal/presentation/layout"
	"github.com/penwyp/go-flight-stepper/internal/util"
)

// TerminalDisplay draws frames on an ANSI terminal. Only lines that changed
// since the previous frame are rewritten.
type TerminalDisplay struct {
	out               io.Writer
	inAlternateScreen bool
	lastLayoutStyle   int
	previousScreen    []string
	isFirstRender     bool
}

func NewTerminalDisplay(out io.Writer) *TerminalDisplay {
	if out == nil {
		out = os.Stdout
	}
	return &TerminalDisplay{
		out:           out,
		isFirstRender: true,
	}
}

// EnterAlternateScreen switches to alternate screen buffer
func (td *TerminalDisplay) EnterAlternateScreen() {
	if td.inAlternateScreen {
		return
	}
	io.WriteString(td.out, util.EnterAltScreen+util.ClearScreen+util.MoveCursorHome+
		util.ClearScrollback+util.ResetScrollRegion+util.HideCursor)
	td.inAlternateScreen = true
	td.isFirstRender = true
}

// ExitAlternateScreen returns to normal screen buffer
func (td *TerminalDisplay) ExitAlternateScreen() {
	if !td.inAlternateScreen {
		return
	}
	io.WriteString(td.out, util.ClearScreen+util.MoveCursorHome+util.ShowCursor+util.ExitAltScreen)
	td.inAlternateScreen = false
}

// ClearScreen clears the screen and forces a full redraw next time
func (td *TerminalDisplay) ClearScreen() {
	io.WriteString(td.out, util.ClearScreen+util.MoveCursorHome)
	td.previousScreen = nil
}

// Render draws one frame using the layout selected in param.State.
func (td *TerminalDisplay) Render(param model.LayoutParam) {
	if param.Width == 0 || param.Height == 0 {
		param.Width, param.Height = layout.GetSizer().TerminalSize()
	}

	if td.isFirstRender || td.lastLayoutStyle != param.State.LayoutStyle {
		td.ClearScreen()
		td.isFirstRender = false
		td.lastLayoutStyle = param.State.LayoutStyle
	}

	lines := layout.GetLayoutStrategy(param.State.LayoutStyle).Render(param)
	td.smartRender(lines)
}

// smartRender rewrites changed lines and clears lines left over from a
// longer previous frame
func (td *TerminalDisplay) smartRender(lines []string) {
	var b strings.Builder
	for i, line := range lines {
		if i < len(td.previousScreen) && td.previousScreen[i] == line {
			continue
		}
		b.WriteString(util.MoveCursor(i+1, 1))
		b.WriteString(util.ClearLine)
		b.WriteString(line)
	}
	for i := len(lines); i < len(td.previousScreen); i++ {
		b.WriteString(util.MoveCursor(i+1, 1))
		b.WriteString(util.ClearLine)
	}
	if b.Len() > 0 {
		io.WriteString(td.out, b.String())
	}

	td.previousScreen = append(td.previousScreen[:0], lines...)
}
