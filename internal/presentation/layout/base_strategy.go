package layout

import (
	"fmt"
	"strings"

	"github.com/penwyp/go-flight-stepper/internal/core/model"
	"github.com/penwyp/go-flight-stepper/internal/util"
)

// BaseStrategy provides the frame pieces shared by all layouts
type BaseStrategy struct {
}

// GetSizer returns the shared sizer instance
func (b *BaseStrategy) GetSizer() *Sizer {
	return sharedSizer
}

// SeparatorLine creates a separator line of the given width
func (b *BaseStrategy) SeparatorLine(width int) string {
	return util.Colorize(strings.Repeat("─", width), util.ColorDim)
}

// Header returns the title and cursor status lines
func (b *BaseStrategy) Header(param model.LayoutParam) []string {
	title := param.Title
	if title == "" {
		title = "Flight Stepper"
	}

	position := fmt.Sprintf("row %d / %d", param.Cursor, param.TotalChunks)
	switch {
	case param.TotalChunks == 0:
		position = "no rows"
	case param.IsAtEnd:
		position += "  (end)"
	case param.IsAtStart:
		position += "  (start)"
	}

	return []string{
		util.FormatHeaderTitle(b.GetSizer().Truncate(title, param.Width)),
		util.Colorize(position, util.ColorCyan),
		b.SeparatorLine(param.Width),
	}
}

// EntryHeader returns the heading line of one entry
func (b *BaseStrategy) EntryHeader(index int, v model.EntryView, param model.LayoutParam) string {
	marker := " "
	if index == param.State.Selected {
		marker = ">"
	}

	color := util.ColorDim
	switch {
	case v.IsActive:
		color = util.ColorYellow
	case v.IsDone:
		color = util.ColorGreen
	}

	label := fmt.Sprintf("%s %d. %s", marker, index+1, v.Label)
	if v.Args != "" {
		label += "  " + v.Args
	}
	status := fmt.Sprintf("[%d rows, %s received", len(v.Rows), util.FormatBytes(int64(v.Consumer.Bytes)))
	if v.Consumer.Err != nil {
		status += ", error: " + v.Consumer.Err.Error()
	} else if v.Consumer.Done {
		status += ", closed"
	}
	status += "]"
	if v.CanDelete && v.Kind == model.KindAction {
		status += " (d: delete)"
	}

	sizer := b.GetSizer()
	if sizer.displayWidth(status) > param.Width/2 {
		status = sizer.Truncate(status, param.Width/2)
	}
	label = sizer.Truncate(label, param.Width-sizer.displayWidth(status)-1)
	return util.Colorize(sizer.PadString(label, param.Width-sizer.displayWidth(status), true), util.ColorBold, color) + status
}

// RowLine renders one row colored by its state relative to the cursor
func (b *BaseStrategy) RowLine(v model.EntryView, i int, param model.LayoutParam) string {
	text := b.GetSizer().Truncate(util.SingleLine(v.Rows[i].Display), param.Width-4)
	switch v.RowState(i, param.Cursor) {
	case model.RowDone:
		return "    " + util.Colorize(text, util.ColorGreen)
	case model.RowNext:
		return "  " + util.Colorize("▶ "+text, util.ColorBold, util.ColorInverse)
	default:
		return "    " + util.Colorize(text, util.ColorDim)
	}
}

// Footer returns the key hints, picker or dialog, and status message
func (b *BaseStrategy) Footer(param model.LayoutParam) []string {
	sizer := b.GetSizer()
	fit := func(text string, colors ...string) string {
		return util.Colorize(sizer.Truncate(text, param.Width), colors...)
	}
	lines := []string{b.SeparatorLine(param.Width)}

	state := param.State
	switch {
	case state.ConfirmDialog != nil:
		lines = append(lines,
			fit(state.ConfirmDialog.Title, util.ColorBold, util.ColorYellow),
			fit(state.ConfirmDialog.Message+"  [y/n]"))
	case state.PickingAction:
		for _, line := range b.ActionPicker(param.Actions) {
			lines = append(lines, fit(line))
		}
	case state.ShowHelp:
		for _, line := range HelpLines() {
			lines = append(lines, fit(line))
		}
	default:
		lines = append(lines, fit("space/→ step  s skip  a action  d delete  r restart  t layout  h help  q quit", util.ColorDim))
	}

	if state.StatusMessage != "" {
		lines = append(lines, fit(state.StatusMessage, util.ColorRed))
	}
	return lines
}

// ActionPicker lists the first nine actions with their number keys
func (b *BaseStrategy) ActionPicker(actions []string) []string {
	if len(actions) == 0 {
		return []string{"No recorded actions. esc: cancel"}
	}
	lines := []string{"Add action (1-9, esc to cancel):"}
	for i, name := range actions {
		if i == 9 {
			lines = append(lines, fmt.Sprintf("  … %d more", len(actions)-9))
			break
		}
		lines = append(lines, fmt.Sprintf("  %d  %s", i+1, name))
	}
	return lines
}

// HelpLines describes every key binding
func HelpLines() []string {
	return []string{
		"space, →, n   release the next row",
		"s             release the rest of the current entry",
		"a             add an action response",
		"↑ ↓           select an entry",
		"d             delete the selected entry",
		"r             restart from the render response",
		"t             switch layout",
		"h             toggle help",
		"q, esc        quit",
	}
}

// Fit keeps header and footer and trims the body to the screen height,
// scrolling so that line focus stays visible.
func Fit(header, body, footer []string, focus, height int) []string {
	room := height - len(header) - len(footer)
	if room < 1 {
		room = 1
	}

	start := 0
	if len(body) > room {
		start = focus - room/2
		if start < 0 {
			start = 0
		}
		if start > len(body)-room {
			start = len(body) - room
		}
		body = body[start : start+room]
	}

	lines := make([]string, 0, len(header)+len(body)+len(footer))
	lines = append(lines, header...)
	lines = append(lines, body...)
	return append(lines, footer...)
}
