package layout

import (
	"github.com/penwyp/go-flight-stepper/internal/core/model"
	"github.com/penwyp/go-flight-stepper/internal/util"
)

// FullLayoutStrategy shows every row of every entry
type FullLayoutStrategy struct {
	BaseStrategy
}

func (s *FullLayoutStrategy) GetName() string {
	return "full"
}

func (s *FullLayoutStrategy) Render(param model.LayoutParam) []string {
	var body []string
	focus := 0
	for i, v := range param.Entries {
		if i == param.State.Selected {
			focus = len(body)
		}
		body = append(body, s.EntryHeader(i, v, param))
		if len(v.Rows) == 0 {
			body = append(body, "    "+util.Colorize("(waiting for rows)", util.ColorDim))
		}
		for j := range v.Rows {
			if v.RowState(j, param.Cursor) == model.RowNext {
				focus = len(body)
			}
			body = append(body, s.RowLine(v, j, param))
		}
	}
	if len(param.Entries) == 0 {
		body = append(body, util.Colorize(s.GetSizer().Truncate("Timeline is empty. Press r to load the render response.", param.Width), util.ColorDim))
	}

	return Fit(s.Header(param), body, s.Footer(param), focus, param.Height)
}
