package layout

import (
	"fmt"

	"github.com/penwyp/go-flight-stepper/internal/core/model"
	"github.com/penwyp/go-flight-stepper/internal/util"
)

// CompactLayoutStrategy shows one line per entry plus the rows around the
// cursor in the active entry
type CompactLayoutStrategy struct {
	BaseStrategy
}

// compactContext is the number of rows shown on each side of the cursor
const compactContext = 2

func (s *CompactLayoutStrategy) GetName() string {
	return "compact"
}

func (s *CompactLayoutStrategy) Render(param model.LayoutParam) []string {
	var body []string
	focus := 0
	for i, v := range param.Entries {
		if i == param.State.Selected {
			focus = len(body)
		}
		body = append(body, s.EntryHeader(i, v, param))
		if !v.IsActive {
			continue
		}

		next := param.Cursor - v.ChunkStart
		from, to := next-compactContext, next+compactContext+1
		if from < 0 {
			from = 0
		}
		if to > len(v.Rows) {
			to = len(v.Rows)
		}
		if from > 0 {
			body = append(body, util.Colorize(fmt.Sprintf("    … %d released", from), util.ColorDim))
		}
		for j := from; j < to; j++ {
			if j == next {
				focus = len(body)
			}
			body = append(body, s.RowLine(v, j, param))
		}
		if rest := len(v.Rows) - to; rest > 0 {
			body = append(body, util.Colorize(fmt.Sprintf("    … %d pending", rest), util.ColorDim))
		}
	}

	return Fit(s.Header(param), body, s.Footer(param), focus, param.Height)
}
