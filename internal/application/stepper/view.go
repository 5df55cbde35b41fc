package stepper

import (
	"github.com/penwyp/go-flight-stepper/internal/core/model"
	"github.com/penwyp/go-flight-stepper/internal/core/timeline"
)

// BuildViews derives entry views from a snapshot. consumers may lack an
// entry, in which case its consumer state is zero.
func BuildViews(snap *timeline.Snapshot, consumers map[timeline.Stream]model.ConsumerState) []model.EntryView {
	views := make([]model.EntryView, 0, len(snap.Entries))
	start := 0
	for _, e := range snap.Entries {
		rows := e.EntryStream().Rows()
		end := start + len(rows)

		v := model.EntryView{
			ID:         e.EntryID(),
			Label:      timeline.Label(e),
			Rows:       rows,
			ChunkStart: start,
			IsActive:   snap.Cursor >= start && snap.Cursor < end,
			IsDone:     snap.Cursor >= end,
			CanDelete:  snap.Cursor <= start,
			Consumer:   consumers[e.EntryStream()],
		}
		switch e := e.(type) {
		case *timeline.RenderEntry:
			v.Kind = model.KindRender
		case *timeline.ActionEntry:
			v.Kind = model.KindAction
			v.Name = e.Name
			v.Args = e.Args
		}

		views = append(views, v)
		start = end
	}
	return views
}
