package layout

import (
	"github.com/penwyp/go-flight-stepper/internal/core/model"
)

// LayoutStrategy turns a frame description into screen lines
type LayoutStrategy interface {
	Render(param model.LayoutParam) []string
	GetName() string
}

// GetLayoutStrategy returns the appropriate layout strategy based on the style
func GetLayoutStrategy(layoutStyle int) LayoutStrategy {
	strategies := map[int]LayoutStrategy{
		0: &FullLayoutStrategy{},
		1: &CompactLayoutStrategy{},
	}

	if strategy, exists := strategies[layoutStyle]; exists {
		return strategy
	}

	// Default to the full layout if invalid style
	return &FullLayoutStrategy{}
}
