// Package render turns subtitle entries into transparent PNG overlays
// sized to the target video frame. Images are produced in bounded batches
// and handed to a sink immediately instead of being accumulated, keeping
// peak memory flat for long subtitle tracks.
package render

import (
	"context"
	"image/color"

	"github.com/subburn/backend/internal/subtitle"
)

// Style controls how entry text is drawn onto the overlay canvas.
type Style struct {
	FontSize     int        `json:"font_size"` // glyph pixel height
	Color        color.RGBA `json:"-"`
	OutlineColor color.RGBA `json:"-"`
	OutlineWidth int        `json:"outline_width"`
	MarginBottom int        `json:"margin_bottom"` // px above the bottom edge
}

// DefaultStyle is white text with a black outline near the bottom edge.
func DefaultStyle() Style {
	return Style{
		FontSize:     36,
		Color:        color.RGBA{255, 255, 255, 255},
		OutlineColor: color.RGBA{0, 0, 0, 255},
		OutlineWidth: 2,
		MarginBottom: 24,
	}
}

// Image is one rendered overlay, 1:1 with its source entry.
type Image struct {
	SubtitleIndex int
	PNG           []byte
}

// Sink receives each image as soon as it is rendered. A sink error aborts
// the whole run; there is no partial-skip recovery.
type Sink func(ctx context.Context, img Image) error

// Rasterizer renders entries into frame-sized transparent overlays,
// preserving input order.
type Rasterizer interface {
	Rasterize(ctx context.Context, entries []subtitle.Entry, width, height int, style Style, sink Sink) error
}

// batchSize bounds how many overlays are rendered between yield points.
// Small subtitle counts get larger batches; big tracks are chopped finer,
// further scaled down when the advisory memory budget is tight.
func batchSize(entryCount, memoryBudgetMB int) int {
	var size int
	switch {
	case entryCount <= 20:
		size = 10
	case entryCount <= 50:
		size = 8
	case entryCount <= 100:
		size = 5
	default:
		size = 3
	}

	if memoryBudgetMB > 0 && memoryBudgetMB < 256 {
		size /= 2
	} else if memoryBudgetMB >= 1024 {
		size *= 2
	}
	if size < 1 {
		size = 1
	}
	return size
}
