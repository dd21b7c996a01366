package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"runtime"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/subburn/backend/internal/subtitle"
)

// TextRasterizer draws entry text with a scaled bitmap face onto a
// transparent frame-sized canvas.
type TextRasterizer struct {
	memoryBudgetMB int
}

// NewTextRasterizer creates a rasterizer honoring the advisory memory
// budget when sizing batches. Zero means no budget hint.
func NewTextRasterizer(memoryBudgetMB int) *TextRasterizer {
	return &TextRasterizer{memoryBudgetMB: memoryBudgetMB}
}

// Rasterize renders one overlay per entry, in input order, handing each
// image to the sink before the next one is drawn. A deliberate yield
// between batches keeps the process responsive during long tracks.
func (r *TextRasterizer) Rasterize(ctx context.Context, entries []subtitle.Entry, width, height int, style Style, sink Sink) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("rasterize: invalid frame size %dx%d", width, height)
	}

	batch := batchSize(len(entries), r.memoryBudgetMB)
	for start := 0; start < len(entries); start += batch {
		end := start + batch
		if end > len(entries) {
			end = len(entries)
		}

		for _, entry := range entries[start:end] {
			data, err := renderEntry(entry.Text, width, height, style)
			if err != nil {
				return fmt.Errorf("rasterize entry %d: %w", entry.Index, err)
			}
			if err := sink(ctx, Image{SubtitleIndex: entry.Index, PNG: data}); err != nil {
				return fmt.Errorf("deliver entry %d: %w", entry.Index, err)
			}
		}

		if err := ctx.Err(); err != nil {
			return err
		}
		runtime.Gosched()
	}
	return nil
}

// renderEntry draws text on a transparent width×height canvas,
// bottom-centered per the style, and PNG-encodes the result.
func renderEntry(text string, width, height int, style Style) ([]byte, error) {
	face := basicfont.Face7x13
	metrics := face.Metrics()
	glyphHeight := metrics.Height.Ceil()

	scale := style.FontSize / glyphHeight
	if scale < 1 {
		scale = 1
	}

	textWidth := font.MeasureString(face, text).Ceil()
	if textWidth == 0 {
		textWidth = 1
	}

	// Shrink the scale until the scaled line fits the frame width.
	for scale > 1 && textWidth*scale > width {
		scale--
	}

	// Draw at native face size first; the outline is a ring of offset
	// passes around the fill.
	pad := 2
	small := image.NewRGBA(image.Rect(0, 0, textWidth+2*pad, glyphHeight+2*pad))
	baseline := fixed.I(pad) + metrics.Ascent

	if style.OutlineWidth > 0 {
		outline := &font.Drawer{
			Dst:  small,
			Src:  image.NewUniform(style.OutlineColor),
			Face: face,
		}
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 {
					continue
				}
				outline.Dot = fixed.Point26_6{X: fixed.I(pad + dx), Y: baseline + fixed.I(dy)}
				outline.DrawString(text)
			}
		}
	}

	fill := &font.Drawer{
		Dst:  small,
		Src:  image.NewUniform(style.Color),
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.I(pad), Y: baseline},
	}
	fill.DrawString(text)

	// Scale up and place bottom-center on the transparent frame canvas.
	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	sw := small.Bounds().Dx() * scale
	sh := small.Bounds().Dy() * scale
	x0 := (width - sw) / 2
	if x0 < 0 {
		x0 = 0
	}
	y0 := height - sh - style.MarginBottom
	if y0 < 0 {
		y0 = 0
	}
	dst := image.Rect(x0, y0, x0+sw, y0+sh)
	xdraw.NearestNeighbor.Scale(canvas, dst, small, small.Bounds(), xdraw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
