// Package filtergraph builds the -filter_complex argument that composites
// timed subtitle overlays onto the base video stream.
//
// The graph is a linear overlay chain: stage i takes the previous stage's
// output (the base video for stage 0) and image input i+1, compositing it
// at a fixed position gated by a time-interval predicate. Overlapping
// entries stack in append order — later entries paint over earlier ones.
package filtergraph

import (
	"fmt"
	"strings"

	"github.com/subburn/backend/internal/subtitle"
)

// OutputLabel names the graph's final video stream, referenced by the
// output -map downstream.
const OutputLabel = "vout"

// Layout positions each overlay on the frame. The expressions are ffmpeg
// overlay-filter coordinates; defaults center horizontally near the bottom.
type Layout struct {
	X string
	Y string
}

// DefaultLayout bottom-centers overlays with a fixed margin.
func DefaultLayout() Layout {
	return Layout{X: "(W-w)/2", Y: "H-h-24"}
}

// Stage is a single compositing operation in the chain.
type Stage struct {
	InputLabel   string  // previous stage output, or the base video
	OverlayInput string  // image input stream for this stage
	OutputLabel  string
	Start        float64 // overlay visible from Start...
	End          float64 // ...through End, inclusive
}

// Graph is an ordered overlay chain plus its final output label.
type Graph struct {
	Stages []Stage
	Output string
	layout Layout
}

// Build constructs the overlay chain for the given entries. The number of
// stages always equals the number of entries; zero entries produce a
// pass-through graph that copies the base video to the output label.
// Output is deterministic: identical input yields byte-identical graphs.
func Build(entries []subtitle.Entry, layout Layout) Graph {
	g := Graph{Output: OutputLabel, layout: layout}
	if len(entries) == 0 {
		return g
	}

	g.Stages = make([]Stage, 0, len(entries))
	prev := "0:v"
	for i, e := range entries {
		out := fmt.Sprintf("v%d", i+1)
		if i == len(entries)-1 {
			out = OutputLabel
		}
		g.Stages = append(g.Stages, Stage{
			InputLabel:   prev,
			OverlayInput: fmt.Sprintf("%d:v", i+1),
			OutputLabel:  out,
			Start:        e.Start,
			End:          e.End,
		})
		prev = out
	}
	return g
}

// String renders the graph as a single filter_complex token.
func (g Graph) String() string {
	if len(g.Stages) == 0 {
		return fmt.Sprintf("[0:v]null[%s]", g.Output)
	}

	parts := make([]string, 0, len(g.Stages))
	for _, s := range g.Stages {
		// Three fractional digits on the gate bounds; coarser precision
		// causes visible flicker at cue boundaries.
		parts = append(parts, fmt.Sprintf(
			"[%s][%s]overlay=x=%s:y=%s:enable='between(t,%.3f,%.3f)'[%s]",
			s.InputLabel, s.OverlayInput, g.layout.X, g.layout.Y, s.Start, s.End, s.OutputLabel,
		))
	}
	return strings.Join(parts, ";")
}
