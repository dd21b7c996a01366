// Package burn sequences a subtitle burn run: it stages the video and
// rendered overlays in the engine workspace, assembles the ffmpeg
// argument list, executes it with progress wired up, and reads back the
// result. Every file a run writes is deleted again no matter how the
// run ends.
package burn

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/subburn/backend/internal/engine"
	"github.com/subburn/backend/internal/ffmpeg"
	"github.com/subburn/backend/internal/filtergraph"
	"github.com/subburn/backend/internal/progress"
	"github.com/subburn/backend/internal/render"
	"github.com/subburn/backend/internal/subtitle"
)

// Fixed workspace names. Runs against one engine instance must be
// serialized by the caller; these names are shared, not parameterized.
const (
	inputName  = "input.mp4"
	outputName = "output.mp4"
)

var (
	// ErrCancelled reports a run stopped by engine termination. It is the
	// clean-cancellation outcome, not a failure; the engine needs a fresh
	// Load before the next run.
	ErrCancelled = errors.New("burn cancelled")

	// ErrEmptyOutput reports an encode that exited cleanly but produced a
	// zero-length file.
	ErrEmptyOutput = errors.New("encode produced empty output")
)

func imageName(index int) string {
	return fmt.Sprintf("sub_%d.png", index)
}

// Pipeline owns one burn flow over a single engine instance.
type Pipeline struct {
	engine  engine.Engine
	raster  render.Rasterizer
	tracker *progress.Tracker
}

func NewPipeline(eng engine.Engine, raster render.Rasterizer, tracker *progress.Tracker) *Pipeline {
	return &Pipeline{engine: eng, raster: raster, tracker: tracker}
}

// Run burns entries into video and returns the encoded output bytes.
// Cancellation via engine termination returns ErrCancelled; any other
// failure is surfaced after cleanup has run.
func (p *Pipeline) Run(ctx context.Context, video []byte, entries []subtitle.Entry, info *ffmpeg.VideoInfo, style render.Style, opts ffmpeg.ProcessingOptions) ([]byte, error) {
	var written []string
	defer func() {
		// Cleanup must survive a cancelled ctx, and a missing file is fine.
		cleanupCtx := context.Background()
		for _, name := range written {
			if err := p.engine.DeleteFile(cleanupCtx, name); err != nil {
				log.Printf("[burn] cleanup of %s failed: %v", name, err)
			}
		}
	}()

	out, err := p.run(ctx, &written, video, entries, info, style, opts)
	switch {
	case err == nil:
		p.tracker.Complete("subtitles burned in")
		return out, nil
	case errors.Is(err, engine.ErrTerminated) || errors.Is(err, context.Canceled):
		log.Printf("[burn] run cancelled")
		p.tracker.Reset()
		return nil, ErrCancelled
	default:
		p.tracker.Error(err.Error())
		return nil, err
	}
}

func (p *Pipeline) run(ctx context.Context, written *[]string, video []byte, entries []subtitle.Entry, info *ffmpeg.VideoInfo, style render.Style, opts ffmpeg.ProcessingOptions) ([]byte, error) {
	if info == nil || info.Duration <= 0 {
		return nil, fmt.Errorf("video info required before a run")
	}

	unsub := p.engine.Subscribe(func(ev engine.Event) {
		switch ev.Type {
		case engine.EventLog:
			p.tracker.ParseLog(ev.Message, info.Duration)
		case engine.EventProgress:
			p.tracker.UpdatePhase(ev.Progress*100, "")
		}
	})
	defer unsub()

	if err := p.engine.WriteFile(ctx, inputName, video); err != nil {
		return nil, fmt.Errorf("stage video: %w", err)
	}
	*written = append(*written, inputName)

	// Overlays are written as they are rendered, never accumulated.
	total := len(entries)
	done := 0
	sink := func(ctx context.Context, img render.Image) error {
		name := imageName(img.SubtitleIndex)
		if err := p.engine.WriteFile(ctx, name, img.PNG); err != nil {
			return err
		}
		*written = append(*written, name)
		done++
		p.tracker.UpdatePhase(float64(done)/float64(total)*100, "rendering subtitles")
		return nil
	}
	if total > 0 {
		if err := p.raster.Rasterize(ctx, entries, info.Width, info.Height, style, sink); err != nil {
			return nil, fmt.Errorf("rasterize subtitles: %w", err)
		}
	}

	graph := filtergraph.Build(entries, filtergraph.DefaultLayout())
	args := buildArgs(entries, graph, info, opts)

	// A failed or interrupted encode can still leave a partial output in
	// the workspace, so the name is registered before Exec runs. DeleteFile
	// tolerates a file that was never created.
	*written = append(*written, outputName)

	p.tracker.SetPhase(progress.PhaseProcessingVideo)
	if err := p.engine.Exec(ctx, args); err != nil {
		return nil, err
	}

	out, err := p.engine.ReadFile(ctx, outputName)
	if err != nil {
		return nil, fmt.Errorf("read output: %w", err)
	}
	if len(out) == 0 {
		return nil, ErrEmptyOutput
	}
	return out, nil
}

// buildArgs assembles the full ffmpeg invocation: the video input, one
// image input per overlay in entry order, the filter-graph token, stream
// mapping and the encoder flags for the selected quality tier.
func buildArgs(entries []subtitle.Entry, graph filtergraph.Graph, info *ffmpeg.VideoInfo, opts ffmpeg.ProcessingOptions) []string {
	args := []string{"-i", inputName}
	for _, e := range entries {
		args = append(args, "-i", imageName(e.Index))
	}
	args = append(args,
		"-filter_complex", graph.String(),
		"-map", "["+graph.Output+"]",
	)
	if info.HasAudio {
		args = append(args, "-map", "0:a?", "-c:a", "copy")
	}
	args = append(args, ffmpeg.EncoderArgs(opts)...)
	args = append(args, "-y", outputName)
	return args
}
