package burn

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/subburn/backend/internal/engine"
	"github.com/subburn/backend/internal/ffmpeg"
	"github.com/subburn/backend/internal/job"
	"github.com/subburn/backend/internal/progress"
	"github.com/subburn/backend/internal/render"
	"github.com/subburn/backend/internal/storage"
	"github.com/subburn/backend/internal/subtitle"
)

// Worker turns queued burn jobs into pipeline runs. One worker serves
// one engine instance; the queue already serializes job execution.
type Worker struct {
	engine engine.Engine
	store  *storage.Store
}

func NewWorker(eng engine.Engine, store *storage.Store) *Worker {
	return &Worker{engine: eng, store: store}
}

// Handle implements job.Handler for burn jobs.
func (w *Worker) Handle(ctx context.Context, j *job.Job, report func(job.Progress)) (any, error) {
	var params job.BurnParams
	if err := json.Unmarshal(j.Params, &params); err != nil {
		return nil, fmt.Errorf("decode burn params: %w", err)
	}

	quality, err := ffmpeg.ParseQuality(params.Quality)
	if err != nil {
		return nil, err
	}
	opts := ffmpeg.ProcessingOptions{
		Quality:        quality,
		Threads:        params.Threads,
		MemoryBudgetMB: params.MemoryBudgetMB,
	}

	started := time.Now()

	// A terminated engine reloads here; a healthy one is a no-op.
	if err := w.engine.Load(ctx); err != nil {
		return nil, fmt.Errorf("load engine: %w", err)
	}

	tracker := progress.NewTracker()
	unsub := tracker.Subscribe(func(u progress.Update) {
		report(job.Progress{Percent: u.Percent, Stage: string(u.Phase), Message: u.Message})
	})
	defer unsub()

	// Queue cancellation must reach the running ffmpeg process.
	watchDone := make(chan struct{})
	defer close(watchDone)
	go func() {
		select {
		case <-ctx.Done():
			w.engine.Terminate()
		case <-watchDone:
		}
	}()

	info, err := ffmpeg.Probe(j.FilePath)
	if err != nil {
		return nil, err
	}

	subData, err := os.ReadFile(params.SubtitlePath)
	if err != nil {
		return nil, fmt.Errorf("read subtitle file: %w", err)
	}
	format, ok := subtitle.DetectFormat(filepath.Base(params.SubtitlePath))
	if !ok {
		return nil, fmt.Errorf("unsupported subtitle format: %s", params.SubtitlePath)
	}
	entries, err := subtitle.Parse(subData, format)
	if err != nil {
		return nil, err
	}
	relevant, stats := subtitle.FilterByDuration(entries, info.Duration)
	log.Printf("[burn] job %s: %d/%d entries within %.1fs", j.ID, stats.Relevant, stats.Total, info.Duration)

	video, err := os.ReadFile(j.FilePath)
	if err != nil {
		return nil, fmt.Errorf("read video file: %w", err)
	}

	style := render.DefaultStyle()
	if params.FontSize > 0 {
		style.FontSize = params.FontSize
	}
	if params.MarginBottom > 0 {
		style.MarginBottom = params.MarginBottom
	}

	pipeline := NewPipeline(w.engine, render.NewTextRasterizer(params.MemoryBudgetMB), tracker)
	out, err := pipeline.Run(ctx, video, relevant, info, style, opts)
	if errors.Is(err, ErrCancelled) {
		return nil, job.ErrCancelled
	}
	if err != nil {
		return nil, err
	}

	outputPath, err := w.store.SaveResult(j.ID, out)
	if err != nil {
		return nil, fmt.Errorf("save result: %w", err)
	}

	return &job.BurnResult{
		OutputPath: outputPath,
		Entries:    stats.Relevant,
		Filtered:   stats.Filtered,
		Seconds:    time.Since(started).Seconds(),
	}, nil
}
