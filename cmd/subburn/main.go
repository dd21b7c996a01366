// Command subburn burns a subtitle file into a video from the command
// line, using the same pipeline as the server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/subburn/backend/internal/burn"
	"github.com/subburn/backend/internal/engine"
	"github.com/subburn/backend/internal/ffmpeg"
	"github.com/subburn/backend/internal/progress"
	"github.com/subburn/backend/internal/render"
	"github.com/subburn/backend/internal/subtitle"
)

var (
	flagOutput       string
	flagQuality      string
	flagThreads      int
	flagMemoryBudget int
	flagFontSize     int
	flagMargin       int
	flagFFmpeg       string
	flagWorkDir      string
)

func main() {
	root := &cobra.Command{
		Use:   "subburn <video> <subtitles>",
		Short: "Burn subtitles into a video",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return run(cmd.Context(), args[0], args[1])
		},
	}

	root.Flags().StringVarP(&flagOutput, "output", "o", "output.mp4", "output video path")
	root.Flags().StringVarP(&flagQuality, "quality", "q", "balanced", "encode quality (fast|balanced|high)")
	root.Flags().IntVar(&flagThreads, "threads", 0, "encoder threads (0 = auto)")
	root.Flags().IntVar(&flagMemoryBudget, "memory-budget", 0, "advisory memory budget in MB")
	root.Flags().IntVar(&flagFontSize, "font-size", 0, "subtitle font size in px")
	root.Flags().IntVar(&flagMargin, "margin", 0, "bottom margin in px")
	root.Flags().StringVar(&flagFFmpeg, "ffmpeg", "ffmpeg", "ffmpeg binary")
	root.Flags().StringVar(&flagWorkDir, "workdir", "", "engine scratch directory (default: temp)")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, videoPath, subtitlePath string) error {
	quality, err := ffmpeg.ParseQuality(flagQuality)
	if err != nil {
		return err
	}
	opts := ffmpeg.ProcessingOptions{
		Quality:        quality,
		Threads:        flagThreads,
		MemoryBudgetMB: flagMemoryBudget,
	}

	workDir := flagWorkDir
	if workDir == "" {
		workDir, err = os.MkdirTemp("", "subburn-*")
		if err != nil {
			return err
		}
		defer os.RemoveAll(workDir)
	}

	info, err := ffmpeg.Probe(videoPath)
	if err != nil {
		return err
	}
	log.Printf("[cli] %s: %dx%d, %.1fs", filepath.Base(videoPath), info.Width, info.Height, info.Duration)

	subData, err := os.ReadFile(subtitlePath)
	if err != nil {
		return err
	}
	format, ok := subtitle.DetectFormat(subtitlePath)
	if !ok {
		return fmt.Errorf("unsupported subtitle format: %s", subtitlePath)
	}
	entries, err := subtitle.Parse(subData, format)
	if err != nil {
		return err
	}
	relevant, stats := subtitle.FilterByDuration(entries, info.Duration)
	log.Printf("[cli] %d subtitle entries (%d outside video duration)", stats.Relevant, stats.Filtered)

	video, err := os.ReadFile(videoPath)
	if err != nil {
		return err
	}

	eng := engine.NewFFmpeg(flagFFmpeg, workDir)
	if err := eng.Load(ctx); err != nil {
		return err
	}

	// Terminate the engine when the context is cancelled (Ctrl-C).
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			eng.Terminate()
		case <-done:
		}
	}()

	tracker := progress.NewTracker()
	unsub := tracker.Subscribe(func(u progress.Update) {
		fmt.Printf("\r[%s] %3.0f%% %s", u.Phase, u.Percent, u.Message)
		if u.Phase == progress.PhaseCompleted || u.Phase == progress.PhaseError {
			fmt.Println()
		}
	})
	defer unsub()

	style := render.DefaultStyle()
	if flagFontSize > 0 {
		style.FontSize = flagFontSize
	}
	if flagMargin > 0 {
		style.MarginBottom = flagMargin
	}

	pipeline := burn.NewPipeline(eng, render.NewTextRasterizer(flagMemoryBudget), tracker)
	out, err := pipeline.Run(ctx, video, relevant, info, style, opts)
	if errors.Is(err, burn.ErrCancelled) {
		fmt.Println()
		log.Printf("[cli] cancelled")
		return nil
	}
	if err != nil {
		fmt.Println()
		return err
	}

	if err := os.WriteFile(flagOutput, out, 0644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	log.Printf("[cli] wrote %s (%d bytes)", flagOutput, len(out))
	return nil
}
