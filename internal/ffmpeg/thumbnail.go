package ffmpeg

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// GenerateThumbnail extracts a representative frame from a video into
// outputDir/thumb.jpg, seeking to 10% of the duration (clamped between
// 1s and 5 minutes). An existing thumbnail is reused.
func GenerateThumbnail(inputPath, outputDir string) (string, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", err
	}
	outputPath := filepath.Join(outputDir, "thumb.jpg")

	if _, err := os.Stat(outputPath); err == nil {
		return outputPath, nil
	}

	seekTime := "5" // fallback when the probe fails
	if info, err := Probe(inputPath); err == nil && info.Duration > 0 {
		seekTo := info.Duration * 0.10
		if seekTo < 1 {
			seekTo = 1
		}
		if seekTo > 300 {
			seekTo = 300
		}
		seekTime = fmt.Sprintf("%.2f", seekTo)
	}

	cmd := exec.Command("ffmpeg",
		"-hide_banner", "-loglevel", "error",
		"-ss", seekTime,
		"-i", inputPath,
		"-vframes", "1",
		"-vf", "scale=320:-1",
		"-y",
		outputPath,
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("thumbnail: %w: %s", err, string(output))
	}
	return outputPath, nil
}
