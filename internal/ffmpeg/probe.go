package ffmpeg

import (
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
)

type probeResult struct {
	Format  probeFormat   `json:"format"`
	Streams []probeStream `json:"streams"`
}

type probeFormat struct {
	Filename string `json:"filename"`
	Duration string `json:"duration"`
	Size     string `json:"size"`
	BitRate  string `json:"bit_rate"`
}

type probeStream struct {
	Index      int    `json:"index"`
	CodecName  string `json:"codec_name"`
	CodecType  string `json:"codec_type"` // video, audio, subtitle
	Width      int    `json:"width,omitempty"`
	Height     int    `json:"height,omitempty"`
	Duration   string `json:"duration,omitempty"`
	RFrameRate string `json:"r_frame_rate,omitempty"`
}

// VideoInfo is the subset of probe output the burn pipeline needs: the
// frame geometry for overlay sizing and the duration for subtitle
// filtering and progress estimation.
type VideoInfo struct {
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Duration   float64 `json:"duration"` // seconds
	VideoCodec string  `json:"video_codec"`
	AudioCodec string  `json:"audio_codec"`
	HasAudio   bool    `json:"has_audio"`
}

// MetadataError reports a file whose metadata could not be extracted,
// distinct from probe-tool failures.
type MetadataError struct {
	Path   string
	Reason string
}

func (e *MetadataError) Error() string {
	return fmt.Sprintf("video metadata unavailable for %s: %s", e.Path, e.Reason)
}

// Probe extracts video info via ffprobe. A file with no video stream or
// no recoverable duration yields a MetadataError.
func Probe(filePath string) (*VideoInfo, error) {
	cmd := exec.Command("ffprobe",
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		filePath,
	)

	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("probe %s: %w", filePath, err)
	}

	var result probeResult
	if err := json.Unmarshal(output, &result); err != nil {
		return nil, fmt.Errorf("parse probe output: %w", err)
	}

	info := &VideoInfo{}
	var videoDuration string
	for _, s := range result.Streams {
		switch s.CodecType {
		case "video":
			if info.VideoCodec == "" {
				info.VideoCodec = s.CodecName
				info.Width = s.Width
				info.Height = s.Height
				videoDuration = s.Duration
			}
		case "audio":
			if info.AudioCodec == "" {
				info.AudioCodec = s.CodecName
				info.HasAudio = true
			}
		}
	}

	if info.VideoCodec == "" {
		return nil, &MetadataError{Path: filePath, Reason: "no video stream"}
	}
	if info.Width <= 0 || info.Height <= 0 {
		return nil, &MetadataError{Path: filePath, Reason: "missing frame dimensions"}
	}

	// Prefer the container duration; some streams omit their own.
	info.Duration = parseSeconds(result.Format.Duration)
	if info.Duration <= 0 {
		info.Duration = parseSeconds(videoDuration)
	}
	if info.Duration <= 0 {
		return nil, &MetadataError{Path: filePath, Reason: "missing duration"}
	}

	return info, nil
}

func parseSeconds(s string) float64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}
