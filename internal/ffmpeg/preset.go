package ffmpeg

import (
	"fmt"
	"strconv"
)

// Quality selects the speed/size trade-off for the burn encode.
type Quality string

const (
	QualityFast     Quality = "fast"
	QualityBalanced Quality = "balanced"
	QualityHigh     Quality = "high"
)

// EncodeParams is the resolved x264 parameter set for a quality tier.
type EncodeParams struct {
	Quality Quality `json:"quality"`
	Preset  string  `json:"preset"` // x264 preset name
	CRF     int     `json:"crf"`
	Tune    string  `json:"tune,omitempty"`
}

// ProcessingOptions are the caller-tunable knobs of a burn run.
type ProcessingOptions struct {
	Quality        Quality `json:"quality"`
	Threads        int     `json:"threads"`          // 0 = let the encoder decide
	MemoryBudgetMB int     `json:"memory_budget_mb"` // advisory, 0 = unbounded
}

// DefaultProcessingOptions is balanced quality with automatic threading.
func DefaultProcessingOptions() ProcessingOptions {
	return ProcessingOptions{Quality: QualityBalanced}
}

var qualityParams = map[Quality]EncodeParams{
	QualityFast:     {Quality: QualityFast, Preset: "ultrafast", CRF: 28, Tune: "zerolatency"},
	QualityBalanced: {Quality: QualityBalanced, Preset: "fast", CRF: 23},
	QualityHigh:     {Quality: QualityHigh, Preset: "slow", CRF: 18},
}

// ParamsFor resolves a quality tier, defaulting unknown values to balanced.
func ParamsFor(q Quality) EncodeParams {
	if p, ok := qualityParams[q]; ok {
		return p
	}
	return qualityParams[QualityBalanced]
}

// ValidQuality reports whether q names a known tier.
func ValidQuality(q Quality) bool {
	_, ok := qualityParams[q]
	return ok
}

// EncoderArgs renders the codec flags for the burn command.
func EncoderArgs(opts ProcessingOptions) []string {
	p := ParamsFor(opts.Quality)
	args := []string{
		"-c:v", "libx264",
		"-preset", p.Preset,
		"-crf", strconv.Itoa(p.CRF),
	}
	if p.Tune != "" {
		args = append(args, "-tune", p.Tune)
	}
	args = append(args, "-pix_fmt", "yuv420p")
	if opts.Threads > 0 {
		args = append(args, "-threads", strconv.Itoa(opts.Threads))
	}
	return args
}

// ParseQuality validates a user-supplied quality string.
func ParseQuality(s string) (Quality, error) {
	q := Quality(s)
	if s == "" {
		return QualityBalanced, nil
	}
	if !ValidQuality(q) {
		return "", fmt.Errorf("unknown quality %q (want fast, balanced or high)", s)
	}
	return q, nil
}
