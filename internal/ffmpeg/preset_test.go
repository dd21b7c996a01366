package ffmpeg

import (
	"strings"
	"testing"
)

func TestParamsForQualityTiers(t *testing.T) {
	tests := []struct {
		quality Quality
		preset  string
		crf     int
	}{
		{QualityFast, "ultrafast", 28},
		{QualityBalanced, "fast", 23},
		{QualityHigh, "slow", 18},
		{Quality("bogus"), "fast", 23}, // unknown falls back to balanced
	}
	for _, tt := range tests {
		p := ParamsFor(tt.quality)
		if p.Preset != tt.preset || p.CRF != tt.crf {
			t.Errorf("ParamsFor(%q) = %s/%d, want %s/%d", tt.quality, p.Preset, p.CRF, tt.preset, tt.crf)
		}
	}
}

func TestEncoderArgs(t *testing.T) {
	args := EncoderArgs(ProcessingOptions{Quality: QualityHigh, Threads: 4})
	joined := strings.Join(args, " ")

	for _, want := range []string{"-c:v libx264", "-preset slow", "-crf 18", "-threads 4", "-pix_fmt yuv420p"} {
		if !strings.Contains(joined, want) {
			t.Errorf("args %q missing %q", joined, want)
		}
	}
}

func TestEncoderArgsAutoThreads(t *testing.T) {
	args := EncoderArgs(DefaultProcessingOptions())
	if strings.Contains(strings.Join(args, " "), "-threads") {
		t.Error("zero threads should omit the -threads flag")
	}
}

func TestParseQuality(t *testing.T) {
	if q, err := ParseQuality(""); err != nil || q != QualityBalanced {
		t.Errorf("empty = %q, %v; want balanced default", q, err)
	}
	if q, err := ParseQuality("high"); err != nil || q != QualityHigh {
		t.Errorf("high = %q, %v", q, err)
	}
	if _, err := ParseQuality("lossless"); err == nil {
		t.Error("unknown quality accepted")
	}
}

func TestParseSeconds(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"", 0},
		{"12.5", 12.5},
		{"-3", 0},
		{"garbage", 0},
	}
	for _, tt := range tests {
		if got := parseSeconds(tt.in); got != tt.want {
			t.Errorf("parseSeconds(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
