package progress

import (
	"regexp"
	"strconv"
	"strings"
)

// The engine's stderr carries no machine-readable progress contract, so
// these patterns are best effort: when nothing matches the run simply
// reports indeterminate progress instead of failing.
var (
	logTimeRe  = regexp.MustCompile(`time=\s*(\d+(?::\d{2})*[.,]?\d*)`)
	logFrameRe = regexp.MustCompile(`frame=\s*(\d+)`)
	logFPSRe   = regexp.MustCompile(`fps=\s*(\d+(?:\.\d+)?)`)
)

// ParseLog scrapes one raw engine log line for progress markers and, when
// one is found, feeds the derived percentage through UpdatePhase. It
// prefers the time= marker and falls back to estimating elapsed time from
// a frame=/fps= pair. Returns whether a marker was extracted.
//
// Has no effect outside the processing-video phase or when the video
// duration is unknown.
func (t *Tracker) ParseLog(line string, videoDuration float64) bool {
	t.mu.Lock()
	active := t.phase == PhaseProcessingVideo
	t.mu.Unlock()
	if !active || videoDuration <= 0 {
		return false
	}

	elapsed, ok := scrapeElapsed(line)
	if !ok {
		return false
	}

	percent := elapsed / videoDuration * 100
	t.UpdatePhase(percent, "")
	return true
}

func scrapeElapsed(line string) (float64, bool) {
	if m := logTimeRe.FindStringSubmatch(line); m != nil {
		if sec, ok := parseClock(m[1]); ok {
			return sec, true
		}
	}

	frameMatch := logFrameRe.FindStringSubmatch(line)
	fpsMatch := logFPSRe.FindStringSubmatch(line)
	if frameMatch != nil && fpsMatch != nil {
		frame, err1 := strconv.ParseFloat(frameMatch[1], 64)
		fps, err2 := strconv.ParseFloat(fpsMatch[1], 64)
		if err1 == nil && err2 == nil && fps > 0 {
			return frame / fps, true
		}
	}
	return 0, false
}

// parseClock converts HH:MM:SS.fff, MM:SS.fff, or bare-seconds strings to
// seconds. Both comma and dot work as the fractional separator.
func parseClock(ts string) (float64, bool) {
	ts = strings.Replace(strings.TrimSpace(ts), ",", ".", 1)
	if ts == "" {
		return 0, false
	}

	parts := strings.Split(ts, ":")
	if len(parts) > 3 {
		return 0, false
	}

	total := 0.0
	for _, part := range parts {
		v, err := strconv.ParseFloat(part, 64)
		if err != nil || v < 0 {
			return 0, false
		}
		total = total*60 + v
	}
	return total, true
}
