package subtitle

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	// 00:00:01.000 --> 00:00:02.000 (VTT always uses dot millis)
	vttTimeRe = regexp.MustCompile(`^(\d{2}:\d{2}:\d{2})\.(\d{3})\s*-->\s*(\d{2}:\d{2}:\d{2})\.(\d{3})`)

	// H:MM:SS.cc — ASS times carry centiseconds and a single hour digit
	assTimeRe = regexp.MustCompile(`^(\d+):(\d{2}):(\d{2})\.(\d{2})$`)
)

// vttToSRT transcodes WebVTT cue text to SRT blocks. Cues are delimited by
// blank lines; NOTE comments and the WEBVTT header are dropped; output
// times use the comma decimal separator.
func vttToSRT(content string) string {
	var b strings.Builder
	index := 0

	for _, block := range strings.Split(content, "\n\n") {
		lines := splitNonEmptyLines(block)

		var timeLine string
		var textLines []string
		for _, line := range lines {
			line = strings.TrimSpace(line)
			if line == "WEBVTT" || strings.HasPrefix(line, "NOTE") {
				continue
			}
			if m := vttTimeRe.FindStringSubmatch(line); m != nil {
				timeLine = fmt.Sprintf("%s,%s --> %s,%s", m[1], m[2], m[3], m[4])
				continue
			}
			if timeLine != "" {
				textLines = append(textLines, line)
			}
			// Lines before the time line are cue identifiers; skipped.
		}
		if timeLine == "" || len(textLines) == 0 {
			continue
		}

		index++
		fmt.Fprintf(&b, "%d\n%s\n%s\n\n", index, timeLine, strings.Join(textLines, "\n"))
	}
	return b.String()
}

// assToSRT transcodes ASS/SSA dialogue events to SRT blocks. Only
// "Dialogue:" lines convert; styles, comments, and header sections are
// ignored.
func assToSRT(content string) string {
	var b strings.Builder
	index := 0

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "Dialogue:") {
			continue
		}
		rest := strings.TrimSpace(strings.TrimPrefix(line, "Dialogue:"))

		// Format: Layer, Start, End, Style, Name, MarginL, MarginR,
		// MarginV, Effect, Text — text is everything after the 9th comma.
		fields := strings.SplitN(rest, ",", 10)
		if len(fields) < 10 {
			continue
		}

		start, ok := assTimeToSRT(strings.TrimSpace(fields[1]))
		if !ok {
			continue
		}
		end, ok := assTimeToSRT(strings.TrimSpace(fields[2]))
		if !ok {
			continue
		}

		text := fields[9]
		text = strings.ReplaceAll(text, `\N`, " ")
		text = strings.ReplaceAll(text, `\n`, " ")
		text = overrideTagRe.ReplaceAllString(text, "")
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		index++
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n", index, start, end, text)
	}
	return b.String()
}

// assTimeToSRT converts H:MM:SS.cc to HH:MM:SS,mmm — hours zero-padded to
// two digits, centiseconds multiplied out to milliseconds.
func assTimeToSRT(ts string) (string, bool) {
	m := assTimeRe.FindStringSubmatch(ts)
	if m == nil {
		return "", false
	}
	h, _ := strconv.Atoi(m[1])
	cs, _ := strconv.Atoi(m[4])
	return fmt.Sprintf("%02d:%s:%s,%03d", h, m[2], m[3], cs*10), true
}
