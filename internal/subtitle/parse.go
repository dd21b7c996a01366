package subtitle

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// maxTextLen caps entry text so a single cue cannot produce an oversized
// overlay image.
const maxTextLen = 100

var (
	// 00:00:01,000 --> 00:00:03,500 with either comma or dot millis
	srtTimeRe = regexp.MustCompile(`^(\d{2}):(\d{2}):(\d{2})[,.](\d{3})\s*-->\s*(\d{2}):(\d{2}):(\d{2})[,.](\d{3})`)

	markupTagRe   = regexp.MustCompile(`<[^>]*>`)
	overrideTagRe = regexp.MustCompile(`\{[^}]*\}`)
	allowedRuneRe = regexp.MustCompile(`[^A-Za-z0-9 .,!?;:()\-]`)
	multiSpaceRe  = regexp.MustCompile(`\s+`)
)

// Parse converts raw subtitle file bytes into a normalized entry list,
// sorted ascending by start time. VTT and ASS/SSA inputs are transcoded
// to SRT text first so a single block parser handles every format.
//
// Malformed blocks are skipped, not fatal. Parse fails only when a
// non-empty file yields zero usable entries.
func Parse(data []byte, format Format) ([]Entry, error) {
	content := normalizeNewlines(string(data))

	switch format {
	case FormatVTT:
		content = vttToSRT(content)
	case FormatASS, FormatSSA:
		content = assToSRT(content)
	}

	entries := parseSRT(content)
	if len(entries) == 0 && strings.TrimSpace(string(data)) != "" {
		return nil, &ParseError{Format: format, Reason: "no well-formed entries found"}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Start < entries[j].Start
	})
	return entries, nil
}

// parseSRT applies the SRT block grammar: an index line, a time line, then
// text lines until a blank line. Blocks whose time line does not match are
// dropped silently.
func parseSRT(content string) []Entry {
	var entries []Entry

	for _, block := range strings.Split(content, "\n\n") {
		lines := splitNonEmptyLines(block)
		if len(lines) < 2 {
			continue
		}

		index, err := strconv.Atoi(strings.TrimSpace(lines[0]))
		if err != nil || index < 1 {
			continue
		}

		m := srtTimeRe.FindStringSubmatch(strings.TrimSpace(lines[1]))
		if m == nil {
			continue
		}
		start := srtTimeSeconds(m[1], m[2], m[3], m[4])
		end := srtTimeSeconds(m[5], m[6], m[7], m[8])
		if start >= end {
			continue
		}

		text := sanitizeText(strings.Join(lines[2:], " "))
		if text == "" {
			continue
		}

		entries = append(entries, Entry{
			Index: index,
			Start: start,
			End:   end,
			Text:  text,
		})
	}
	return entries
}

// sanitizeText strips markup and override tags, removes characters outside
// the drawable set, collapses whitespace, and caps the length.
func sanitizeText(text string) string {
	text = markupTagRe.ReplaceAllString(text, "")
	text = overrideTagRe.ReplaceAllString(text, "")
	text = allowedRuneRe.ReplaceAllString(text, " ")
	text = multiSpaceRe.ReplaceAllString(text, " ")
	text = strings.TrimSpace(text)
	if len(text) > maxTextLen {
		text = text[:maxTextLen]
	}
	return strings.TrimSpace(text)
}

func srtTimeSeconds(hh, mm, ss, ms string) float64 {
	h, _ := strconv.Atoi(hh)
	m, _ := strconv.Atoi(mm)
	s, _ := strconv.Atoi(ss)
	f, _ := strconv.Atoi(ms)
	return float64(h*3600+m*60+s) + float64(f)/1000.0
}

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

func splitNonEmptyLines(block string) []string {
	var lines []string
	for _, line := range strings.Split(block, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
