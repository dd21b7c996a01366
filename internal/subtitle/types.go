package subtitle

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Entry is a single timed subtitle cue with plain, sanitized text.
// Entries are immutable after parsing except for End clipping done once
// by FilterByDuration.
type Entry struct {
	Index int     `json:"index"`
	Start float64 `json:"start"` // seconds
	End   float64 `json:"end"`   // seconds, always > Start
	Text  string  `json:"text"`
}

// Stats summarizes a duration-filter pass. Total = Relevant + Filtered.
type Stats struct {
	Total    int `json:"total"`
	Relevant int `json:"relevant"`
	Filtered int `json:"filtered"`
}

// Format identifies a supported subtitle file format.
type Format string

const (
	FormatSRT Format = "srt"
	FormatVTT Format = "vtt"
	FormatASS Format = "ass"
	FormatSSA Format = "ssa"
)

// DetectFormat maps a filename to its subtitle format by extension.
func DetectFormat(name string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".srt":
		return FormatSRT, true
	case ".vtt":
		return FormatVTT, true
	case ".ass":
		return FormatASS, true
	case ".ssa":
		return FormatSSA, true
	}
	return "", false
}

// ParseError reports a subtitle file from which no well-formed entries
// could be recovered. Individual malformed blocks are skipped silently;
// this error only surfaces when nothing usable remains.
type ParseError struct {
	Format Format
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s subtitles: %s", e.Format, e.Reason)
}
