package subtitle

// FilterByDuration drops entries that start at or beyond the playable
// range and clips the end time of retained entries to the video duration.
// Filtering an already-filtered list against the same duration is a no-op.
func FilterByDuration(entries []Entry, videoDuration float64) ([]Entry, Stats) {
	filtered := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.Start >= videoDuration {
			continue
		}
		if e.End > videoDuration {
			e.End = videoDuration
		}
		filtered = append(filtered, e)
	}

	stats := Stats{
		Total:    len(entries),
		Relevant: len(filtered),
		Filtered: len(entries) - len(filtered),
	}
	return filtered, stats
}
