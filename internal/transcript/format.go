package transcript

import (
	"fmt"
	"strings"
	"time"
)

const originalLabel = "original"

// Render prints the running strings, original first, one line per
// language in the given order.
func Render(s Snapshot, languages []string) string {
	width := len(originalLabel)
	for _, lang := range languages {
		width = max(width, len(lang))
	}
	lines := make([]string, 0, len(languages)+1)
	lines = append(lines, fmt.Sprintf("%-*s : %s", width, originalLabel, s.Original))
	for _, lang := range languages {
		lines = append(lines, fmt.Sprintf("%-*s : %s", width, lang, s.Text(lang)))
	}
	return strings.Join(lines, "\n")
}

// FormatEntry renders one history entry with its offset from startedAt.
func FormatEntry(e Entry, startedAt time.Time) string {
	elapsed := e.ReceivedAt.Sub(startedAt)
	if elapsed < 0 {
		elapsed = 0
	}
	if e.Message.IsError() {
		return fmt.Sprintf("%s error: %s", formatElapsedHMS(elapsed), e.Message.Error)
	}
	return fmt.Sprintf("%s %s", formatElapsedHMS(elapsed), e.Message.Original)
}

func FormatHistory(entries []Entry, startedAt time.Time) string {
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, FormatEntry(e, startedAt))
	}
	return strings.Join(lines, "\n")
}

func formatElapsedHMS(d time.Duration) string {
	total := int64(d / time.Second)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
