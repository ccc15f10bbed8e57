package cli

import (
	"fmt"
	"strings"
	"time"
)

// FormatDurationShort formats a duration in a short format (M:SS or H:MM:SS).
func FormatDurationShort(d time.Duration) string {
	totalSeconds := int(d.Seconds())
	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}

// FormatTags renders tags as "#a #b", or "(none)".
func FormatTags(tags []string) string {
	if len(tags) == 0 {
		return "(none)"
	}
	parts := make([]string, len(tags))
	for i, tag := range tags {
		parts[i] = "#" + strings.ReplaceAll(tag, " ", "_")
	}
	return strings.Join(parts, " ")
}

// Banner returns a title framed by separator lines.
func Banner(title string) string {
	line := strings.Repeat("=", 60)
	return line + "\n" + title + "\n" + line
}
