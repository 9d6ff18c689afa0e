package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/fpang/comix-generator/internal/terminal"
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

// PrintSummary lists the written slots, one per line.
func PrintSummary(w io.Writer, slots []*terminal.FileSlot, elapsed time.Duration) {
	written := 0
	for _, s := range slots {
		path := s.Path()
		if path == "" {
			continue
		}
		written++
		info := s.Info()
		if info.Width > 0 {
			fmt.Fprintf(w, "  %-12s %s (%dx%d %s)\n", s.Name(), path, info.Width, info.Height, info.Format)
		} else {
			fmt.Fprintf(w, "  %-12s %s\n", s.Name(), path)
		}
	}
	fmt.Fprintf(w, "Wrote %d image(s) in %s\n", written, FormatDurationShort(elapsed))
}
