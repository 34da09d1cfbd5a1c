package report

import (
	"fmt"
	"time"
)

// FormatDuration prints milliseconds below ten seconds and minutes/seconds above.
func FormatDuration(d time.Duration) string {
	ms := d.Milliseconds()
	if ms < 9999 {
		return fmt.Sprintf("%dms", ms)
	}

	secs := int64(d / time.Second)
	minutes := secs / 60
	seconds := secs % 60
	if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}

// FormatMemory picks the largest unit that keeps the value below 9999.
func FormatMemory(bytes uint64) string {
	switch {
	case bytes < 9999:
		return fmt.Sprintf("%dB", bytes)
	case bytes>>10 < 9999:
		return fmt.Sprintf("%dKB", bytes>>10)
	case bytes>>20 < 9999:
		return fmt.Sprintf("%dMB", bytes>>20)
	default:
		return fmt.Sprintf("%dGB", bytes>>30)
	}
}
